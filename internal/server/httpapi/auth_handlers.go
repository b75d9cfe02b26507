package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/auth"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/go-chi/chi/v5"
)

type opsLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type clientCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type signupResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Email   string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) opsLogin(w http.ResponseWriter, r *http.Request) {
	var req opsLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := h.auth.Login(r.Context(), models.VariantOps, req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) clientLogin(w http.ResponseWriter, r *http.Request) {
	var req clientCredentials
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := h.auth.Login(r.Context(), models.VariantClient, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) logout(variant models.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r.Header.Get(common.AuthorizationHeaderName))
		if err := h.auth.Logout(r.Context(), token, variant); err != nil {
			h.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) clientSignup(w http.ResponseWriter, r *http.Request) {
	var req clientCredentials
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	p, err := h.signup.RequestSignup(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, signupResponse{
		Message: "signup successful, check your email to verify your address",
		ID:      p.ID,
		Email:   p.Identifier,
	})
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.signup.RedeemVerification(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "email verified, you can now log in"})
}
