package models

import "time"

// File is the metadata row of an uploaded document. The bytes live in the
// blob store under StorageKey.
type File struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	StorageKey  string    `json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
