package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/cryptox"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/config"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fileshare/internal/server/services"
	"github.com/dmitrijs2005/fileshare/internal/shared"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// hasherParams is a test seam so tests can hash cheaply.
var hasherParams = cryptox.DefaultParams

func newCreateOpsUserCmd(g *globalFlags) *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "create-ops-user <username>",
		Short: "Create an ops account that can upload files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				password []byte
				err      error
			)
			if fromStdin {
				password, err = readPasswordLine(cmd.InOrStdin())
			} else {
				password, err = promptPassword(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}
			defer shared.WipeByteArray(password)

			return g.withRepositories(cmd.Context(), func(_ *config.Config, rm repomanager.RepositoryManager) error {
				h, err := cryptox.NewHasher(hasherParams)
				if err != nil {
					return err
				}
				s := services.NewAuthService(rm, nil, h, nil, logging.NewNop())

				p, err := s.CreateOpsUser(cmd.Context(), args[0], string(password))
				if errors.Is(err, common.ErrDuplicateIdentifier) {
					return fmt.Errorf("ops user %q already exists", models.NormalizeIdentifier(models.VariantOps, args[0]))
				}
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "created ops user %s (%s)\n", p.Identifier, p.ID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "password-stdin", false, "read the password from the first line of stdin")
	return cmd
}

// promptPassword asks twice on the terminal without echo.
func promptPassword(w io.Writer) ([]byte, error) {
	fmt.Fprint(w, "Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}

	fmt.Fprint(w, "Repeat password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		shared.WipeByteArray(first)
		return nil, err
	}
	defer shared.WipeByteArray(second)

	if string(first) != string(second) {
		shared.WipeByteArray(first)
		return nil, errors.New("passwords do not match")
	}
	return first, nil
}

func readPasswordLine(r io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}
