package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newSignupCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "signup USERNAME [PASSWORD]",
		Short: "Create an account and store its session",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.authenticate(cmd, args, true)
		},
	}
}

func newLoginCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "login USERNAME [PASSWORD]",
		Short: "Log in and store the session",
		Long: `Log in and store the session token. The password is read from the
terminal (or the first line of stdin) when not given as an argument.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.authenticate(cmd, args, false)
		},
	}
}

func (rt *runtime) authenticate(cmd *cobra.Command, args []string, signup bool) error {
	username := strings.TrimSpace(args[0])
	password, err := passwordArg(cmd, args)
	if err != nil {
		return err
	}

	call := rt.api.Login
	if signup {
		call = rt.api.Signup
	}
	token, err := call(cmd.Context(), username, password)
	if err != nil {
		return err
	}
	if err := rt.session.SetCredential(token); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", username)
	return nil
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Erase the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.session.ClearCredential(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newWhoamiCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if !rt.session.HasCredential() {
				fmt.Fprintln(out, "not logged in")
				return nil
			}
			claims, ok := rt.session.Claims()
			if !ok {
				fmt.Fprintln(out, "logged in (opaque token)")
				return nil
			}
			fmt.Fprintf(out, "logged in as %s\n", claims.Subject)
			if !claims.ExpiresAt.IsZero() {
				state := "expires"
				if rt.session.Expired(time.Now()) {
					state = "expired"
				}
				fmt.Fprintf(out, "%s %s\n", state, claims.ExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

// passwordArg returns args[1], or prompts for the password.
func passwordArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 2 {
		return args[1], nil
	}
	return readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
}

// readPassword reads without echo from a terminal, otherwise one line of in.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("cli: read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("cli: read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("cli: password is required")
	}
	return line, nil
}
