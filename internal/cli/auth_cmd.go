package cli

import (
	"fmt"
	"strings"

	"github.com/meetai/meetai/internal/auth"
	"github.com/spf13/cobra"
)

func newSignUpCmd() *cobra.Command {
	var in auth.SignUpInput

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			if in.Password, err = readSecret(cmd, in.Password, "Password"); err != nil {
				return err
			}
			if in.ConfirmPassword, err = readSecret(cmd, in.ConfirmPassword, "Confirm password"); err != nil {
				return err
			}
			if st := auth.PasswordStrength(in.Password); st.Label != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Password strength: %s\n", st.Label)
			}
			if err := in.Validate(s.cfg.Auth.MinPasswordLength); err != nil {
				return err
			}

			res, err := s.api.SignUp(cmd.Context(), in)
			if err != nil {
				return err
			}
			if err := storeToken(s.server, res.Token); err != nil {
				log.Warn().Err(err).Msg("could not save session to keychain")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed up as %s <%s>\n", res.User.Name, res.User.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "your name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (prompted when empty)")
	cmd.Flags().StringVar(&in.ConfirmPassword, "confirm-password", "", "password confirmation (prompted when empty)")
	return cmd
}

func newSignInCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in to an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			if password, err = readSecret(cmd, password, "Password"); err != nil {
				return err
			}
			res, err := s.api.SignIn(cmd.Context(), strings.TrimSpace(email), password)
			if err != nil {
				return err
			}
			if err := storeToken(s.server, res.Token); err != nil {
				log.Warn().Err(err).Msg("could not save session to keychain")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", res.User.Name, res.User.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSignOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			if s.api.Token() != "" {
				if err := s.api.SignOut(cmd.Context()); err != nil {
					log.Warn().Err(err).Msg("server sign-out failed")
				}
			}
			if err := deleteToken(s.server); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			user, err := s.api.Session(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			field(out, "Name", user.Name)
			field(out, "Email", user.Email)
			field(out, "ID", user.ID)
			field(out, "Server", s.server)
			return nil
		},
	}
}

func newPasswordStrengthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "password-strength [password]",
		Short: "Grade a password the way the sign-up form does",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw := ""
			if len(args) == 1 {
				pw = args[0]
			}
			pw, err := readSecret(cmd, pw, "Password")
			if err != nil {
				return err
			}
			st := auth.PasswordStrength(pw)
			label := st.Label
			if label == "" {
				label = "Empty"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d/5)\n", label, st.Score)
			return nil
		},
	}
}
