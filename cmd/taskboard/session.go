package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard/client"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Debug().Str("email", email).Str("service_url", cfg.APIURL).Msg("signing in")

			c, err := openClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			ctx, cancel := commandContext(cmd)
			defer cancel()

			start := time.Now()
			snap, err := c.Login(ctx, email, password)
			elapsed := time.Since(start)
			if err != nil {
				log.Error().Err(err).Str("email", email).Dur("elapsed", elapsed).Msg("login failed")
				return fmt.Errorf("login failed: %s", client.UserMessage(err))
			}
			if !snap.Authenticated() {
				return fmt.Errorf("login failed: session could not be resolved")
			}
			log.Debug().Int64("user_id", snap.UserID()).Dur("elapsed", elapsed).Msg("login completed")

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", displayName(snap), snap.Identity.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the persisted session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			if err := c.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and what their role may do",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			c, snap, err := signedIn(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if asJSON {
				return printJSON(cmd.OutOrStdout(), struct {
					client.Identity
					Degraded     bool     `json:"degraded"`
					Capabilities []string `json:"capabilities"`
				}{*snap.Identity, snap.Degraded, capabilityNames(c.Capabilities())})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (user %d, %s)\n", displayName(snap), snap.UserID(), snap.Identity.Role)
			if snap.Degraded {
				fmt.Fprintln(out, "Profile details unavailable for this role")
			}
			fmt.Fprintf(out, "Capabilities: %s\n", c.Capabilities())
			return nil
		},
	}
}

func newRegisterCmd() *cobra.Command {
	var email, name, password, role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account (the current session is kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := client.ParseRole(role)
			if err != nil {
				return err
			}
			c, err := openClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if _, err := c.Register(ctx, client.RegisterRequest{Email: email, Name: name, Password: password, Role: r}); err != nil {
				return fmt.Errorf("registration failed: %s", client.UserMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as %s\n", email, r)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (required)")
	cmd.Flags().StringVar(&role, "role", string(client.RoleUser), "Role: admin, manager or user")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func displayName(snap client.SessionSnapshot) string {
	if snap.Identity.Email != "" {
		return snap.Identity.Name + " <" + snap.Identity.Email + ">"
	}
	return snap.Identity.Name
}

func capabilityNames(set client.CapabilitySet) []string {
	caps := set.List()
	out := make([]string, 0, len(caps))
	for _, c := range caps {
		out = append(out, c.String())
	}
	return out
}
