package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"financeflow/internal/auth"
	"financeflow/internal/cli"
)

const minSecretLength = 16

func (a *app) tokenCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print an API bearer token for --user",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := a.loadProfile(); err != nil {
				return err
			}
			if secret == "" {
				secret = a.env.getenv("JWT_SECRET")
			}
			if secret == "" {
				secret = a.profile.JWTSecret
			}
			if len(secret) < minSecretLength {
				return errors.New("a JWT secret of at least 16 characters is required (--secret, JWT_SECRET or jwt_secret in config)")
			}
			ttl, err := a.profile.TTL()
			if err != nil {
				return err
			}
			token, err := auth.NewTokenService(secret, ttl).GenerateToken(a.profile.User)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.env.out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "Signing secret (default: $JWT_SECRET, then config)")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := a.loadProfile(); err != nil {
				return err
			}
			fmt.Fprintf(a.env.out, "  Config file: %s\n", a.flagConfig)
			fmt.Fprintf(a.env.out, "  Database:    %s\n", a.profile.DBPath)
			fmt.Fprintf(a.env.out, "  User:        %s\n", a.profile.User)
			if a.profile.JWTSecret != "" {
				fmt.Fprintln(a.env.out, "  JWT secret:  configured")
			} else {
				fmt.Fprintln(a.env.out, "  JWT secret:  not configured")
			}
			fmt.Fprintf(a.env.out, "  Token TTL:   %s\n", a.profile.TokenTTL)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Write --db and --user to the config file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := a.loadProfile(); err != nil {
				return err
			}
			if err := cli.SaveProfile(a.flagConfig, a.profile); err != nil {
				return err
			}
			fmt.Fprintf(a.env.out, "  Saved %s\n", a.flagConfig)
			return nil
		},
	})
	return cmd
}
