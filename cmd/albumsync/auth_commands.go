package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage remote service credentials",
	}
	authCmd.AddCommand(newAuthLoginCommand(ctx))
	authCmd.AddCommand(newAuthLogoutCommand(ctx))
	return authCmd
}

func newAuthLoginCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Discard cached credentials and run the consent flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			provider, err := newProvider(cfg, logger, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := provider.Reauthenticate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credentials saved to %s\n", cfg.Auth.TokenFile)
			return nil
		},
	}
}

func newAuthLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove cached credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			provider, err := newProvider(cfg, logger, nil)
			if err != nil {
				return err
			}
			if err := provider.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cached credentials removed")
			return nil
		},
	}
}
