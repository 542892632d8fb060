package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"albumsync/internal/auth"
	"albumsync/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath   string
		overwrite    bool
		clientSecret string
		libraryKind  string
		libraryPath  string
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a configuration file",
		Long:        "Write a commented configuration file. --client-secret, --kind and --library fill in the matching settings; the rest keep their defaults.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTargetPath(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			opts, err := initSampleOptions(clientSecret, libraryKind, libraryPath)
			if err != nil {
				return err
			}
			if err := config.CreateSampleWith(target, opts); err != nil {
				return fmt.Errorf("create config: %w", err)
			}
			cfg, _, _, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("written config does not load: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintf(out, "Library: %s\n", describeLibrary(cfg))
			if opts.ClientSecretFile == "" {
				fmt.Fprintln(out, "Set auth.client_secret_file to your OAuth desktop client, then run 'albumsync doctor'.")
				return nil
			}
			fmt.Fprintf(out, "OAuth client: %s\n", opts.ClientSecretFile)
			fmt.Fprintln(out, "Run 'albumsync auth login' to grant access.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth desktop client JSON downloaded from the Google Cloud console")
	cmd.Flags().StringVar(&libraryKind, "kind", "", "Library kind: photos or directory")
	cmd.Flags().StringVar(&libraryPath, "library", "", "Library location (Photos library bundle or shared-collections directory)")
	return cmd
}

func initTargetPath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		target, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return target, nil
	}
	target, err := config.ExpandPath(raw)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return target, nil
}

// initSampleOptions validates the init flags before anything is written.
func initSampleOptions(clientSecret, kind, libraryPath string) (config.SampleOptions, error) {
	var opts config.SampleOptions

	if kind = strings.ToLower(strings.TrimSpace(kind)); kind != "" {
		if kind != config.LibraryKindPhotos && kind != config.LibraryKindDirectory {
			return opts, fmt.Errorf("--kind must be %q or %q, got %q", config.LibraryKindPhotos, config.LibraryKindDirectory, kind)
		}
		opts.LibraryKind = kind
	}

	if strings.TrimSpace(libraryPath) != "" {
		expanded, err := config.ExpandPath(libraryPath)
		if err != nil {
			return opts, fmt.Errorf("resolve library path: %w", err)
		}
		if _, err := os.Stat(expanded); err != nil {
			return opts, fmt.Errorf("library %s: %w", expanded, err)
		}
		opts.LibraryPath = expanded
	} else if opts.LibraryKind == config.LibraryKindDirectory {
		return opts, fmt.Errorf("--library is required with --kind %s", config.LibraryKindDirectory)
	}

	if strings.TrimSpace(clientSecret) != "" {
		expanded, err := config.ExpandPath(clientSecret)
		if err != nil {
			return opts, fmt.Errorf("resolve client secret path: %w", err)
		}
		candidate := config.Default()
		candidate.Auth.ClientSecretFile = expanded
		if _, err := auth.OAuthConfig(&candidate); err != nil {
			return opts, err
		}
		opts.ClientSecretFile = expanded
	}
	return opts, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if _, err := os.Stat(ctx.configPath); err != nil {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Library: %s\n", describeLibrary(cfg))
			if !cfg.HasOAuthClient() {
				fmt.Fprintln(out, "Warning: no OAuth client configured; sync will fail until auth.client_secret_file is set")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func describeLibrary(cfg *config.Config) string {
	if cfg.Library.Path == "" {
		return cfg.Library.Kind + " (system library)"
	}
	return fmt.Sprintf("%s at %s", cfg.Library.Kind, cfg.Library.Path)
}
