package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/markb/spaauth/internal/config"
	"github.com/markb/spaauth/internal/log"
)

// Version information set via ldflags at build time
var (
	Version   = "dev"
	BuildTime = ""
	GitCommit = ""
)

var rootCmd = &cobra.Command{
	Use:   "spaauth",
	Short: "Delegated login, logout and session-cookie API calls for single-page apps",
	Long: `Redirects users to the identity provider to sign in and out, and calls the
backing API's /graph/me endpoint with the session cookie.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Close()
	},
}

func init() {
	rootCmd.SetVersionTemplate("spaauth version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	addSiteFlags(flags)

	flags.String("log-mode", "console", "Log output: console or file")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.String("log-file", "", "Log file path when --log-mode=file (default: spaauth.log)")
}

func addSiteFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to a JSON config file")
	flags.String("base-uri", "", "API Management base URI, e.g. https://api.codeshed.dev")
	flags.String("client-id", "", "Application (client) ID registered with the identity provider")
	flags.String("tenant-id", "", "Directory (tenant) ID")
	flags.String("authority", "", "Identity provider host and tenant path (default: login.microsoftonline.com/<tenant-id>)")
	flags.String("scope", "", "Scope requested for the access token (default: "+config.DefaultScope+")")
}

func initLogging(cmd *cobra.Command, args []string) error {
	cfg := log.DefaultConfig()
	cfg.Mode, _ = cmd.Flags().GetString("log-mode")
	cfg.Level, _ = cmd.Flags().GetString("log-level")
	cfg.Format, _ = cmd.Flags().GetString("log-format")
	if path, _ := cmd.Flags().GetString("log-file"); path != "" {
		cfg.FilePath = path
	}
	if err := log.Init(cfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// buildSiteConfig assembles the site configuration.
// Priority: CLI flags > environment variables > config file > defaults
func buildSiteConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.LoadEnv()

	for flag, dst := range map[string]*string{
		"base-uri":  &cfg.BaseURI,
		"client-id": &cfg.ClientID,
		"tenant-id": &cfg.TenantID,
		"authority": &cfg.Authority,
		"scope":     &cfg.Scope,
	} {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			*dst = v
		}
	}

	log.Debug("site configuration", "config", cfg.String())
	return cfg, nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
