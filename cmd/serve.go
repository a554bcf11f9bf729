package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/markb/spaauth/internal/log"
	"github.com/markb/spaauth/internal/observability"
	"github.com/markb/spaauth/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the host page with login, logout and API call routes",
	Long: `Starts the HTTP server that hosts the single-page application shell:
  /        host page with the result element
  /login   redirect to the identity provider's authorize endpoint
  /logout  redirect to the identity provider's end-session endpoint
  /call    call <base-uri>/graph/me with the browser's cookies
  /api/me  the same call as JSON

/call and /api/me send the browser's cookies on to <base-uri>. By default every
cookie is forwarded, which assumes the host page and the API share a site. Use
--forward-cookie to name the session cookies when they do not.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		host, _ := cmd.Flags().GetString("host")
		origins, _ := cmd.Flags().GetStringSlice("cors-origin")
		httpsDomain, _ := cmd.Flags().GetString("https")
		certDir, _ := cmd.Flags().GetString("cert-dir")
		httpAddr, _ := cmd.Flags().GetString("http-addr")
		forward, _ := cmd.Flags().GetStringSlice("forward-cookie")

		site, err := buildSiteConfig(cmd)
		if err != nil {
			return err
		}
		if err := site.Validate(); err != nil {
			log.Warn("incomplete site configuration; redirects and API calls will use empty values", "error", err)
		}

		observability.Version = Version
		tel, cleanup, err := observability.Init(cmd.Context(), buildOTelConfig(cmd))
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer cleanup()

		srv, err := server.New(server.ServerConfig{
			Site:           site,
			AllowedOrigins: origins,
			Telemetry:      tel,
			ForwardCookies: forward,
		})
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			if httpsDomain != "" {
				log.Info("starting spaauth", "https", httpsDomain, "http_addr", httpAddr, "site", site.String())
				errCh <- srv.ListenAndServeTLS(server.HTTPSConfig{
					Domain:   httpsDomain,
					CertDir:  certDir,
					HTTPAddr: httpAddr,
				})
				return
			}
			addr := fmt.Sprintf("%s:%d", host, port)
			log.Info("starting spaauth", "addr", addr, "site", site.String())
			errCh <- srv.ListenAndServe(addr)
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-cmd.Context().Done():
		}

		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

// buildOTelConfig creates an observability.Config from environment variables
// and CLI flags. Priority: CLI flags > environment variables > defaults
func buildOTelConfig(cmd *cobra.Command) *observability.Config {
	cfg := observability.NewConfig()

	if exporter := os.Getenv("SPAAUTH_OTEL_EXPORTER"); exporter != "" {
		cfg.Exporter = exporter
	}
	if endpoint := os.Getenv("SPAAUTH_OTEL_ENDPOINT"); endpoint != "" {
		cfg.Endpoint = endpoint
	}

	if exporter, _ := cmd.Flags().GetString("otel-exporter"); exporter != "" {
		cfg.Exporter = exporter
	}
	if endpoint, _ := cmd.Flags().GetString("otel-endpoint"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if cmd.Flags().Changed("otel-sample-rate") {
		cfg.SampleRate, _ = cmd.Flags().GetFloat64("otel-sample-rate")
	}
	cfg.TracesEnabled, _ = cmd.Flags().GetBool("otel-traces")
	cfg.MetricsEnabled, _ = cmd.Flags().GetBool("otel-metrics")

	return cfg
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().StringSlice("cors-origin", nil, "Origins allowed to call /api with credentials (repeatable)")
	serveCmd.Flags().StringSlice("forward-cookie", nil, "Cookie names forwarded to the API (repeatable; default: all)")
	serveCmd.Flags().String("https", "", "Serve HTTPS with a Let's Encrypt certificate for this domain")
	serveCmd.Flags().String("cert-dir", "certs", "Certificate cache directory for --https")
	serveCmd.Flags().String("http-addr", ":80", "HTTP listener for ACME challenges and redirects with --https")
	serveCmd.Flags().String("otel-exporter", "", "OpenTelemetry exporter: none, stdout, or otlp (default: none)")
	serveCmd.Flags().String("otel-endpoint", "", "OTLP gRPC endpoint (default: localhost:4317)")
	serveCmd.Flags().Float64("otel-sample-rate", 0.1, "Trace sampling rate (0.0 to 1.0)")
	serveCmd.Flags().Bool("otel-traces", true, "Export traces when an exporter is set")
	serveCmd.Flags().Bool("otel-metrics", true, "Export metrics when an exporter is set")
}
