package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/markb/spaauth/internal/graph"
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Call the /graph/me endpoint with the session cookie",
	Long: `Issues one GET to <base-uri>/graph/me with the given cookies and prints the
outcome: the pretty-printed JSON body, "User is not authenticated." on 401,
or the error text when the request fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildSiteConfig(cmd)
		if err != nil {
			return err
		}

		raw, _ := cmd.Flags().GetStringArray("cookie")
		cookies, err := parseCookies(raw)
		if err != nil {
			return err
		}

		caller, err := graph.NewCaller(cfg, graph.WithCookies(cookies...))
		if err != nil {
			return err
		}

		caller.Call(cmd.Context(), &graph.WriterDisplay{W: cmd.OutOrStdout()})
		return nil
	},
}

func parseCookies(raw []string) ([]*http.Cookie, error) {
	var cookies []*http.Cookie
	for _, r := range raw {
		parsed, err := http.ParseCookie(r)
		if err != nil {
			return nil, fmt.Errorf("invalid --cookie %q: %w", r, err)
		}
		cookies = append(cookies, parsed...)
	}
	return cookies, nil
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().StringArray("cookie", nil, "Session cookie as name=value (repeatable)")
}
