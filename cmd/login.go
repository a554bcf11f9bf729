package cmd

import (
	"github.com/spf13/cobra"

	"github.com/markb/spaauth/internal/redirect"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Navigate to the identity provider's sign-in page",
	Long: `Prints the authorize URL that starts the authorization code flow, or opens it
in the default browser with --open. The provider returns the code to
<base-uri>/auth/callback.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildSiteConfig(cmd)
		if err != nil {
			return err
		}
		redirect.New(cfg).Login(navigator(cmd))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Navigate to the identity provider's sign-out page",
	Long: `Prints the end-session URL, or opens it with --open. After signing out the
provider returns to <base-uri>/auth/logout, which clears the session cookie.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildSiteConfig(cmd)
		if err != nil {
			return err
		}
		redirect.New(cfg).Logout(navigator(cmd))
		return nil
	},
}

func navigator(cmd *cobra.Command) redirect.Navigator {
	if open, _ := cmd.Flags().GetBool("open"); open {
		return redirect.BrowserNavigator{Fallback: cmd.OutOrStdout()}
	}
	return redirect.WriterNavigator{W: cmd.OutOrStdout()}
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	loginCmd.Flags().Bool("open", false, "Open the URL in the default browser")
	logoutCmd.Flags().Bool("open", false, "Open the URL in the default browser")
}
