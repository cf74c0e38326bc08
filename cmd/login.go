package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/implicit-session/internal/app"
)

//nolint:gochecknoglobals // Cobra command requires a global definition for proper command-line parsing and execution.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in through the browser and save the session",
	Long: `Opens a browser window at the provider's authorization page.

The login process:
1. Browser opens at the configured endpoint.auth_url
2. Log in the way the provider asks you to (password, SMS code, SSO and so on)
3. The provider redirects the browser to the configured redirect_url
4. The session is saved and the browser closes

Nothing is sent to the application behind redirect_url: the session is captured
as soon as the browser starts the request.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		app.ExecuteLoginCommand(cmd.Context(), appConfig)
	},
}

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	loginCmdFlags := loginCmd.Flags()

	loginCmdFlags.String(
		"user-agent",
		"",
		"User-Agent header the browser sends.")

	loginCmdFlags.String(
		"proxy",
		"",
		"HTTP proxy in host:port form, certificate errors are ignored when set.")

	loginCmdFlags.String(
		"browser",
		"",
		"path to a Chrome or Chromium binary (downloaded if none is found).")

	loginCmdFlags.String(
		"timeout",
		"",
		"give up if the redirect does not happen in time, for example: 90s, 5m (0 waits forever).")

	loginCmdFlags.String(
		"prompt",
		"",
		"value of the prompt parameter, for example: login, consent, select_account.")

	loginCmdFlags.Bool(
		"headless",
		false,
		"run the browser without a window.")

	loginCmdFlags.Bool(
		"no-local-storage",
		false,
		"do not save local storage entries.")

	rootCmd.AddCommand(loginCmd)
}
