package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/implicit-session/internal/app"
)

var (
	//nolint:gochecknoglobals // Cobra command requires a global definition for proper command-line parsing and execution.
	sessionCmd = &cobra.Command{
		Use:   "session",
		Short: "Saved session commands",
		Long: `Inspect and reuse a session saved by 'login'.

Use 'session show' to print what was captured and 'session probe' to check
whether the session is still accepted by a site.`,
		PersistentPreRun: initSessionConfig,
	}

	//nolint:gochecknoglobals // Cobra command requires a global definition for proper command-line parsing and execution.
	sessionShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the saved session",
		Long: `Prints the saved session.

The summary format masks cookie values and the access token.
The json and yaml formats print the whole session, secrets included.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			format, _ := cmd.Flags().GetString("format")

			app.ExecuteSessionShowCommand(cmd.Context(), appConfig, format)
		},
	}

	//nolint:gochecknoglobals // Cobra command requires a global definition for proper command-line parsing and execution.
	sessionProbeCmd = &cobra.Command{
		Use:   "probe {url}",
		Short: "Request a URL with the saved session",
		Long: `Sends one GET request carrying the saved cookies and reports the response.

Example:
implicit-session session probe https://app.example/api/me --bearer`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			bearer, _ := cmd.Flags().GetBool("bearer")

			app.ExecuteSessionProbeCommand(cmd.Context(), appConfig, args[0], bearer)
		},
	}
)

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	sessionShowCmd.Flags().StringP(
		"format",
		"f",
		app.FormatSummary,
		"output format: summary, json or yaml.")

	sessionProbeCmd.Flags().Bool(
		"bearer",
		false,
		"also send the saved access token in the Authorization header.")

	sessionCmd.AddCommand(sessionShowCmd, sessionProbeCmd)
	rootCmd.AddCommand(sessionCmd)
}
