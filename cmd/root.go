package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oshokin/implicit-session/internal/config"
	"github.com/oshokin/implicit-session/internal/constants"
	"github.com/oshokin/implicit-session/internal/logger"
	"github.com/oshokin/implicit-session/internal/version"
)

var (
	//nolint:gochecknoglobals // It is required for configuration initialization before the application starts.
	configFilenameFromFlag string

	//nolint:gochecknoglobals,lll // It is initialized once during the application's startup and shared across the command execution logic.
	appConfig *config.Config

	//nolint:gochecknoglobals,lll // Cobra command requires a global definition for proper command-line parsing and execution.
	rootCmd = &cobra.Command{
		Use:   "implicit-session",
		Short: "Log in through an OAuth2 implicit flow and keep the browser session.",
		Long: `Implicit Session opens the identity provider's authorization page in a browser,
lets you log in as usual and saves the session the moment the provider redirects
back to the application:
- Cookies of the authorization page
- Local storage entries
- The access token from the redirect, if the provider sent one

The saved session can be inspected and replayed later without logging in again.`,
		Version:          version.Full(),
		PersistentPreRun: initConfig,
	}
)

// Execute executes the root command.
func Execute() {
	signals := []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)

	defer func() {
		_ = logger.Logger().Sync()
	}()

	defer stop()

	err := executeUntilDone(ctx, stop, rootCmd)
	cobra.CheckErr(err)
}

// executeUntilDone runs command under ctx and returns once it has finished, even after ctx is done.
// release is called when ctx is done so that a repeated signal terminates the process.
func executeUntilDone(ctx context.Context, release func(), command *cobra.Command) error {
	done := make(chan error, 1)

	go func() {
		done <- command.ExecuteContext(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		release()
	}

	return <-done
}

//nolint:gochecknoinits // Cobra requires the init function to set up flags before the command is executed.
func init() {
	rootCmdFlags := rootCmd.PersistentFlags()

	rootCmdFlags.StringVarP(
		&configFilenameFromFlag,
		"config",
		"c",
		"",
		fmt.Sprintf("path to the configuration file (default is '%s')",
			constants.DefaultConfigFilename))

	rootCmdFlags.StringP(
		"session",
		"s",
		"",
		fmt.Sprintf("path to the session file (default is '%s')",
			constants.DefaultSessionFilename))

	rootCmdFlags.String(
		"log-level",
		"",
		"logging level: debug, info, warn or error.")
}

func initConfig(cmd *cobra.Command, _ []string) {
	loadConfig(cmd, config.ValidateConfig)
}

// initSessionConfig loads the configuration for commands that only read the saved session.
func initSessionConfig(cmd *cobra.Command, _ []string) {
	loadConfig(cmd, config.ValidateSessionConfig)
}

func loadConfig(cmd *cobra.Command, validate func(*config.Config) error) {
	var err error

	appConfig, err = config.LoadConfig(configFilenameFromFlag)
	if err != nil {
		logger.Fatalf(cmd.Context(), "Failed to load configuration: %v", err)
	}

	if err = bindFlagsToConfig(cmd.Flags(), appConfig, validate); err != nil {
		logger.Fatalf(cmd.Context(), "Failed to parse flags: %v", err)
	}

	logger.SetLevel(appConfig.ParsedLogLevel)
}

// bindFlagsToConfig copies explicitly set flags over the file values and validates the result.
//
//nolint:cyclop // One branch per flag.
func bindFlagsToConfig(flags *pflag.FlagSet, cfg *config.Config, validate func(*config.Config) error) error {
	if flag := flags.Lookup("session"); flag != nil && flag.Changed {
		cfg.SessionFile, _ = flags.GetString("session")
	}

	if flag := flags.Lookup("log-level"); flag != nil && flag.Changed {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	if flag := flags.Lookup("user-agent"); flag != nil && flag.Changed {
		cfg.UserAgent, _ = flags.GetString("user-agent")
	}

	if flag := flags.Lookup("proxy"); flag != nil && flag.Changed {
		cfg.Proxy, _ = flags.GetString("proxy")
	}

	if flag := flags.Lookup("browser"); flag != nil && flag.Changed {
		cfg.BrowserPath, _ = flags.GetString("browser")
	}

	if flag := flags.Lookup("timeout"); flag != nil && flag.Changed {
		cfg.Timeout, _ = flags.GetString("timeout")
	}

	if flag := flags.Lookup("prompt"); flag != nil && flag.Changed {
		cfg.Prompt, _ = flags.GetString("prompt")
	}

	if flag := flags.Lookup("headless"); flag != nil && flag.Changed {
		cfg.Headless, _ = flags.GetBool("headless")
	}

	if flag := flags.Lookup("no-local-storage"); flag != nil && flag.Changed {
		disabled, _ := flags.GetBool("no-local-storage")
		cfg.CaptureLocalStorage = !disabled
	}

	return validate(cfg)
}
