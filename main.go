package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	os.Exit(code)
}

// execute runs the root command and maps its result to a process exit code.
func execute(ctx context.Context, args []string, in io.Reader, out io.Writer) int {
	cmd := newRootCmd(ctx, in, out)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(out)
	return exitCode(cmd.Execute(), out)
}

func exitCode(err error, out io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errMissingClientSecret):
		// remediation was already printed by the run
		return 1
	default:
		fmt.Fprintf(out, "❌ %v\n", err)
		return 1
	}
}

func newRootCmd(ctx context.Context, in io.Reader, out io.Writer) *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:   "schedule-sync",
		Short: "Copy your Kronos work schedule into Google Calendar",
		Long: `schedule-sync logs into the Kronos scheduling portal in Chrome, reads the
shifts from your schedule page and creates one Google Calendar event per shift.

Configuration is read from the environment (or a .env file):
  KRONOS_USERNAME, KRONOS_PASSWORD, KRONOS_URL, TIMEZONE, CALENDAR_ID,
  GOOGLE_CREDENTIALS_FILE, GOOGLE_TOKEN_FILE, CHROME_PATH, HEADLESS, DEBUG`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := Initialize(in, out, flags)
			if err != nil {
				return err
			}
			return a.run(ctx, a.defaultStages(in))
		},
	}

	cmd.Flags().StringVar(&flags.envFile, "env-file", ".env", "Path to a .env file to load")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the events instead of creating them")
	cmd.Flags().BoolVar(&flags.headless, "headless", false, "Run Chrome without a window")
	cmd.Flags().BoolVarP(&flags.debug, "debug", "d", false, "Debug logging")

	return cmd
}
