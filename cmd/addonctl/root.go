package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
)

var (
	// Global flags
	simRoot      string
	settingsPath string
	locksPath    string
	verbose      bool
	yesFlag      bool
)

var rootCmd = &cobra.Command{
	Use:   "addonctl",
	Short: "A flight-simulator third-party addon installer",
	Long: `addonctl installs, updates, and organizes third-party flight-simulator
addons: aircraft, scenery, plugins, liveries, scripts, and navdata.

It analyzes a loose folder or archive, plans a conflict-aware
destination and commit strategy, then stages and atomically commits
the result, keeping the scenery_packs.ini ordering in sync along the
way.`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&simRoot, "sim-root", "", "flight simulator installation root (required)")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "config", "addonctl.toml", "path to addonctl.toml")
	rootCmd.PersistentFlags().StringVar(&locksPath, "locks", "locks.yaml", "path to locks.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "auto-confirm all prompts")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(sceneryCmd)
	rootCmd.AddCommand(locksCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the message, path and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var addonErr *addonerr.Error
	if errors.As(err, &addonErr) {
		msg := fmt.Sprintf("[%s] %s", addonErr.Kind, addonErr.Message)
		if addonErr.Path != "" {
			msg += fmt.Sprintf(" (%s)", addonErr.Path)
		}
		if addonErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", addonErr.Suggestion)
		}
		if verbose && addonErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", addonErr.Underlying)
		}
		return msg
	}
	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// requireSimRoot validates the global --sim-root flag is set.
func requireSimRoot() error {
	if simRoot == "" {
		return addonerr.New(addonerr.BadInputPath, "--sim-root is required")
	}
	return nil
}

// cmdContext returns cmd's context, falling back to context.Background
// when cobra hasn't been driven through ExecuteContext.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
