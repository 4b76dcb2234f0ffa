package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/addonctl/internal/adapters/archive"
	"github.com/felixgeelhaar/addonctl/internal/adapters/filesystem"
	"github.com/felixgeelhaar/addonctl/internal/adapters/logging"
	"github.com/felixgeelhaar/addonctl/internal/domain/addon"
	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/domain/analyzer"
	"github.com/felixgeelhaar/addonctl/internal/domain/archivechain"
	"github.com/felixgeelhaar/addonctl/internal/domain/events"
	"github.com/felixgeelhaar/addonctl/internal/domain/install"
	"github.com/felixgeelhaar/addonctl/internal/domain/installconfig"
	"github.com/felixgeelhaar/addonctl/internal/domain/planner"
	"github.com/felixgeelhaar/addonctl/internal/domain/scenery/index"
	"github.com/felixgeelhaar/addonctl/internal/domain/scenery/order"
	"github.com/felixgeelhaar/addonctl/internal/ports"
	"github.com/felixgeelhaar/addonctl/internal/tui"
)

var (
	installPassword       string
	installAllowOverwrite bool
	installQuiet          bool
)

var installCmd = &cobra.Command{
	Use:   "install [paths...]",
	Short: "Analyze, plan, and install one or more addon sources",
	Long: `install walks each given path — a loose directory or a (possibly
nested) archive — classifies every addon root it finds, resolves a
conflict-aware destination and commit strategy for each, then stages
and atomically commits the whole batch.

Pass -y to skip the plan-review prompt and commit immediately.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installPassword, "password", "", "password to try against every encrypted archive entry")
	installCmd.Flags().BoolVar(&installAllowOverwrite, "allow-overwrite", false, "permit the overwrite strategy for locked-free conflicts")
	installCmd.Flags().BoolVar(&installQuiet, "quiet", false, "suppress the per-task progress bars, printing only a summary")
}

func runInstall(cmd *cobra.Command, args []string) error {
	if err := requireSimRoot(); err != nil {
		return err
	}
	ctx := cmdContext(cmd)

	logger := logging.NewConsoleLogger(logging.WithOutput(os.Stderr))
	fs := filesystem.NewRealFileSystem()
	openers := archive.NewRegistry()

	settings, err := installconfig.LoadSettings(settingsPath)
	if err != nil {
		return err
	}
	locks, err := installconfig.LoadLocks(locksPath)
	if err != nil {
		return err
	}

	scratchDir, err := os.MkdirTemp("", "addonctl-install-*")
	if err != nil {
		return addonerr.New(addonerr.Internal, "failed to create scratch directory").Wrap(err)
	}
	defer os.RemoveAll(scratchDir)

	cursor := archivechain.NewCursor(fs, openers, settings.MemoryThresholdMiB<<20, logger)
	an := analyzer.New(fs, cursor, logger, analyzer.Options{SimRoot: simRoot})

	passwords := archivechain.NewPasswordMap()
	if installPassword != "" {
		passwords = passwords.WithUnified(installPassword)
	}

	tasks, err := an.AnalyzeInputs(ctx, args, passwords)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no recognizable addons found in the given paths")
		return nil
	}

	plnr := planner.New(fs, planner.Options{
		SimRoot:        simRoot,
		Locks:          installconfig.Paths(locks),
		ConfigGlobs:    settings.BackupConfigGlobs,
		AllowOverwrite: installAllowOverwrite,
	})
	plnr.Plan(tasks)

	printPlan(cmd, tasks)

	if !confirmInstall(cmd) {
		return addonerr.New(addonerr.Cancelled, "install aborted before commit")
	}

	bus := events.NewBus()
	control := events.NewControl()
	engine := install.NewEngine(fs, openers, scratchDir, bus, logger, install.Options{
		Workers:              settings.ParallelWorkers,
		AllowOverwrite:       installAllowOverwrite,
		MemoryThresholdBytes: settings.MemoryThresholdMiB << 20,
	})

	var results []installResult
	progressCtx, stopProgress := context.WithCancel(ctx)
	defer stopProgress()

	names := make(map[string]string, len(tasks))
	for _, t := range tasks {
		names[t.ID] = t.DisplayName
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stopProgress()
		raw := engine.Run(ctx, tasks, control)
		results = make([]installResult, len(raw))
		for i, r := range raw {
			results[i] = installResult{taskID: r.TaskID, state: string(r.State), err: r.Err}
		}
	}()

	progressErr := tui.RunInstallProgress(progressCtx, bus, control, tui.InstallProgressOptions{
		Quiet:       installQuiet,
		ShowDetails: true,
		TaskNames:   names,
	})
	<-done
	if progressErr != nil && ctx.Err() == nil {
		logger.Warn(ctx, "progress renderer exited with an error", ports.F("error", progressErr))
	}

	printResults(cmd, results)

	if settings.AutoSortScenery {
		if err := resortScenery(ctx, fs, logger, settings); err != nil {
			logger.Warn(ctx, "scenery re-sort after install failed", ports.F("error", err))
		}
	}

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			printError(r.err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d install task(s) did not complete", failed)
	}
	return nil
}

type installResult struct {
	taskID string
	state  string
	err    error
}

func printPlan(cmd *cobra.Command, tasks []*addon.InstallTask) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found %d addon(s):\n", len(tasks))
	for _, t := range tasks {
		flag := ""
		if t.TargetPathConflict {
			flag = " [target path conflict]"
		}
		fmt.Fprintf(out, "  %-14s %-30s -> %s (%s)%s\n", t.Kind, t.DisplayName, t.TargetPath, t.Strategy, flag)
		if t.SizeWarning != nil && !t.SizeWarning.Confirmed {
			fmt.Fprintf(out, "    WARNING: %s (declared %d bytes, ratio %.1f) — unconfirmed, will not run\n", t.SizeWarning.Kind, t.SizeWarning.Declared, t.SizeWarning.Ratio)
		}
	}
}

func confirmInstall(cmd *cobra.Command) bool {
	if yesFlag {
		return true
	}
	fmt.Fprint(cmd.OutOrStdout(), "Proceed with install? [y/N] ")
	var reply string
	_, _ = fmt.Fscanln(cmd.InOrStdin(), &reply)
	return reply == "y" || reply == "Y" || reply == "yes"
}

func printResults(cmd *cobra.Command, results []installResult) {
	out := cmd.OutOrStdout()
	for _, r := range results {
		line := fmt.Sprintf("  %s: %s", r.taskID, r.state)
		if r.err != nil {
			line += fmt.Sprintf(" (%s)", r.err)
		}
		fmt.Fprintln(out, line)
	}
}

func resortScenery(ctx context.Context, fs ports.FileSystem, logger ports.Logger, settings installconfig.Settings) error {
	sceneryDir := simRoot + "/Custom Scenery"
	indexPath := sceneryDir + "/scenery_index.json"
	manifestPath := sceneryDir + "/scenery_packs.ini"

	store := index.NewStore(fs, logger, indexPath, sceneryDir, settings.ParallelWorkers)
	if err := store.Load(ctx); err != nil {
		return err
	}
	if err := store.Update(ctx); err != nil {
		return err
	}
	_, err := order.Rewrite(fs, manifestPath, store.Snapshot(), order.Options{})
	return err
}
