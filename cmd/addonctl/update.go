package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/addonctl/internal/adapters/archive"
	"github.com/felixgeelhaar/addonctl/internal/adapters/filesystem"
	"github.com/felixgeelhaar/addonctl/internal/adapters/logging"
	"github.com/felixgeelhaar/addonctl/internal/domain/addon"
	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/domain/events"
	"github.com/felixgeelhaar/addonctl/internal/domain/install"
	"github.com/felixgeelhaar/addonctl/internal/domain/installconfig"
	"github.com/felixgeelhaar/addonctl/internal/domain/update"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

var (
	updateManifestPath string
	updateTarget       string
	updateDownloadDir  string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Plan and apply updates to an already-installed addon",
}

var updatePlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Diff an installed addon against a remote file manifest",
	RunE:  runUpdatePlan,
}

var updateApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a previously planned update from a downloaded file tree",
	RunE:  runUpdateApply,
}

func init() {
	for _, c := range []*cobra.Command{updatePlanCmd, updateApplyCmd} {
		c.Flags().StringVar(&updateManifestPath, "manifest", "", "path to the remote manifest JSON (update.Manifest)")
		c.Flags().StringVar(&updateTarget, "target", "", "installed addon's target path (required)")
	}
	updateApplyCmd.Flags().StringVar(&updateDownloadDir, "downloaded-dir", "", "directory holding the manifest's add/replace files, at their relative paths (required)")

	updateCmd.AddCommand(updatePlanCmd)
	updateCmd.AddCommand(updateApplyCmd)
}

func loadManifest(path string) (update.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return update.Manifest{}, addonerr.New(addonerr.BadInputPath, "failed to read update manifest").WithPath(path).Wrap(err)
	}
	var m update.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return update.Manifest{}, addonerr.New(addonerr.ManifestParse, "update manifest is not valid JSON").WithPath(path).Wrap(err)
	}
	return m, nil
}

func localFromTarget(fs ports.FileSystem, target string) (update.Local, error) {
	var files []update.LocalFile
	var walk func(dir, relPrefix string) error
	walk = func(dir, relPrefix string) error {
		entries, err := fs.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			rel := e.Name
			if relPrefix != "" {
				rel = relPrefix + "/" + e.Name
			}
			if e.IsDir {
				if err := walk(dir+"/"+e.Name, rel); err != nil {
					return err
				}
				continue
			}
			hash, err := fs.FileHash(dir + "/" + e.Name)
			if err != nil {
				return addonerr.New(addonerr.Internal, "failed to hash local file").WithPath(rel).Wrap(err)
			}
			files = append(files, update.LocalFile{Path: rel, Hash: hash})
		}
		return nil
	}
	if fs.Exists(target) {
		if err := walk(target, ""); err != nil {
			return update.Local{}, err
		}
	}
	return update.Local{Files: files}, nil
}

func printUpdatePlan(cmd *cobra.Command, plan update.Plan) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "local version:  %s\n", plan.LocalVersion)
	fmt.Fprintf(out, "remote version: %s\n", plan.RemoteVersion)
	fmt.Fprintf(out, "has update:     %v\n", plan.HasUpdate)
	fmt.Fprintf(out, "add:     %d\n", len(plan.AddFiles))
	fmt.Fprintf(out, "replace: %d\n", len(plan.ReplaceFiles))
	fmt.Fprintf(out, "delete:  %d\n", len(plan.DeleteFiles))
	fmt.Fprintf(out, "skip:    %d\n", len(plan.SkipFiles))
	fmt.Fprintf(out, "estimated download: %d bytes\n", plan.EstimatedDownloadBytes)
	for _, w := range plan.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
}

func runUpdatePlan(cmd *cobra.Command, _ []string) error {
	if updateTarget == "" || updateManifestPath == "" {
		return addonerr.New(addonerr.BadInputPath, "--target and --manifest are required")
	}
	fs := filesystem.NewRealFileSystem()
	locks, err := installconfig.LoadLocks(locksPath)
	if err != nil {
		return err
	}
	lockedPaths := make(map[string]bool, len(locks))
	for _, l := range locks {
		lockedPaths[l.Path] = true
	}

	manifest, err := loadManifest(updateManifestPath)
	if err != nil {
		return err
	}
	local, err := localFromTarget(fs, updateTarget)
	if err != nil {
		return err
	}

	plan := update.Compute(local, manifest,
		func(p string) bool { return lockedPaths[p] },
		func(p string) bool { return fs.IsDir(updateTarget + "/" + parentDir(p)) },
	)
	printUpdatePlan(cmd, plan)
	return nil
}

func runUpdateApply(cmd *cobra.Command, _ []string) error {
	if updateTarget == "" || updateManifestPath == "" || updateDownloadDir == "" {
		return addonerr.New(addonerr.BadInputPath, "--target, --manifest and --downloaded-dir are required")
	}
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
	lockedPaths := make(map[string]bool, len(locks))
	for _, l := range locks {
		lockedPaths[l.Path] = true
	}

	manifest, err := loadManifest(updateManifestPath)
	if err != nil {
		return err
	}
	local, err := localFromTarget(fs, updateTarget)
	if err != nil {
		return err
	}
	plan := update.Compute(local, manifest,
		func(p string) bool { return lockedPaths[p] },
		func(p string) bool { return fs.IsDir(updateTarget + "/" + parentDir(p)) },
	)
	printUpdatePlan(cmd, plan)
	if !plan.HasUpdate {
		return nil
	}
	if !confirmInstall(cmd) {
		return addonerr.New(addonerr.Cancelled, "update aborted before commit")
	}

	scratchDir, err := os.MkdirTemp("", "addonctl-update-*")
	if err != nil {
		return addonerr.New(addonerr.Internal, "failed to create scratch directory").Wrap(err)
	}
	defer os.RemoveAll(scratchDir)

	bus := events.NewBus()
	control := events.NewControl()
	engine := install.NewEngine(fs, openers, scratchDir, bus, logger, install.Options{
		Workers:              settings.ParallelWorkers,
		MemoryThresholdBytes: settings.MemoryThresholdMiB << 20,
	})

	result := engine.ApplyUpdatePlan(updateTarget, updateDownloadDir, plan, addon.BackupPolicy{ConfigGlobs: settings.BackupConfigGlobs}, control)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", result.TaskID, result.State)
	if result.Err != nil {
		return result.Err
	}
	return nil
}

func parentDir(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return ""
}
