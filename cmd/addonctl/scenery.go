package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/addonctl/internal/adapters/filesystem"
	"github.com/felixgeelhaar/addonctl/internal/adapters/logging"
	"github.com/felixgeelhaar/addonctl/internal/domain/installconfig"
	"github.com/felixgeelhaar/addonctl/internal/domain/scenery/index"
	"github.com/felixgeelhaar/addonctl/internal/domain/scenery/order"
)

var sceneryAutoDisableDependents bool

var sceneryCmd = &cobra.Command{
	Use:   "scenery",
	Short: "Manage the scenery package index and scenery_packs.ini ordering",
}

var sceneryRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Fully reclassify every folder under Custom Scenery",
	RunE:  runSceneryRebuild,
}

var sceneryUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Reclassify only new or changed folders under Custom Scenery",
	RunE:  runSceneryUpdate,
}

var sceneryReorderCmd = &cobra.Command{
	Use:   "reorder",
	Short: "Rewrite scenery_packs.ini in priority order from the current index",
	RunE:  runSceneryReorder,
}

func init() {
	sceneryReorderCmd.Flags().BoolVar(&sceneryAutoDisableDependents, "auto-disable-dependents", false, "also disable entries that require a disabled library")

	sceneryCmd.AddCommand(sceneryRebuildCmd)
	sceneryCmd.AddCommand(sceneryUpdateCmd)
	sceneryCmd.AddCommand(sceneryReorderCmd)
}

func sceneryPaths() (sceneryDir, indexPath, manifestPath string) {
	sceneryDir = simRoot + "/Custom Scenery"
	indexPath = sceneryDir + "/scenery_index.json"
	manifestPath = sceneryDir + "/scenery_packs.ini"
	return
}

func newSceneryStore() *index.Store {
	logger := logging.NewConsoleLogger(logging.WithOutput(os.Stderr))
	fs := filesystem.NewRealFileSystem()
	settings, _ := installconfig.LoadSettings(settingsPath)
	sceneryDir, indexPath, _ := sceneryPaths()
	return index.NewStore(fs, logger, indexPath, sceneryDir, settings.ParallelWorkers)
}

func runSceneryRebuild(cmd *cobra.Command, _ []string) error {
	if err := requireSimRoot(); err != nil {
		return err
	}
	store := newSceneryStore()
	if err := store.Rebuild(cmdContext(cmd)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rebuilt index: %d package(s) classified\n", len(store.FolderNames()))
	return nil
}

func runSceneryUpdate(cmd *cobra.Command, _ []string) error {
	if err := requireSimRoot(); err != nil {
		return err
	}
	store := newSceneryStore()
	if err := store.Load(cmdContext(cmd)); err != nil {
		return err
	}
	if err := store.Update(cmdContext(cmd)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "updated index: %d package(s) tracked\n", len(store.FolderNames()))
	return nil
}

func runSceneryReorder(cmd *cobra.Command, _ []string) error {
	if err := requireSimRoot(); err != nil {
		return err
	}
	fs := filesystem.NewRealFileSystem()
	store := newSceneryStore()
	if err := store.Load(cmdContext(cmd)); err != nil {
		return err
	}

	_, _, manifestPath := sceneryPaths()
	manifest, err := order.Rewrite(fs, manifestPath, store.Snapshot(), order.Options{
		AutoDisableDependents: sceneryAutoDisableDependents,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rewrote %s: %d entries\n", manifestPath, len(manifest.Lines))
	return nil
}
