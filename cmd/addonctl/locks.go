package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/domain/installconfig"
)

var lockReason string

var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "Manage the list of target paths the installer must not touch",
}

var locksListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every locked target path",
	RunE:  runLocksList,
}

var locksAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Lock a target path",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocksAdd,
}

var locksRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Unlock a target path",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocksRemove,
}

func init() {
	locksAddCmd.Flags().StringVar(&lockReason, "reason", "", "why this path is locked, shown in the plan view")

	locksCmd.AddCommand(locksListCmd)
	locksCmd.AddCommand(locksAddCmd)
	locksCmd.AddCommand(locksRemoveCmd)
}

func runLocksList(cmd *cobra.Command, _ []string) error {
	entries, err := installconfig.LoadLocks(locksPath)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no locked paths")
		return nil
	}
	for _, e := range entries {
		if e.Reason != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  (%s)\n", e.Path, e.Reason)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), e.Path)
		}
	}
	return nil
}

func runLocksAdd(cmd *cobra.Command, args []string) error {
	entries, err := installconfig.LoadLocks(locksPath)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Path == args[0] {
			return addonerr.New(addonerr.Conflict, "path is already locked").WithPath(args[0])
		}
	}
	entries = append(entries, installconfig.LockEntry{Path: args[0], Reason: lockReason})
	if err := installconfig.SaveLocks(locksPath, entries); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "locked %s\n", args[0])
	return nil
}

func runLocksRemove(cmd *cobra.Command, args []string) error {
	entries, err := installconfig.LoadLocks(locksPath)
	if err != nil {
		return err
	}
	out := entries[:0]
	found := false
	for _, e := range entries {
		if e.Path == args[0] {
			found = true
			continue
		}
		out = append(out, e)
	}
	if !found {
		return addonerr.New(addonerr.BadInputPath, "path is not locked").WithPath(args[0])
	}
	if err := installconfig.SaveLocks(locksPath, out); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "unlocked %s\n", args[0])
	return nil
}
