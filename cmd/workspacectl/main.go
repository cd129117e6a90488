package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/windowanchor/workspaced/internal/core"
	"github.com/windowanchor/workspaced/pkg/types"
)

var (
	saveFiles  bool
	monitorIDs []string
)

var rootCmd = &cobra.Command{
	Use:   "workspacectl",
	Short: "Local operator CLI for WindowAnchor",
	Long:  `workspacectl saves, restores, lists, and manages desktop workspace snapshots directly against the local core, without a running workspaced instance.`,
}

var saveCmd = &cobra.Command{
	Use:   "save [name]",
	Short: "Snapshot the current desktop layout",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withCore(func(c *core.Core) error {
			snap, err := c.Snapshot.TakeSnapshot(args[0], saveFiles, nil, nil)
			if err != nil {
				return err
			}
			if err := c.Store.Save(snap); err != nil {
				return err
			}
			c.RecordFingerprint(snap.MonitorFingerprint)
			fmt.Printf("saved %q: %d window(s) captured\n", snap.Name, len(snap.Entries))
			return nil
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [name]",
	Short: "Restore a saved workspace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withCore(func(c *core.Core) error {
			snap, err := c.Store.Load(args[0])
			if err != nil {
				return err
			}
			res, err := c.Restore.Restore(context.Background(), snap, monitorIDs, nil)
			if err != nil {
				return err
			}
			printResult(res)
			return nil
		})
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch [name]",
	Short: "Close the current desktop and restore a different workspace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withCore(func(c *core.Core) error {
			snap, err := c.Store.Load(args[0])
			if err != nil {
				return err
			}
			res, err := c.Restore.SwitchWorkspace(context.Background(), snap, nil)
			if err != nil {
				return err
			}
			printResult(res)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved workspaces",
	Run: func(cmd *cobra.Command, args []string) {
		withCore(func(c *core.Core) error {
			names, err := c.Store.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("no saved workspaces")
				return nil
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a saved workspace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withCore(func(c *core.Core) error {
			return c.Store.Delete(args[0])
		})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename [old-name] [new-name]",
	Short: "Rename a saved workspace",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		withCore(func(c *core.Core) error {
			return c.Store.Rename(args[0], args[1])
		})
	},
}

func init() {
	saveCmd.Flags().BoolVar(&saveFiles, "save-files", false, "resolve and persist each window's associated file")
	restoreCmd.Flags().StringSliceVar(&monitorIDs, "monitor", nil, "restrict restore to these monitor IDs (repeatable)")

	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(switchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(renameCmd)
}

// withCore builds the core bootstrap once per invocation (this CLI is not
// long-lived, unlike workspaced) and logs a fatal error if fn fails.
func withCore(fn func(c *core.Core) error) {
	c, err := core.New()
	if err != nil {
		log.Fatalf("workspacectl: %v", err)
	}
	defer c.Log.Sync()

	if err := fn(c); err != nil {
		log.Fatalf("workspacectl: %v", err)
	}
}

func printResult(res types.RestoreResult) {
	if res.Cancelled {
		fmt.Println("cancelled")
		return
	}
	if res.TimedOut {
		fmt.Println("switch cancelled: desktop did not close in time")
		return
	}
	fmt.Printf("%s (%d window(s) matched)\n", res.Status, res.MatchedCount)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
