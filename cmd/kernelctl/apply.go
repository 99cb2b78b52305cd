package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scxtools/kernelctl/pkg/kernelctl/changeset"
	"github.com/scxtools/kernelctl/pkg/kernelctl/history"
	"github.com/scxtools/kernelctl/pkg/kernelctl/logging"
	"github.com/scxtools/kernelctl/pkg/kernelctl/types"
	"github.com/scxtools/kernelctl/pkg/kernelctl/worker"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Install or remove kernels in one transaction",
	Long: `Apply installs and removals as a single package transaction. Already
installed kernels without a pending update are skipped, as are removals
of kernels that are not installed.

Examples:
  kernelctl apply -i linux-zen
  kernelctl apply -i linux-lts -r linux-mainline
  kernelctl apply -i linux-zen --dry-run`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringSliceP("install", "i", nil, "kernel to install or update (repeatable)")
	applyCmd.Flags().StringSliceP("remove", "r", nil, "kernel to remove (repeatable)")

	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	installs, _ := cmd.Flags().GetStringSlice("install")
	removes, _ := cmd.Flags().GetStringSlice("remove")
	if len(installs) == 0 && len(removes) == 0 {
		return fmt.Errorf("nothing to do: pass --install or --remove")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, false); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	cat := buildCatalog(cfg)
	if err := cat.Refresh(cmd.Context()); err != nil {
		return err
	}

	changes := changeset.New()
	for _, name := range installs {
		if _, ok := cat.Get(name); !ok {
			return fmt.Errorf("unknown kernel package: %s", name)
		}
		changes.Set(name, types.ChangeInstall)
	}
	for _, name := range removes {
		if _, ok := cat.Get(name); !ok {
			return fmt.Errorf("unknown kernel package: %s", name)
		}
		changes.Set(name, types.ChangeRemove)
	}

	opts := []worker.Option{}
	if path := historyPath(cfg); path != "" {
		store, err := history.Open(path)
		if err != nil {
			logging.Get("history").Warn("history store unavailable", "error", err)
		} else {
			defer func() { _ = store.Close() }()
			opts = append(opts, worker.WithRecorder(func(r types.ApplyResult) {
				if err := store.Put(r); err != nil {
					logging.Get("history").Warn("recording transaction failed", "error", err)
				}
			}))
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	w := worker.New(cat, changes, opts...)
	w.Start(ctx)
	w.Request()

	result := <-w.Results()
	fmt.Println(result.Summary())
	for _, ce := range result.Errors {
		printError("%s %s: %v", ce.Kind, ce.Package, ce.Err)
	}
	if result.CommitErr != nil {
		return fmt.Errorf("transaction failed: %w", result.CommitErr)
	}
	return nil
}
