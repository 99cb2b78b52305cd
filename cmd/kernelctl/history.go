package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/scxtools/kernelctl/pkg/kernelctl/config"
	"github.com/scxtools/kernelctl/pkg/kernelctl/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View transaction history",
	Long: `View past kernel transactions. Every apply records which kernels
were installed, removed, or skipped, and whether the commit succeeded.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show details of a specific transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove transactions older than the retention period",
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the configured history store.
func openHistory() (*history.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	path := historyPath(cfg)
	if path == "" {
		return nil, nil, fmt.Errorf("history is disabled in configuration")
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No transactions recorded.")
		fmt.Println("Run 'kernelctl apply' to install or remove kernels.")
		return nil
	}

	fmt.Printf("\n%-36s  %-19s  %-9s  %-9s  %-7s  %s\n",
		"ID", "STARTED", "INSTALLED", "REMOVED", "SKIPPED", "RESULT")
	fmt.Println(strings.Repeat("-", 96))

	for _, rec := range records {
		result := "ok"
		if !rec.Ok() {
			result = "failed"
		}
		fmt.Printf("%-36s  %-19s  %-9d  %-9d  %-7d  %s\n",
			rec.ID,
			rec.Started.Local().Format("2006-01-02 15:04:05"),
			len(rec.Installed),
			len(rec.Removed),
			len(rec.Skipped),
			result,
		)
	}

	fmt.Println(strings.Repeat("-", 96))
	fmt.Println("Use 'kernelctl history show <id>' for details.")
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rec, err := store.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Println("\nTransaction Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:        %s\n", rec.ID)
	fmt.Printf("Started:   %s\n", rec.Started.Local().Format(time.RFC1123))
	fmt.Printf("Elapsed:   %dms\n", rec.Elapsed)
	printList("Installed", rec.Installed)
	printList("Removed", rec.Removed)
	printList("Skipped", rec.Skipped)
	printList("Errors", rec.Errors)
	if rec.CommitErr != "" {
		fmt.Printf("Commit:    failed: %s\n", rec.CommitErr)
	} else {
		fmt.Printf("Commit:    ok\n")
	}
	return nil
}

func printList(label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("%s:\n", label)
	for _, item := range items {
		fmt.Printf("  - %s\n", item)
	}
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	store, cfg, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
	removed, err := store.Clean(retention)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d transactions older than %d days.\n", removed, cfg.History.RetentionDays)
	return nil
}
