package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scxtools/kernelctl/pkg/kernelctl/logging"
	"github.com/scxtools/kernelctl/pkg/kernelctl/schedext"
)

var schedCmd = &cobra.Command{
	Use:   "sched",
	Short: "Inspect and control the sched_ext scheduler",
}

var schedStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current scheduler status",
	Long: `Show the sched_ext status from sysfs. With --watch the status is
polled and printed whenever it changes.`,
	RunE: runSchedStatus,
}

var schedListCmd = &cobra.Command{
	Use:   "schedulers",
	Short: "List selectable schedulers",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range schedext.Schedulers {
			fmt.Println(name)
		}
	},
}

var schedApplyCmd = &cobra.Command{
	Use:   "apply NAME",
	Short: "Select a scheduler and start or restart the scx service",
	Long: `Write the scheduler selection into the service configuration and
enable or restart the scx service. Requires privilege elevation.

Examples:
  kernelctl sched apply scx_lavd
  kernelctl sched apply scx_rusty --flags '--slice-us 5000'`,
	Args: cobra.ExactArgs(1),
	RunE: runSchedApply,
}

var schedDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop the scx service and disable it if enabled",
	RunE:  runSchedDisable,
}

func init() {
	schedStatusCmd.Flags().BoolP("watch", "w", false, "poll and print status changes")
	schedApplyCmd.Flags().String("flags", "", "scheduler flags written to SCX_FLAGS")

	schedCmd.AddCommand(schedStatusCmd, schedListCmd, schedApplyCmd, schedDisableCmd)
	rootCmd.AddCommand(schedCmd)
}

func runSchedStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, false); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	reader := buildStatusReader(cfg)

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		status := reader.Current()
		if status == "" {
			fmt.Println("sched_ext not available")
			return nil
		}
		fmt.Println(status)
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	poller := schedext.NewPoller(reader, cfg.Sched.PollInterval)
	sub := poller.Subscribe()
	poller.Start(ctx)

	var last string
	first := true
	for status := range sub.Updates {
		if first || status.Value != last {
			fmt.Println(status.Value)
			last = status.Value
			first = false
		}
	}
	return nil
}

func runSchedApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, false); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	flags, _ := cmd.Flags().GetString("flags")
	controller := buildController(cfg)

	if err := controller.Apply(cmd.Context(), args[0], flags); err != nil {
		return err
	}
	fmt.Printf("scheduler %s applied\n", args[0])
	return nil
}

func runSchedDisable(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, false); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	if err := buildController(cfg).Disable(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("scheduler disabled")
	return nil
}
