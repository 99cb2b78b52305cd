package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scxtools/kernelctl/pkg/kernelctl/catalog"
	"github.com/scxtools/kernelctl/pkg/kernelctl/filter"
	"github.com/scxtools/kernelctl/pkg/kernelctl/logging"
	"github.com/scxtools/kernelctl/pkg/kernelctl/output"
)

var listCmd = &cobra.Command{
	Use:   "list [pattern...]",
	Short: "List available and installed kernels",
	Long: `List kernels known to the package databases. Positional arguments are
glob patterns matched against package names.

Examples:
  kernelctl list
  kernelctl list --installed --sort size
  kernelctl list '*zen*' '*lts*' -o json
  kernelctl list --updates`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolP("installed", "i", false, "only installed kernels")
	listCmd.Flags().BoolP("updates", "u", false, "only kernels with pending updates")
	listCmd.Flags().String("repo", "", "only kernels from this repository")
	listCmd.Flags().String("sort", "name", "sort field: name, version, size")
	listCmd.Flags().Bool("desc", false, "sort descending")
	listCmd.Flags().IntP("limit", "l", 0, "limit number of results (0 = all)")
	listCmd.Flags().StringP("output", "o", "table", "output format: table, tsv, csv, json, yaml")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, false); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	sortName, _ := cmd.Flags().GetString("sort")
	sortField, ok := filter.ParseSortField(sortName)
	if !ok {
		return fmt.Errorf("unknown sort field: %s", sortName)
	}

	format, _ := cmd.Flags().GetString("output")
	formatter, err := output.Get(format)
	if err != nil {
		return err
	}

	cat := buildCatalog(cfg)
	if err := cat.Refresh(cmd.Context()); err != nil {
		return err
	}

	installedOnly, _ := cmd.Flags().GetBool("installed")
	updatesOnly, _ := cmd.Flags().GetBool("updates")
	repo, _ := cmd.Flags().GetString("repo")
	desc, _ := cmd.Flags().GetBool("desc")
	limit, _ := cmd.Flags().GetInt("limit")

	f := filter.New(
		filter.WithPatterns(args...),
		filter.WithInstalledOnly(installedOnly),
		filter.WithUpdatesOnly(updatesOnly),
		filter.WithRepo(repo),
		filter.WithSortBy(sortField),
		filter.WithSortDescending(desc),
		filter.WithLimit(limit),
	)

	result := output.NewResult(f.Apply(cat.Kernels()))
	result.Scheduler = buildStatusReader(cfg).Current()
	result.RunningKernel = catalog.RunningRelease()

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return err
	}
	fmt.Print(buf.String())
	return nil
}
