package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pqrs/internal/casestore"
	"pqrs/internal/config"
	"pqrs/internal/domain"
	"pqrs/internal/logging"
	"pqrs/internal/tui"
)

type rootFlags struct {
	configPath  string
	metricsAddr string
}

func main() {
	_ = godotenv.Load()

	var flags rootFlags
	rootCmd := &cobra.Command{
		Use:           "pqrs",
		Short:         "Match support tickets against solved cases",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), flags)
		},
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to YAML config file (optional; uses ~/.config/pqrs/config.yaml if not provided)")
	rootCmd.PersistentFlags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive resolver",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), flags)
		},
	}

	var (
		accept     bool
		jsonOutput bool
	)
	resolveCmd := &cobra.Command{
		Use:   "resolve <problem text...>",
		Short: "Find the solved case closest to a problem description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), flags, strings.Join(args, " "), accept, jsonOutput, cmd.OutOrStdout())
		},
	}
	resolveCmd.Flags().BoolVar(&accept, "accept", false, "Count the matched case as used")
	resolveCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the resolution as JSON")

	casesCmd := &cobra.Command{
		Use:   "cases",
		Short: "List stored cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCases(cmd.Context(), flags, cmd.OutOrStdout())
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Append the cases of an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), flags, args[0], cmd.OutOrStdout())
		},
	}

	warmupCmd := &cobra.Command{
		Use:   "warmup",
		Short: "Load the embedding model and fill the embedding cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWarmup(cmd.Context(), flags, cmd.OutOrStdout())
		},
	}

	rootCmd.AddCommand(tuiCmd, resolveCmd, casesCmd, importCmd, warmupCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads config, builds the logger and assembles the app, seeding an
// empty store when seed is set. The returned cleanup stops the metrics
// server and closes the app.
func setup(ctx context.Context, flags rootFlags, logOut io.Writer, seed bool) (*app, func(), error) {
	var cfg *config.AppConfig
	var err error
	if flags.configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(flags.configPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: logOut})
	if err != nil {
		return nil, nil, err
	}
	a, err := newApp(ctx, cfg, logger, seed)
	if err != nil {
		return nil, nil, err
	}
	stop := func() {}
	if flags.metricsAddr != "" {
		stop = serveMetrics(flags.metricsAddr, a.registry, logger)
	}
	cleanup := func() {
		stop()
		if err := a.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	return a, cleanup, nil
}

func runTUI(ctx context.Context, flags rootFlags) error {
	// The terminal belongs to the UI; logs go to a file.
	logFile, err := os.OpenFile("pqrs.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()

	a, cleanup, err := setup(ctx, flags, logFile, true)
	if err != nil {
		return err
	}
	defer cleanup()

	n, err := a.store.Count(ctx)
	if err != nil {
		return err
	}
	summary := fmt.Sprintf("%d cases · ranker %s · threshold %.2f", n, a.resolver.RankerName(), a.resolver.Threshold())
	_, err = tea.NewProgram(tui.New(a.resolver, summary)).Run()
	return err
}

func runResolve(ctx context.Context, flags rootFlags, text string, accept, jsonOutput bool, out io.Writer) error {
	a, cleanup, err := setup(ctx, flags, os.Stderr, true)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := a.resolver.Resolve(ctx, text)
	if err != nil {
		return err
	}
	if res != nil && accept {
		if err := a.store.IncrementUsage(ctx, res.Case.ID); err != nil {
			return err
		}
	}
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResolution(out, res)
	return nil
}

func printResolution(out io.Writer, res *domain.Resolution) {
	if res == nil {
		fmt.Fprintln(out, "No similar case found.")
		return
	}
	fmt.Fprintf(out, "Case #%d  %s  (score %.3f)\n", res.Case.ID, res.Case.Category, res.Score)
	fmt.Fprintf(out, "Problem: %s\n", res.Case.ProblemText)
	if len(res.Params) > 0 {
		fmt.Fprintln(out, "Parameters:")
		for k, v := range res.Params {
			fmt.Fprintf(out, "  %s = %s\n", k, v)
		}
	}
	fmt.Fprintln(out, "\nSuggested query (review before running):")
	fmt.Fprintln(out, res.BoundQuery)
	if len(res.Statement.Missing) > 0 {
		fmt.Fprintf(out, "\nStill to fill: %s\n", strings.Join(res.Statement.Missing, ", "))
	}
	if res.ResponseText != "" {
		fmt.Fprintln(out, "\nResponse:")
		fmt.Fprintln(out, res.ResponseText)
	}
}

func runCases(ctx context.Context, flags rootFlags, out io.Writer) error {
	a, cleanup, err := setup(ctx, flags, os.Stderr, true)
	if err != nil {
		return err
	}
	defer cleanup()

	cases, err := a.store.ListCases(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tUSES\tCONCEPTS\tPROBLEM")
	for _, c := range cases {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", c.ID, c.Category, c.UsageCount, c.KeyConcepts, truncate(c.ProblemText, 60))
	}
	return w.Flush()
}

func runImport(ctx context.Context, flags rootFlags, path string, out io.Writer) error {
	a, cleanup, err := setup(ctx, flags, os.Stderr, false)
	if err != nil {
		return err
	}
	defer cleanup()

	sum, err := casestore.Import(ctx, a.store, path, casestore.Options{Logger: a.logger})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d cases (%d blocks skipped)\n", sum.Added, sum.Skipped)
	return nil
}

func runWarmup(ctx context.Context, flags rootFlags, out io.Writer) error {
	a, cleanup, err := setup(ctx, flags, os.Stderr, true)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.resolver.Warm(ctx); err != nil {
		return err
	}
	entries := 0
	if a.cache != nil {
		entries = a.cache.Len()
	}
	fmt.Fprintf(out, "Ranker %s ready, %d cached embeddings\n", a.resolver.RankerName(), entries)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
