// Package main provides the CLI entrypoint for neonblue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ishannjr/neonblue/internal/api"
	"github.com/ishannjr/neonblue/internal/config"
	"github.com/ishannjr/neonblue/internal/model"
	"github.com/ishannjr/neonblue/internal/report"
	"github.com/ishannjr/neonblue/internal/tui"
)

const (
	defaultAPIURL      = "http://localhost:8000"
	defaultFormat      = "full"
	defaultGranularity = "day"
	defaultCurveWindow = 5
	tokenEnvVar        = "NEONBLUE_TOKEN"
)

var (
	apiURL string
	token  string

	listStatus string
	listLimit  int
	listOffset int

	resultsFormat      string
	resultsGranularity string
	resultsStartDate   string
	resultsEndDate     string
	resultsEventTypes  []string
	resultsTimeSeries  bool
	resultsCurveWindow int
	resultsNoColor     bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "neonblue",
		Short:         "TUI dashboard for NeonBlue experiment results",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runDashboardCmd,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultAPIURL, "base URL of the experimentation API")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "API bearer token (or set "+tokenEnvVar+")")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newExperimentsCmd())
	rootCmd.AddCommand(newResultsCmd())

	return rootCmd
}

// newClient resolves the connection settings with flags taking priority
// over the environment, and the environment over the config file.
func newClient(cmd *cobra.Command, fileCfg config.FileConfig) *api.Client {
	applyStringConfig(cmd, "api-url", &apiURL, fileCfg.API.BaseURL)
	if !cmd.Flags().Changed("token") {
		if env := os.Getenv(tokenEnvVar); env != "" {
			token = env
		} else if fileCfg.API.Token != nil {
			token = *fileCfg.API.Token
		}
	}
	opts := []api.Option{api.WithBaseURL(apiURL)}
	if token != "" {
		opts = append(opts, api.WithToken(token))
	}
	return api.NewClient(opts...)
}

func runDashboardCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	client := newClient(cmd, fileCfg)
	curveWindow := defaultCurveWindow
	if fileCfg.Results.CurveWindow != nil && *fileCfg.Results.CurveWindow > 0 {
		curveWindow = *fileCfg.Results.CurveWindow
	}

	model := tui.NewModel(client, token, curveWindow)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check API availability",
		Args:  cobra.NoArgs,
		RunE:  runHealthCmd,
	}
}

func runHealthCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	client := newClient(cmd, fileCfg)
	health, err := client.CheckHealth(cmd.Context())
	if err != nil {
		return fmt.Errorf("API is unreachable: %w", err)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (version %s)\n", health.Status, health.Version); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newExperimentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiments",
		Short: "List experiments",
		Args:  cobra.NoArgs,
		RunE:  runExperimentsCmd,
	}
	cmd.Flags().StringVar(&listStatus, "status", "", "filter by status (draft, running, paused, completed)")
	cmd.Flags().IntVar(&listLimit, "limit", 0, "maximum experiments to return")
	cmd.Flags().IntVar(&listOffset, "offset", 0, "pagination offset")
	return cmd
}

func runExperimentsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	client := newClient(cmd, fileCfg)
	if err := requireToken(client); err != nil {
		return err
	}

	opts := api.ListOptions{Status: model.ExperimentStatus(listStatus)}
	if cmd.Flags().Changed("limit") {
		opts.Limit = &listLimit
	}
	if cmd.Flags().Changed("offset") {
		opts.Offset = &listOffset
	}
	list, err := client.ListExperiments(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("failed to list experiments: %w", err)
	}
	if err := report.RenderExperiments(cmd.OutOrStdout(), list); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results <experiment-id>",
		Short: "Show experiment results",
		Args:  cobra.ExactArgs(1),
		RunE:  runResultsCmd,
	}
	cmd.Flags().StringVar(&resultsFormat, "format", defaultFormat, "results format (full, summary, metrics_only)")
	cmd.Flags().StringVar(&resultsGranularity, "granularity", defaultGranularity, "time-series bucket size (hour, day, week)")
	cmd.Flags().StringVar(&resultsStartDate, "start-date", "", "analysis window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&resultsEndDate, "end-date", "", "analysis window end (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&resultsEventTypes, "event-types", nil, "restrict metrics to these event types")
	cmd.Flags().BoolVar(&resultsTimeSeries, "time-series", true, "include time-series data")
	cmd.Flags().IntVar(&resultsCurveWindow, "curve-window", defaultCurveWindow, "moving average window for the conversion curve")
	cmd.Flags().BoolVar(&resultsNoColor, "no-color", false, "disable colored plot output")
	return cmd
}

func runResultsCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	client := newClient(cmd, fileCfg)
	if err := requireToken(client); err != nil {
		return err
	}
	applyStringConfig(cmd, "format", &resultsFormat, fileCfg.Results.Format)
	applyStringConfig(cmd, "granularity", &resultsGranularity, fileCfg.Results.Granularity)
	applyIntConfig(cmd, "curve-window", &resultsCurveWindow, fileCfg.Results.CurveWindow)

	var id int64
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil || id <= 0 {
		return fmt.Errorf("invalid experiment id %q", args[0])
	}
	if err := validateResultsFlags(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	exp, err := client.GetExperiment(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load experiment: %w", err)
	}
	results, err := client.GetExperimentResults(ctx, id, api.ResultsOptions{
		StartDate:         resultsStartDate,
		EndDate:           resultsEndDate,
		EventTypes:        resultsEventTypes,
		Format:            api.ResultsFormat(resultsFormat),
		IncludeTimeSeries: resultsTimeSeries,
		Granularity:       api.Granularity(resultsGranularity),
	})
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	out := cmd.OutOrStdout()
	if resultsFormat == string(api.FormatSummary) {
		if err := report.RenderSummary(out, results); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	useColor := !resultsNoColor && report.ShouldUseColor(out)
	if err := report.RenderResults(out, &exp, results, resultsCurveWindow, report.OutputWidth(), useColor); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func validateResultsFlags() error {
	switch api.ResultsFormat(resultsFormat) {
	case api.FormatFull, api.FormatSummary, api.FormatMetricsOnly:
	default:
		return fmt.Errorf("--format must be one of full, summary, metrics_only")
	}
	switch api.Granularity(resultsGranularity) {
	case api.GranularityHour, api.GranularityDay, api.GranularityWeek:
	default:
		return fmt.Errorf("--granularity must be one of hour, day, week")
	}
	if resultsCurveWindow <= 0 {
		return fmt.Errorf("--curve-window must be > 0")
	}
	return nil
}

func requireToken(client *api.Client) error {
	if strings.TrimSpace(client.Token()) == "" {
		return fmt.Errorf("no API token configured (use --token, %s, or the config file)", tokenEnvVar)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o600); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# neonblue configuration
# Uncomment a value to enable it. CLI flags override config values.

[api]
# base-url = %q   # Experimentation API base URL
# token = ""                        # API bearer token (or set %s)

[results]
# format = %q              # Results format (full, summary, metrics_only)
# granularity = %q          # Time-series bucket size (hour, day, week)
# curve-window = %d            # Moving average window for the conversion curve
`,
		defaultAPIURL,
		tokenEnvVar,
		defaultFormat,
		defaultGranularity,
		defaultCurveWindow,
	)
}
