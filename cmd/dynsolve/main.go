package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dynsolve/internal/config"
	"github.com/san-kum/dynsolve/internal/experiment"
	"github.com/san-kum/dynsolve/internal/export"
	"github.com/san-kum/dynsolve/internal/sim"
	"github.com/san-kum/dynsolve/internal/storage"
	"github.com/san-kum/dynsolve/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logLevel   string
	dt         float64
	duration   float64
	iterations int
	configFile string
	preset     string
	jsonOut    bool
	noSave     bool
	columns    []string
	outFile    string
	svgOut     string

	logger *log.Logger
)

var (
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	summaryLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(22)
	summaryWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// main registers the commands, opens the interactive scene picker when no
// subcommand is given and exits with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:   "dynsolve",
		Short: "2d impulse constraint solver lab",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dynsolve", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a scene and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScene,
	}
	addSceneFlags(runCmd)
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "write the full result as JSON to stdout")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live [scene]",
		Short: "run a scene with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSceneFlags(liveCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "benchmark solver iterations on a scene",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScene,
	}
	addSceneFlags(benchCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to plot (default: body positions and constraint errors)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	svgCmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "render body trajectories of a run as svg",
		Args:  cobra.ExactArgs(1),
		RunE:  svgRun,
	}
	svgCmd.Flags().StringVarP(&svgOut, "output", "o", "", "output file (default: <run_id>.svg)")

	presetsCmd := &cobra.Command{
		Use:   "presets [scene]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config [scene]",
		Short: "write a scene configuration as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}
	addSceneFlags(configCmd)
	configCmd.Flags().StringVarP(&outFile, "output", "o", "scene.yaml", "output file")

	rootCmd.AddCommand(runCmd, liveCmd, benchCmd, listCmd, plotCmd, exportCmd, svgCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().IntVar(&iterations, "iterations", config.DefaultIterations, "solver iterations per step")
}

func setupLogger() error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger = log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		Prefix:          "dynsolve",
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	return nil
}

// loadScene resolves the scene from --config or a preset, then applies any
// flags the user set explicitly.
func loadScene(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	var cfg *config.Config
	name := ""

	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if cfg.LogLevel != "" && !cmd.Flags().Changed("log-level") {
			if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
				logger.SetLevel(level)
			}
		}
	default:
		scene := "pendulum"
		if len(args) > 0 {
			scene = args[0]
		}
		name = preset
		if name == "" {
			presets := config.ListPresets(scene)
			if len(presets) == 0 {
				return nil, "", fmt.Errorf("unknown scene: %s (available: %v)", scene, config.ListScenes())
			}
			name = presets[0]
		}
		resolved, err := experiment.ResolvePreset(scene, name)
		if err != nil {
			return nil, "", fmt.Errorf("%w (available: %v)", err, config.ListPresets(scene))
		}
		cfg = resolved
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("iterations") {
		cfg.Iterations = iterations
	}
	return cfg, name, cfg.Validate()
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, presetName, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	exp := experiment.New(cfg, logger)
	if err := exp.Setup(registry.DefaultMetrics()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("running scene", "scene", cfg.Scene, "preset", presetName, "dt", cfg.Dt, "iterations", cfg.Iterations)
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	info := storage.RunInfo{
		Scene:      cfg.Scene,
		Preset:     presetName,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Iterations: cfg.Iterations,
		Anchors:    sceneAnchors(cfg),
	}

	if jsonOut {
		return storage.WriteJSON(os.Stdout, info, result)
	}

	runID := ""
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err = st.Save(info, result)
		if err != nil {
			return err
		}
	}

	printSummary(runID, elapsed, result)
	return nil
}

func printSummary(runID string, elapsed time.Duration, result *sim.Result) {
	var b strings.Builder
	b.WriteString(summaryTitle.Render("run complete") + "\n")
	if runID != "" {
		b.WriteString(summaryLabel.Render("run id") + runID + "\n")
	}
	b.WriteString(summaryLabel.Render("elapsed") + elapsed.String() + "\n")
	b.WriteString(summaryLabel.Render("steps") + fmt.Sprint(result.StepsTaken) + "\n")
	b.WriteString(summaryLabel.Render("broken constraints") + fmt.Sprint(result.Broken) + "\n")
	b.WriteString(summaryLabel.Render("live arbiters") + fmt.Sprint(result.ArbiterCount) + "\n")

	if len(result.Metrics) > 0 {
		b.WriteString("\n" + summaryTitle.Render("metrics") + "\n")
		for _, name := range experiment.NewRegistry().ListMetrics() {
			if val, ok := result.Metrics[name]; ok {
				b.WriteString(summaryLabel.Render(name) + fmt.Sprintf("%.6f", val) + "\n")
			}
		}
	}

	for _, err := range result.Errors {
		b.WriteString(summaryWarn.Render("! "+err.Error()) + "\n")
	}
	fmt.Print(b.String())
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, presetName, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	title := cfg.Scene
	if presetName != "" {
		title += "/" + presetName
	}
	// the alt screen owns the terminal; only errors get through
	quiet := logger.WithPrefix("live")
	quiet.SetLevel(log.ErrorLevel)

	return viz.RunLive(func() (*sim.World, error) { return experiment.Build(cfg, quiet) }, cfg.Dt, title)
}

func benchScene(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s\n\n", cfg.Scene)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITERATIONS\tSTEPS\tTIME\tSTEPS/SEC\tMAX ERROR\tBROKEN")

	for _, n := range []int{1, 5, 10, 20, 40} {
		run := cfg.Clone()
		run.Iterations = n

		exp := experiment.New(run, nil)
		if err := exp.Setup([]sim.Metric{mustMetric("max_constraint_error")}); err != nil {
			return err
		}

		start := time.Now()
		result, err := exp.Run(context.Background())
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		stepsPerSec := float64(result.StepsTaken) / elapsed.Seconds()
		fmt.Fprintf(w, "%d\t%d\t%v\t%.0f\t%.6f\t%d\n",
			n, result.StepsTaken, elapsed, stepsPerSec, result.Metrics["max_constraint_error"], result.Broken)
	}

	return w.Flush()
}

func mustMetric(name string) sim.Metric {
	m, err := experiment.NewRegistry().GetMetric(name)
	if err != nil {
		panic(err)
	}
	return m
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tPRESET\tTIME\tDURATION\tDT\tITER\tBROKEN")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Scene,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Iterations,
			run.Broken,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	header, states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("samples: %d\n\n", len(states))

	selected := columns
	if len(selected) == 0 {
		for _, h := range header {
			if strings.HasSuffix(h, "_x") || strings.HasSuffix(h, "_y") || strings.HasPrefix(h, "err") {
				selected = append(selected, h)
			}
		}
	}

	for _, name := range selected {
		data, ok := storage.Column(header, states, name)
		if !ok {
			logger.Warn("no such column", "column", name, "available", header)
			continue
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func svgRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	header, states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	trajectories := make([]export.Trajectory, 0, len(meta.Bodies))
	for _, name := range meta.Bodies {
		xs, okX := storage.Column(header, states, name+"_x")
		ys, okY := storage.Column(header, states, name+"_y")
		if !okX || !okY {
			continue
		}
		tr := export.Trajectory{Name: name, Points: make([]mgl64.Vec2, 0, len(xs))}
		for i := range xs {
			// empty cells once the body left the world
			if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
				continue
			}
			tr.Points = append(tr.Points, mgl64.Vec2{xs[i], ys[i]})
		}
		trajectories = append(trajectories, tr)
	}

	anchors := make([]mgl64.Vec2, len(meta.Anchors))
	for i, a := range meta.Anchors {
		anchors[i] = mgl64.Vec2{a[0], a[1]}
	}

	svg := export.TrajectoriesToSVG(trajectories, anchors, 800, 600)
	if svg == "" {
		return fmt.Errorf("no data to render")
	}

	path := svgOut
	if path == "" {
		path = runID + ".svg"
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return err
	}
	logger.Info("wrote svg", "path", path, "bodies", len(trajectories))
	return nil
}

func sceneAnchors(cfg *config.Config) [][2]float64 {
	anchors := make([][2]float64, 0, len(cfg.Joints)+len(cfg.Springs))
	for _, j := range cfg.Joints {
		anchors = append(anchors, j.Anchor)
	}
	for _, s := range cfg.Springs {
		anchors = append(anchors, s.WorldAttach)
	}
	return anchors
}

func listPresets(cmd *cobra.Command, args []string) error {
	scenes := config.ListScenes()
	if len(args) > 0 {
		scenes = args
	}

	for _, scene := range scenes {
		presets := config.ListPresets(scene)
		if len(presets) == 0 {
			fmt.Printf("no presets for scene: %s\n", scene)
			continue
		}
		fmt.Printf("presets for %s:\n", scene)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

func writeConfig(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	if err := config.Save(outFile, cfg); err != nil {
		return err
	}
	logger.Info("wrote scene", "path", outFile, "scene", cfg.Scene)
	return nil
}
