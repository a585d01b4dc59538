package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/san-kum/meshftle/internal/analysis"
	"github.com/san-kum/meshftle/internal/config"
	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/export"
	"github.com/san-kum/meshftle/internal/ftle"
	"github.com/san-kum/meshftle/internal/integrators"
	"github.com/san-kum/meshftle/internal/mesh"
	"github.com/san-kum/meshftle/internal/models"
	"github.com/san-kum/meshftle/internal/optim"
	"github.com/san-kum/meshftle/internal/storage"
	"github.com/san-kum/meshftle/internal/trajectory"
	"github.com/san-kum/meshftle/internal/viz"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	v       = viper.New()
	dataDir string
	logger  = slog.New(slog.DiscardHandler)
)

// overrides maps run flags onto config fields. A flag applies when it was
// given on the command line or through a MESHFTLE_ variable.
var overrides = []struct {
	key   string
	apply func(*config.Config)
}{
	{"steps", func(c *config.Config) { c.Steps = v.GetInt("steps") }},
	{"dt", func(c *config.Config) { c.Dt = v.GetFloat64("dt") }},
	{"initial", func(c *config.Config) { c.Initial = v.GetInt("initial") }},
	{"final", func(c *config.Config) { c.Final = v.GetInt("final") }},
	{"seeds", func(c *config.Config) { c.Seeds = v.GetString("seeds") }},
	{"neighborhood", func(c *config.Config) { c.Neighborhood = v.GetInt("neighborhood") }},
	{"substeps", func(c *config.Config) { c.SubSteps = v.GetInt("substeps") }},
	{"integrator", func(c *config.Config) { c.Integrator = v.GetString("integrator") }},
	{"scheme", func(c *config.Config) { c.Scheme = v.GetString("scheme") }},
	{"mode", func(c *config.Config) { c.Mode = v.GetString("mode") }},
	{"policy", func(c *config.Config) { c.Policy = v.GetString("policy") }},
	{"workers", func(c *config.Config) { c.Workers = v.GetInt("workers") }},
}

func main() {
	rootCmd := &cobra.Command{
		Use:               "meshftle",
		Short:             "finite-time Lyapunov exponents on moving triangulated surfaces",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().String("data", "~/.meshftle", "data directory")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("theme", viz.CurrentTheme.Name, fmt.Sprintf("color theme %v", viz.ThemeNames()))

	runCmd := &cobra.Command{
		Use:   "run [model | dataset.json]",
		Short: "compute forward and backward FTLE fields",
		Args:  cobra.ExactArgs(1),
		RunE:  runFTLE,
	}
	addComputeFlags(runCmd)
	runCmd.Flags().Bool("live", false, "show a live progress view")
	runCmd.Flags().Bool("save", true, "store the run in the data directory")
	runCmd.Flags().String("json", "", "also write the result as JSON to this file")
	runCmd.Flags().String("profile", "", "write a cpu or mem profile to the data directory")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "summarize a run and draw its particles",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().String("direction", "forward", "field to map (forward, backward)")
	showCmd.Flags().Float64("azimuth", 30, "view azimuth in degrees")
	showCmd.Flags().Float64("elevation", 60, "view elevation in degrees")
	showCmd.Flags().Int("width", 60, "map width in cells")
	showCmd.Flags().Int("height", 20, "map height in cells")
	showCmd.Flags().Bool("trajectories", false, "draw trajectories instead of seeds")
	showCmd.Flags().Float64("ridge", 0.9, "quantile above which local maxima count as ridge particles")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot FTLE distributions of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().Int("bins", 30, "histogram bins")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export per-particle fields to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [model] [integrator1] [integrator2] ...",
		Short: "compare integrators on the same model",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	addComputeFlags(compareCmd)

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id] [path]",
		Short: "render a run's FTLE field as SVG",
		Args:  cobra.ExactArgs(2),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().String("direction", "forward", "field to render (forward, backward)")
	exportSVGCmd.Flags().Float64("azimuth", 30, "view azimuth in degrees")
	exportSVGCmd.Flags().Float64("elevation", 60, "view elevation in degrees")
	exportSVGCmd.Flags().Int("width", 120, "image width in cells")
	exportSVGCmd.Flags().Int("height", 60, "image height in cells")
	exportSVGCmd.Flags().Float64("scale", 4, "pixels per sub-cell")
	exportSVGCmd.Flags().Bool("trajectories", false, "draw trajectories instead of seeds")

	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "search neighborhood size and substeps for the best-behaved field",
		Args:  cobra.ExactArgs(1),
		RunE:  sweepOptions,
	}
	addComputeFlags(sweepCmd)
	sweepCmd.Flags().IntSlice("neighborhoods", []int{6, 8, 10, 12}, "neighborhood sizes to try")
	sweepCmd.Flags().IntSlice("substep-grid", []int{1, 2, 4}, "substep counts to try")
	sweepCmd.Flags().String("score", "spread", "score to minimize (spread, pair-gap)")

	datasetCmd := &cobra.Command{
		Use:   "dataset [model] [path]",
		Short: "sample a model into a dataset file",
		Args:  cobra.ExactArgs(2),
		RunE:  writeDataset,
	}
	datasetCmd.Flags().Int("steps", config.DefaultSteps, "number of snapshots")
	datasetCmd.Flags().Float64("dt", config.DefaultDt, "time between snapshots")
	datasetCmd.Flags().String("preset", "", "use preset configuration")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list synthetic models and integrators",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("models:")
			for _, name := range models.Names() {
				fmt.Printf("  %-20s presets: %s\n", name, strings.Join(config.ListPresets(name), ", "))
			}
			fmt.Printf("\nintegrators: %s\n", strings.Join(integrators.Names(), ", "))
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, showCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, compareCmd, sweepCmd, datasetCmd, presetsCmd, modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addComputeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("steps", config.DefaultSteps, "number of snapshots to sample")
	f.Float64("dt", config.DefaultDt, "time between snapshots")
	f.Int("initial", 0, "initial snapshot index")
	f.Int("final", config.DefaultFinal, "final snapshot index")
	f.String("seeds", config.DefaultSeeds, "particle placement (nodes, centroids)")
	f.Int("neighborhood", ftle.DefaultNeighborhood, "neighbors per particle")
	f.Int("substeps", config.DefaultSubSteps, "integration steps per snapshot interval")
	f.String("integrator", integrators.Default, fmt.Sprintf("integrator %v", integrators.Names()))
	f.String("scheme", "idw", "velocity interpolation (nearest, idw, barycentric)")
	f.String("mode", string(trajectory.Advect), "tracking mode (advect, lagrangian)")
	f.String("policy", string(ftle.MarkInvalid), "particle failure policy (mark, abort)")
	f.Int("workers", 0, "worker goroutines, 0 for one per CPU")
	f.String("config", "", "config file path (yaml)")
	f.String("preset", "", "use preset configuration")
}

// setup binds flags and MESHFTLE_ environment variables, then prepares the
// data directory, logger and theme.
func setup(cmd *cobra.Command, args []string) error {
	v.SetEnvPrefix("MESHFTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	dir, err := homedir.Expand(v.GetString("data"))
	if err != nil {
		return err
	}
	dataDir = dir

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	viz.SetTheme(v.GetString("theme"))
	return nil
}

// resolveConfig layers defaults, preset, config file and flags, in that order.
func resolveConfig(target string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	model, dataset := target, ""
	if strings.EqualFold(filepath.Ext(target), ".json") {
		dataset = target
		model = strings.TrimSuffix(filepath.Base(target), filepath.Ext(target))
	}

	if name := v.GetString("preset"); name != "" {
		p := config.GetPreset(model, name)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets(model))
		}
		cfg = p
	}

	if path := v.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	cfg.Model = model
	if dataset != "" {
		cfg.Dataset = dataset
	}
	for _, o := range overrides {
		if v.IsSet(o.key) {
			o.apply(cfg)
		}
	}
	if v.IsSet("steps") && !v.IsSet("final") {
		cfg.Final = cfg.Steps - 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSeries(cfg *config.Config) (*mesh.Series, error) {
	if cfg.Dataset != "" {
		s, err := storage.LoadDataset(cfg.Dataset)
		if err != nil {
			return nil, err
		}
		// Datasets carry their own length; an unset final index means the last step.
		if !v.IsSet("final") && v.GetString("config") == "" {
			cfg.Final = s.Len() - 1
		}
		return s, nil
	}
	surf, err := cfg.Surface()
	if err != nil {
		return nil, err
	}
	return models.Sample(surf, cfg.Steps, cfg.Dt)
}

func prepare(target string) (*config.Config, *mesh.Series, []r3.Vec, ftle.Options, error) {
	cfg, err := resolveConfig(target)
	if err != nil {
		return nil, nil, nil, ftle.Options{}, err
	}
	series, err := loadSeries(cfg)
	if err != nil {
		return nil, nil, nil, ftle.Options{}, err
	}
	seeds, err := cfg.SeedPoints(series)
	if err != nil {
		return nil, nil, nil, ftle.Options{}, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, nil, nil, ftle.Options{}, err
	}
	opts.Logger = logger
	return cfg, series, seeds, opts, nil
}

func runFTLE(cmd *cobra.Command, args []string) error {
	cfg, series, seeds, opts, err := prepare(args[0])
	if err != nil {
		return err
	}

	switch mode := v.GetString("profile"); mode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(dataDir), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(dataDir), profile.Quiet).Stop()
	default:
		return fmt.Errorf("unknown profile mode: %s (cpu, mem)", mode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	window := cfg.Window()
	fmt.Printf("computing FTLE on %s: %d particles, %d nodes, steps %d..%d\n",
		cfg.Model, len(seeds), series.NodeCount(), window.Initial, window.Final)
	start := time.Now()

	var res *ftle.Result
	if v.GetBool("live") {
		res, err = viz.RunWithProgress(ctx, cfg.Model, func(ctx context.Context, progress func(dynamo.Direction, int, int)) (*ftle.Result, error) {
			opts.Progress = progress
			return ftle.Compute(ctx, series, seeds, window, opts)
		})
	} else {
		res, err = ftle.Compute(ctx, series, seeds, window, opts)
	}
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	sinks := ftle.Sinks{ftle.SinkFunc(report)}
	if path := v.GetString("json"); path != "" {
		sinks = append(sinks, ftle.SinkFunc(func(ctx context.Context, info ftle.RunInfo, res *ftle.Result) error {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			return storage.ExportJSON(f, info, res)
		}))
	}
	if v.GetBool("save") {
		st := storage.New(dataDir)
		sinks = append(sinks, ftle.SinkFunc(func(ctx context.Context, info ftle.RunInfo, res *ftle.Result) error {
			runID, err := st.Save(info, res)
			if err != nil {
				return err
			}
			fmt.Printf("run id: %s\n", runID)
			return nil
		}))
	}
	return sinks.Consume(ctx, ftle.NewRunInfo(cfg.Model, series, len(seeds), window, opts), res)
}

func report(_ context.Context, info ftle.RunInfo, res *ftle.Result) error {
	fmt.Println(viz.SummaryPanel("forward", analysis.Summarize(res.Forward.FTLE())))
	fmt.Println(viz.SummaryPanel("backward", analysis.Summarize(res.Backward.FTLE())))
	for _, f := range []*ftle.Field{&res.Forward, &res.Backward} {
		failures := f.Failures()
		if len(failures) == 0 {
			continue
		}
		fmt.Printf("%s: %d of %d particles failed, first: %v\n", f.Direction, len(failures), f.Len(), failures[0].Err)
	}
	return nil
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
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tPARTICLES\tWINDOW\tINTEG\tMODE\tFWD_MEAN\tBWD_MEAN")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g..%g\t%s\t%s\t%.4g\t%.4g\n",
			run.ID,
			run.Model,
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.InitialTime,
			run.FinalTime,
			run.Integrator,
			run.Mode,
			metricOrNaN(run.Metrics, "forward_mean"),
			metricOrNaN(run.Metrics, "backward_mean"),
		)
	}

	return w.Flush()
}

func metricOrNaN(m map[string]float64, key string) float64 {
	if x, ok := m[key]; ok {
		return x
	}
	return math.NaN()
}

func pickField(res *ftle.Result, name string) (*ftle.Field, error) {
	switch name {
	case "forward":
		return &res.Forward, nil
	case "backward":
		return &res.Backward, nil
	default:
		return nil, fmt.Errorf("unknown direction: %s (forward, backward)", name)
	}
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, res, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	field, err := pickField(res, v.GetString("direction"))
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s  window: t=%g..%g  neighborhood: %d  %s/%s/%s\n\n",
		meta.Model, meta.InitialTime, meta.FinalTime, meta.Neighborhood, meta.Integrator, meta.Scheme, meta.Mode)

	values := field.FTLE()
	fmt.Println(viz.SummaryPanel(field.Direction.String()+" ftle", analysis.Summarize(values)))
	fmt.Println(viz.SummaryPanel(field.Direction.String()+" isotropy", analysis.Summarize(field.Isotropy())))
	fmt.Printf("  %s\n\n", viz.Sparkline(values, v.GetInt("width")))

	view := mapView()
	if v.GetBool("trajectories") {
		fmt.Print(view.Trajectories(field.Trajectories))
		return nil
	}

	seeds := make([]r3.Vec, field.Len())
	neighbors := make([][]int, field.Len())
	for i, p := range field.Particles {
		seeds[i] = p.Seed
		neighbors[i] = p.Neighbors
	}
	fmt.Print(view.Points(seeds))

	ridges := analysis.Ridges(values, neighbors, v.GetFloat64("ridge"))
	fmt.Printf("\n%s: %d ridge particles\n", viz.Title.Render("ridges"), len(ridges))
	if len(ridges) > 0 {
		pts := make([]r3.Vec, len(ridges))
		for i, j := range ridges {
			pts[i] = seeds[j]
		}
		fmt.Print(view.Points(pts))
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, res, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	if res.Forward.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("particles: %d\n\n", meta.Particles)

	bins := v.GetInt("bins")
	for _, f := range []*ftle.Field{&res.Forward, &res.Backward} {
		h := analysis.NewHistogram(f.FTLE(), bins)
		fmt.Println(viz.PlotHistogram(h, f.Direction.String()+" ftle", 80, 10))
		fmt.Println()
	}

	// Gradient FTLE against the pair-separation estimate, in particle order.
	fwd := res.Forward.FTLE()
	pairs := analysis.PairExponents(&res.Forward)
	a, b := make([]float64, 0, len(fwd)), make([]float64, 0, len(fwd))
	for i := range fwd {
		if math.IsNaN(fwd[i]) || math.IsInf(fwd[i], 0) || math.IsNaN(pairs[i]) {
			continue
		}
		a = append(a, fwd[i])
		b = append(b, pairs[i])
	}
	if len(a) < 2 {
		return nil
	}
	fmt.Println(viz.PlotSeries([][]float64{a, b}, "forward ftle (cyan) vs pair separation (magenta)", 80, 12))
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	rows, err := st.LoadFields(args[0])
	if err != nil {
		return err
	}
	return storage.ExportRowsCSV(os.Stdout, rows)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, res, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta.RunInfo, res)
}

func mapView() viz.MapView {
	return viz.MapView{
		Width:     v.GetInt("width"),
		Height:    v.GetInt("height"),
		Azimuth:   v.GetFloat64("azimuth") * math.Pi / 180,
		Elevation: v.GetFloat64("elevation") * math.Pi / 180,
	}
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	_, res, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	field, err := pickField(res, v.GetString("direction"))
	if err != nil {
		return err
	}

	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	defer f.Close()

	caption := field.Direction.String() + " ftle"
	if v.GetBool("trajectories") {
		err = export.TrajectoriesSVG(f, mapView(), field.Trajectories, field.FTLE(), caption, v.GetFloat64("scale"))
	} else {
		seeds := make([]r3.Vec, field.Len())
		for i, p := range field.Particles {
			seeds[i] = p.Seed
		}
		err = export.FieldSVG(f, mapView(), seeds, field.FTLE(), caption, v.GetFloat64("scale"))
	}
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[1])
	return nil
}

// sweepScore rates a result; lower is better.
func sweepScore(name string) (func(*ftle.Result) float64, error) {
	switch name {
	case "spread":
		return func(res *ftle.Result) float64 {
			return analysis.Summarize(res.Forward.FTLE()).StdDev
		}, nil
	case "pair-gap":
		return func(res *ftle.Result) float64 {
			fwd := res.Forward.FTLE()
			gaps := make([]float64, 0, len(fwd))
			for i, pe := range analysis.PairExponents(&res.Forward) {
				gaps = append(gaps, math.Abs(fwd[i]-pe))
			}
			return analysis.Summarize(gaps).Mean
		}, nil
	default:
		return nil, fmt.Errorf("unknown score: %s (spread, pair-gap)", name)
	}
}

func sweepOptions(cmd *cobra.Command, args []string) error {
	cfg, series, seeds, opts, err := prepare(args[0])
	if err != nil {
		return err
	}
	score, err := sweepScore(v.GetString("score"))
	if err != nil {
		return err
	}
	sizes, err := cmd.Flags().GetIntSlice("neighborhoods")
	if err != nil {
		return err
	}
	substeps, err := cmd.Flags().GetIntSlice("substep-grid")
	if err != nil {
		return err
	}

	grid, err := optim.NewGridSearch([]string{"neighborhood", "substeps"}, [][]float64{floatsOf(sizes), floatsOf(substeps)})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("sweeping %d settings for %s (%d particles, score %s)\n\n", grid.Size(), cfg.Model, len(seeds), v.GetString("score"))
	best, bestScore, trials, err := grid.Search(ctx, func(ctx context.Context, p map[string]float64) (float64, error) {
		o := opts
		o.Neighborhood = int(p["neighborhood"])
		o.SubSteps = int(p["substeps"])
		res, err := ftle.Compute(ctx, series, seeds, cfg.Window(), o)
		if err != nil {
			return math.NaN(), err
		}
		return score(res), nil
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NEIGHBORHOOD\tSUBSTEPS\tSCORE")
	for _, tr := range trials {
		result := fmt.Sprintf("%.6g", tr.Score)
		if tr.Err != nil {
			result = "error: " + tr.Err.Error()
		}
		fmt.Fprintf(w, "%.0f\t%.0f\t%s\n", tr.Params["neighborhood"], tr.Params["substeps"], result)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best == nil {
		return fmt.Errorf("no setting produced a score")
	}
	fmt.Printf("\nbest: neighborhood %.0f, substeps %.0f (score %.6g)\n", best["neighborhood"], best["substeps"], bestScore)
	return nil
}

func floatsOf(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, series, seeds, opts, err := prepare(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()

	fmt.Printf("comparing integrators for %s (%d particles, %d substeps, %s)\n\n", cfg.Model, len(seeds), opts.SubSteps, opts.Mode)
	fmt.Printf("%-12s  %12s  %12s  %8s  %12s\n", "integrator", "fwd_mean", "bwd_mean", "valid", "time_ms")
	fmt.Println(strings.Repeat("-", 64))

	for _, name := range args[1:] {
		opts.Integrator = name
		start := time.Now()
		res, err := ftle.Compute(ctx, series, seeds, cfg.Window(), opts)
		elapsed := time.Since(start)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Printf("%-12s  error: %v\n", name, err)
			continue
		}

		fwd := analysis.Summarize(res.Forward.FTLE())
		bwd := analysis.Summarize(res.Backward.FTLE())
		fmt.Printf("%-12s  %12.6f  %12.6f  %8d  %12.2f\n", name, fwd.Mean, bwd.Mean,
			res.Forward.Valid()+res.Backward.Valid(), float64(elapsed.Microseconds())/1000)
	}
	return nil
}

func writeDataset(cmd *cobra.Command, args []string) error {
	model, path := args[0], args[1]
	cfg := config.DefaultConfig()
	if name := v.GetString("preset"); name != "" {
		cfg = config.GetPreset(model, name)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets(model))
		}
	}
	cfg.Model = model
	if v.IsSet("steps") {
		cfg.Steps = v.GetInt("steps")
	}
	if v.IsSet("dt") {
		cfg.Dt = v.GetFloat64("dt")
	}

	surf, err := cfg.Surface()
	if err != nil {
		return err
	}
	series, err := models.Sample(surf, cfg.Steps, cfg.Dt)
	if err != nil {
		return err
	}
	if err := storage.SaveDataset(path, series); err != nil {
		return err
	}
	logger.Info("dataset written", "path", path, "model", model, "steps", series.Len(), "nodes", series.NodeCount())
	fmt.Printf("wrote %s: %d steps, %d nodes, %d triangles\n", path, series.Len(), series.NodeCount(), len(series.Triangles(0)))
	return nil
}
