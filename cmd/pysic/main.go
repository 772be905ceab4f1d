package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/calculator"
	"github.com/petrichorcode/pysic/internal/compute"
	"github.com/petrichorcode/pysic/internal/config"
	"github.com/petrichorcode/pysic/internal/md"
	"github.com/petrichorcode/pysic/internal/neighbor"
	"github.com/petrichorcode/pysic/internal/relax"
	"github.com/petrichorcode/pysic/internal/storage"
	"github.com/petrichorcode/pysic/internal/viz"
)

var (
	configFile string
	preset     string
	noSave     bool
	verbose    bool
	steps      int
	dt         float64
	live       bool
	pick       bool
	asJSON     bool
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

var log = slog.New(slog.NewTextHandler(os.Stderr, nil))

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pysic",
		Short:         "interatomic potentials and molecular dynamics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
		// without a subcommand, pick a preset and watch it run
		RunE: func(cmd *cobra.Command, args []string) error {
			pick, live = true, true
			return runMD(cmd, args)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String("data", ".pysic", "data directory")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.Float64("skin", -1, "neighbor list skin, negative to use the configuration's")
	pf.String("backend", "cpu", "compute backend ("+strings.Join(compute.Names(), ", ")+")")
	pf.Int("workers", 0, "force evaluation workers, zero for one per CPU")
	for _, name := range []string{"data", "log-level", "skin", "backend", "workers"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
	viper.SetEnvPrefix("PYSIC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	addSource := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&configFile, "config", "", "calculation file (yaml)")
		cmd.Flags().StringVar(&preset, "preset", "", "use a preset, as system/name")
		cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	}

	calcCmd := &cobra.Command{
		Use:   "calc",
		Short: "compute energy, forces, stress and electronegativities",
		Args:  cobra.NoArgs,
		RunE:  runCalc,
	}
	addSource(calcCmd)

	neighborsCmd := &cobra.Command{
		Use:   "neighbors",
		Short: "build and summarize the neighbor lists",
		Args:  cobra.NoArgs,
		RunE:  runNeighbors,
	}
	addSource(neighborsCmd)
	neighborsCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every neighbor")

	mdCmd := &cobra.Command{
		Use:   "md",
		Short: "run velocity Verlet molecular dynamics",
		Args:  cobra.NoArgs,
		RunE:  runMD,
	}
	addSource(mdCmd)
	mdCmd.Flags().IntVar(&steps, "steps", 0, "number of steps, zero for the configured count")
	mdCmd.Flags().Float64Var(&dt, "dt", 0, "timestep, zero for the configured one")
	mdCmd.Flags().BoolVar(&live, "live", false, "show the run in the terminal")
	mdCmd.Flags().BoolVar(&pick, "pick", false, "choose a preset interactively")

	relaxCmd := &cobra.Command{
		Use:   "relax",
		Short: "equilibrate charges against electronegativities",
		Args:  cobra.NoArgs,
		RunE:  runRelax,
	}
	addSource(relaxCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "export the run as JSON")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the energies of an MD run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [system]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			systems := config.ListSystems()
			if len(args) == 1 {
				systems = args
			}
			for _, system := range systems {
				names := config.ListPresets(system)
				if len(names) == 0 {
					return fmt.Errorf("no presets for system: %s", system)
				}
				fmt.Println(titleStyle.Render(system))
				for _, name := range names {
					cfg := config.GetPreset(system, name)
					fmt.Printf("  %-10s %d atoms\n", name, len(cfg.Atoms))
				}
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "write a calculation file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if preset != "" {
				var err error
				if cfg, err = presetConfig(preset); err != nil {
					return err
				}
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%s)\n", args[0], cfg.Name)
			return nil
		},
	}
	initCmd.Flags().StringVar(&preset, "preset", "", "start from a preset, as system/name")

	rootCmd.AddCommand(calcCmd, neighborsCmd, mdCmd, relaxCmd, listCmd, showCmd, plotCmd, presetsCmd, initCmd)
	return rootCmd
}

func setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func presetConfig(name string) (*config.Config, error) {
	system, p, ok := strings.Cut(name, "/")
	if !ok {
		return nil, fmt.Errorf("preset %q is not of the form system/name", name)
	}
	cfg := config.GetPreset(system, p)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s", name)
	}
	return cfg, nil
}

// loadConfig reads --config, else --preset, else the default configuration.
func loadConfig() (*config.Config, error) {
	switch {
	case configFile != "":
		return config.Load(configFile)
	case preset != "":
		return presetConfig(preset)
	}
	return config.DefaultConfig(), nil
}

func newCalculator(cfg *config.Config) (*calculator.Calculator, error) {
	backend, err := compute.New(viper.GetString("backend"),
		compute.WithWorkers(viper.GetInt("workers")),
		compute.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	skin := cfg.Skin
	if s := viper.GetFloat64("skin"); s >= 0 {
		skin = s
	}
	calc := calculator.New(calculator.NewMirror(backend),
		calculator.WithLogger(log),
		calculator.WithSkin(skin),
	)
	calc.SetStructure(cfg.Structure())

	set, err := cfg.InteractionSet()
	if err != nil {
		return nil, err
	}
	if err := calc.SetPotentials(set); err != nil {
		return nil, err
	}
	cb, err := cfg.CoulombSummation()
	if err != nil {
		return nil, err
	}
	if cb != nil {
		calc.SetCoulomb(cb)
	}
	if r := cfg.Relaxer(); r != nil {
		if d, ok := r.(*relax.Damped); ok {
			d.Logger = log
		}
		calc.SetChargeRelaxation(r)
	}
	return calc, nil
}

func openStore() (*storage.Store, error) {
	st := storage.New(viper.GetString("data"))
	return st, st.Init()
}

func field(label string, format string, args ...any) {
	fmt.Println(labelStyle.Render(label) + valueStyle.Render(fmt.Sprintf(format, args...)))
}

func runCalc(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	calc, err := newCalculator(cfg)
	if err != nil {
		return err
	}

	res, err := evaluate(calc)
	if err != nil {
		return err
	}
	printCalculation(cfg.Name, res)
	return saveCalculation(cfg, calc, storage.KindCalculation, res)
}

func evaluate(calc *calculator.Calculator) (*storage.Calculation, error) {
	energy, err := calc.Energy()
	if err != nil {
		return nil, err
	}
	forces, err := calc.Forces()
	if err != nil {
		return nil, err
	}
	stress, err := calc.Stress()
	if err != nil {
		return nil, err
	}
	chi, err := calc.Electronegativities()
	if err != nil {
		return nil, err
	}

	st := calc.Structure()
	res := &storage.Calculation{Energy: energy, Stress: stress}
	for i, a := range st.Atoms {
		res.Atoms = append(res.Atoms, storage.AtomResult{
			Index:             i,
			Symbol:            a.Symbol,
			Charge:            a.Charge,
			Force:             forces[i],
			Electronegativity: chi[i],
		})
	}
	return res, nil
}

func printCalculation(name string, res *storage.Calculation) {
	fmt.Println(titleStyle.Render(strings.ToUpper(name)))
	field("energy", "%.8f", res.Energy)
	field("stress", "%.6g", res.Stress)
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSYMBOL\tCHARGE\tFX\tFY\tFZ\tCHI")
	for _, a := range res.Atoms {
		fmt.Fprintf(w, "%d\t%s\t%.5f\t%.6f\t%.6f\t%.6f\t%.5f\n",
			a.Index, a.Symbol, a.Charge, a.Force[0], a.Force[1], a.Force[2], a.Electronegativity)
	}
	w.Flush()
}

func saveCalculation(cfg *config.Config, calc *calculator.Calculator, kind storage.Kind, res *storage.Calculation) error {
	if noSave {
		return nil
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	meta := storage.RunMetadata{
		Kind:    kind,
		Name:    cfg.Name,
		Atoms:   len(res.Atoms),
		Backend: viper.GetString("backend"),
	}
	if l := calc.NeighborList(); l != nil {
		meta.Strategy = l.Strategy().String()
	}
	id, err := store.SaveCalculation(meta, res)
	if err != nil {
		return err
	}
	fmt.Printf("\nsaved run %s\n", id)
	return nil
}

func runNeighbors(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	calc, err := newCalculator(cfg)
	if err != nil {
		return err
	}
	st := calc.Structure()
	cutoffs := calc.IndividualCutoffs(1)

	skin := cfg.Skin
	if s := viper.GetFloat64("skin"); s >= 0 {
		skin = s
	}
	nm, strategy, err := neighbor.Build(st, cutoffs, skin)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(strings.ToUpper(cfg.Name)))
	field("atoms", "%d", st.Len())
	field("strategy", "%s", strategy)
	field("skin", "%g", skin)
	field("entries", "%d", nm.Entries())
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSYMBOL\tCUTOFF\tNEIGHBORS")
	for i, a := range st.Atoms {
		fmt.Fprintf(w, "%d\t%s\t%g\t%d\n", i, a.Symbol, cutoffs[i], len(nm[i]))
		if !verbose {
			continue
		}
		for _, n := range nm[i] {
			d := st.Atoms[n.Index].Position.Add(st.Cell.Translation(n.Offset)).Sub(a.Position)
			fmt.Fprintf(w, "\t\t-> %d\t%v  r=%.4f\n", n.Index, n.Offset, d.Norm())
		}
	}
	return w.Flush()
}

func runMD(cmd *cobra.Command, args []string) error {
	if pick {
		choice, ok, err := viz.Pick()
		if err != nil || !ok {
			return err
		}
		preset = choice.String()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if steps > 0 {
		cfg.MD.Steps = steps
	}
	if dt > 0 {
		cfg.MD.Timestep = dt
	}
	calc, err := newCalculator(cfg)
	if err != nil {
		return err
	}

	opts := []md.Option{md.WithLogger(log)}
	if !live {
		opts = append(opts, md.WithLogEvery(cfg.MD.LogEvery))
	}
	sim := md.New(calc, cfg.MD.Timestep, opts...)
	drift, kinetic := md.NewEnergyDrift(), md.NewMeanKinetic()
	sim.AddMetric(drift)
	sim.AddMetric(kinetic)

	var frames []md.Frame
	metrics := map[string]float64{}
	if live {
		frames, err = viz.Run(cmd.Context(), sim, cfg.MD.Steps, cfg.Name)
		for _, f := range frames {
			drift.Observe(f)
			kinetic.Observe(f)
		}
		metrics[drift.Name()] = drift.Value()
		metrics[kinetic.Name()] = kinetic.Value()
	} else {
		var res *md.Result
		res, err = sim.Run(cmd.Context(), cfg.MD.Steps)
		if res != nil {
			frames, metrics = res.Frames, res.Metrics
		}
	}
	if errors.Is(err, context.Canceled) {
		log.Warn("md interrupted", "frames", len(frames))
		err = nil
	}
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return nil
	}

	last := frames[len(frames)-1]
	fmt.Println(titleStyle.Render(strings.ToUpper(cfg.Name)))
	field("steps", "%d", last.Step)
	field("time", "%.4f", last.Time)
	field("total", "%.8f", last.Total())
	field("max drift", "%.3e", metrics[drift.Name()])
	field("mean kinetic", "%.6f", metrics[kinetic.Name()])

	if noSave {
		return nil
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	id, err := store.SaveTrajectory(storage.RunMetadata{
		Kind:     storage.KindMD,
		Name:     cfg.Name,
		Atoms:    len(cfg.Atoms),
		Backend:  viper.GetString("backend"),
		Timestep: cfg.MD.Timestep,
		Metrics:  metrics,
	}, frames)
	if err != nil {
		return err
	}
	fmt.Printf("\nsaved run %s\n", id)
	return nil
}

func runRelax(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	calc, err := newCalculator(cfg)
	if err != nil {
		return err
	}
	r := calc.ChargeRelaxation()
	if r == nil {
		r = relax.NewDamped()
	}
	// relax explicitly and evaluate on the relaxed charges as they are
	calc.SetChargeRelaxation(nil)

	before := calc.Structure().Charges()
	if err := r.Relax(calc); err != nil {
		return err
	}
	res, err := evaluate(calc)
	if err != nil {
		return err
	}

	printCalculation(cfg.Name, res)
	chi := make([]float64, len(res.Atoms))
	for i, a := range res.Atoms {
		chi[i] = a.Electronegativity
	}
	fmt.Println()
	field("spread", "%.3e", relax.Spread(chi))
	field("charge moved", "%.5f", chargeMoved(before, calc.Structure()))
	return saveCalculation(cfg, calc, storage.KindRelax, res)
}

func chargeMoved(before []float64, st *atoms.Structure) float64 {
	var moved float64
	for i, q := range st.Charges() {
		d := q - before[i]
		if d > 0 {
			moved += d
		}
	}
	return moved
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(viper.GetString("data")).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tNAME\tTIME\tATOMS\tSTEPS\tENERGY")
	for _, run := range runs {
		energy := run.Metrics["energy"]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.6f\n",
			run.ID[:8],
			run.Kind,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Atoms,
			run.Steps,
			energy,
		)
	}
	return w.Flush()
}

func resolve(prefix string) (*storage.Store, string, error) {
	store := storage.New(viper.GetString("data"))
	id, err := store.Resolve(prefix)
	return store, id, err
}

func showRun(cmd *cobra.Command, args []string) error {
	store, id, err := resolve(args[0])
	if err != nil {
		return err
	}
	if asJSON {
		return store.Export(id, os.Stdout)
	}

	meta, err := store.Load(id)
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render(strings.ToUpper(meta.Name)))
	field("id", "%s", meta.ID)
	field("kind", "%s", meta.Kind)
	field("time", "%s", meta.Timestamp.Format("2006-01-02 15:04:05"))
	field("atoms", "%d", meta.Atoms)
	field("backend", "%s", meta.Backend)
	if meta.Strategy != "" {
		field("strategy", "%s", meta.Strategy)
	}
	if meta.Kind == storage.KindMD {
		field("timestep", "%g", meta.Timestep)
		field("steps", "%d", meta.Steps)
	}
	for name, v := range meta.Metrics {
		field(name, "%.6g", v)
	}

	if meta.Kind == storage.KindMD {
		return nil
	}
	results, err := store.LoadAtoms(id)
	if err != nil {
		return err
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSYMBOL\tCHARGE\tFX\tFY\tFZ\tCHI")
	for _, a := range results {
		fmt.Fprintf(w, "%d\t%s\t%.5f\t%.6f\t%.6f\t%.6f\t%.5f\n",
			a.Index, a.Symbol, a.Charge, a.Force[0], a.Force[1], a.Force[2], a.Electronegativity)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	store, id, err := resolve(args[0])
	if err != nil {
		return err
	}
	meta, err := store.Load(id)
	if err != nil {
		return err
	}
	if meta.Kind != storage.KindMD {
		return fmt.Errorf("run %s is a %s run, only md runs have energies to plot", id[:8], meta.Kind)
	}
	frames, err := store.LoadFrames(id)
	if err != nil {
		return err
	}
	if len(frames) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("system: %s\n", meta.Name)
	fmt.Printf("frames: %d\n\n", len(frames))

	series := []struct {
		caption string
		value   func(md.Frame) float64
	}{
		{"total energy", md.Frame.Total},
		{"kinetic energy", func(f md.Frame) float64 { return f.Kinetic }},
		{"potential energy", func(f md.Frame) float64 { return f.Potential }},
	}
	for _, s := range series {
		data := make([]float64, len(frames))
		for i, f := range frames {
			data[i] = s.value(f)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}
