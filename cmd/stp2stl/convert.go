package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/philipparndt/stp2stl/internal/config"
	"github.com/philipparndt/stp2stl/internal/pipeline"
	"github.com/philipparndt/stp2stl/pkg/brep"
	"github.com/philipparndt/stp2stl/pkg/freecad"
	"github.com/philipparndt/stp2stl/pkg/kernel"
	"github.com/philipparndt/stp2stl/pkg/watcher"
)

// watchDebounce waits for editors and exporters to finish writing
const watchDebounce = 500 * time.Millisecond

var convertOpts struct {
	output      string
	format      string
	header      string
	linear      float64
	angular     float64
	maxDepth    int
	workers     int
	merge       string
	weldEpsilon float64
	allowEmpty  bool
	scale       float64
	scaleX      float64
	scaleY      float64
	scaleZ      float64
	mmToM       bool
	split       bool
	gltf        string
	preview     bool
	watch       bool
	freecadPath string
	interchange bool
}

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert STEP files to STL",
	Long: `Convert one or more STEP (.stp, .step) files to STL. Arguments may be glob
patterns; "**" matches any number of directories. Each output is written
next to its input unless --output names a file or directory.

Exit status is 0 on success, 2 when faces or shapes were skipped and 1 when
an input could not be converted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	defaults := config.Default()
	f := convertCmd.Flags()
	f.StringVarP(&convertOpts.output, "output", "o", "", "Output file, or directory for several inputs")
	f.StringVarP(&convertOpts.format, "format", "f", defaults.Format.String(), "STL encoding: ascii or binary")
	f.StringVar(&convertOpts.header, "header", "", "Text for the 80-byte binary header")
	f.Float64Var(&convertOpts.linear, "linear-deflection", defaults.LinearDeflection, "Largest distance between mesh and surface, in model units")
	f.Float64Var(&convertOpts.angular, "angular-deflection", defaults.AngularDeflection, "Largest normal change across one facet, in degrees")
	f.IntVar(&convertOpts.maxDepth, "max-depth", defaults.MaxDepth, "Subdivision levels per face")
	f.IntVarP(&convertOpts.workers, "workers", "j", 0, "Faces tessellated in parallel (0 = number of CPUs)")
	f.StringVar(&convertOpts.merge, "merge", defaults.Merge.String(), "Combine shapes by concatenate or weld")
	f.Float64Var(&convertOpts.weldEpsilon, "weld-epsilon", defaults.WeldEpsilon, "Distance below which weld merges vertices")
	f.BoolVar(&convertOpts.allowEmpty, "allow-empty", false, "Write a valid empty STL instead of failing")
	f.Float64Var(&convertOpts.scale, "scale", 0, "Uniform scale factor for all axes")
	f.Float64Var(&convertOpts.scaleX, "scale-x", 0, "Scale factor for the X axis")
	f.Float64Var(&convertOpts.scaleY, "scale-y", 0, "Scale factor for the Y axis")
	f.Float64Var(&convertOpts.scaleZ, "scale-z", 0, "Scale factor for the Z axis")
	f.BoolVar(&convertOpts.mmToM, "mm-to-m", false, "Scale by 0.001 to convert millimeters to meters")
	f.BoolVar(&convertOpts.split, "split-shapes", false, "Write one STL per shape")
	f.StringVar(&convertOpts.gltf, "gltf", "", "Also write a glTF scene: gltf or glb")
	f.BoolVar(&convertOpts.preview, "preview", false, "Also render a PNG preview")
	f.BoolVarP(&convertOpts.watch, "watch", "w", false, "Convert again whenever an input changes")
	f.StringVar(&convertOpts.freecadPath, "freecad", "", "FreeCAD installation root (default $FREECAD_PATH, then PATH)")
	f.BoolVar(&convertOpts.interchange, "interchange", false, "Read B-Rep interchange JSON instead of STEP")
}

// applyFlags overrides cfg with the flags the user set explicitly
func applyFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	var errs []error
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("output", func() { cfg.Output = convertOpts.output })
	set("format", func() {
		if err := cfg.Format.UnmarshalText([]byte(convertOpts.format)); err != nil {
			errs = append(errs, fmt.Errorf("--format: %w", err))
		}
	})
	set("header", func() { cfg.Header = convertOpts.header })
	set("linear-deflection", func() { cfg.LinearDeflection = convertOpts.linear })
	set("angular-deflection", func() { cfg.AngularDeflection = convertOpts.angular })
	set("max-depth", func() { cfg.MaxDepth = convertOpts.maxDepth })
	set("workers", func() { cfg.Workers = convertOpts.workers })
	set("merge", func() {
		if err := cfg.Merge.UnmarshalText([]byte(convertOpts.merge)); err != nil {
			errs = append(errs, fmt.Errorf("--merge: %w", err))
		}
	})
	set("weld-epsilon", func() { cfg.WeldEpsilon = convertOpts.weldEpsilon })
	set("allow-empty", func() { cfg.AllowEmpty = convertOpts.allowEmpty })
	set("mm-to-m", func() { cfg.Scale.MMToM = convertOpts.mmToM })
	set("scale", func() { cfg.Scale.Uniform = convertOpts.scale })
	set("scale-x", func() { cfg.Scale.X = convertOpts.scaleX })
	set("scale-y", func() { cfg.Scale.Y = convertOpts.scaleY })
	set("scale-z", func() { cfg.Scale.Z = convertOpts.scaleZ })
	set("split-shapes", func() { cfg.SplitShapes = convertOpts.split })
	set("gltf", func() { cfg.GLTF = convertOpts.gltf })
	set("preview", func() { cfg.Preview = convertOpts.preview })
	set("freecad", func() { cfg.FreeCADPath = convertOpts.freecadPath })
	return errors.Join(errs...)
}

func newOpener(cfg *config.Config, logger *slog.Logger) (kernel.Opener, func(string) bool) {
	if convertOpts.interchange {
		return brep.Opener{}, pipeline.IsInterchangeFile
	}
	return freecad.NewBridge(cfg.FreeCADPath, cfg.LinearDeflection, logger), pipeline.IsStepFile
}

func runConvert(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, cmd.Flags()); err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	opener, accept := newOpener(cfg, logger)
	conv, err := pipeline.New(opener, opts, logger)
	if err != nil {
		return err
	}

	files, skipped := pipeline.ExpandInputs(args, accept)
	for _, s := range skipped {
		logger.Warn("input skipped", "error", s)
	}
	if len(files) == 0 {
		return errors.New("no input files to convert")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	batch, err := conv.Run(ctx, files)
	if err != nil {
		return err
	}
	batch.Skipped = skipped
	printBatch(out, batch)

	if convertOpts.watch {
		return watch(ctx, conv, files, out, logger)
	}
	if status := batch.Status(); status != pipeline.StatusOK {
		return &exitError{code: status.ExitCode()}
	}
	return nil
}

func watch(ctx context.Context, conv *pipeline.Converter, files []string, out io.Writer, logger *slog.Logger) error {
	fw, err := watcher.NewFileWatcher(watchDebounce, logger)
	if err != nil {
		return err
	}
	defer fw.Close()

	var mu sync.Mutex
	err = fw.Watch(files, func(path string) {
		batch, err := conv.Run(ctx, []string{path})
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			logger.Error("conversion failed", "input", path, "error", err)
			return
		}
		printBatch(out, batch)
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("Watching %d file(s), press Ctrl+C to stop", len(files))))
	if err := fw.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
