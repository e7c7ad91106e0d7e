package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/vhr-sample/internal/design"
	"github.com/sells-group/vhr-sample/internal/model"
	"github.com/sells-group/vhr-sample/internal/report"
	"github.com/sells-group/vhr-sample/internal/sampling"
	"github.com/sells-group/vhr-sample/internal/vector"
)

var stratifyCmd = &cobra.Command{
	Use:   "stratify <prep.shp> <out.shp>",
	Short: "Stratify tiles by change share and select the stage-1 sample",
	Long: `Ranks prepared tiles by their share of total change, splits them into a
high-change and a low-change stratum at --threshold of cumulative change,
allocates --size tiles between the strata and draws them without
replacement. Only selected tiles are written unless --all is given.

Examples:
  # Neyman allocation of 100 tiles
  vhr-sample stratify prep.shp strata.shp --size 100 --seed 42

  # Fixed allocation with a design summary
  vhr-sample stratify prep.shp strata.shp --method specified --allocation "30;70" --summary design.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runStratify,
}

func init() {
	addStratifyFlags(stratifyCmd.Flags())
	rootCmd.AddCommand(stratifyCmd)
}

func addStratifyFlags(f *pflag.FlagSet) {
	f.String("method", "", "allocation method: neyman, equal or specified (overrides stage1.allocation)")
	f.Int("size", 0, "total number of tiles to select (overrides stage1.size)")
	f.Float64("threshold", 0, "cumulative change share closing stratum 1 (overrides stage1.threshold)")
	f.String("allocation", "", "tiles per stratum for --method specified, e.g. \"30;70\"")
	f.Uint64("seed", 0, "random seed, 0 seeds from the clock (overrides sampling.seed)")
	f.Bool("all", false, "write every tile, not only the selected ones")
	f.String("summary", "", "write a design summary (.yaml or .xlsx)")
}

func runStratify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := zap.L().With(zap.String("command", "stratify"))
	inPath, outPath := args[0], args[1]

	s1, err := stage1Config(cmd)
	if err != nil {
		return err
	}
	all, _ := cmd.Flags().GetBool("all")
	summaryPath, _ := cmd.Flags().GetString("summary")

	d := design.New(seedFlag(cmd))
	run, err := startRun(ctx, model.RunStageStratify, d.Seed(), map[string]any{
		"input":     inPath,
		"method":    string(s1.Method),
		"size":      s1.Size,
		"threshold": s1.Threshold,
		"specified": s1.Specified,
	})
	if err != nil {
		return err
	}

	return run.finish(ctx, func() error {
		layer, err := vector.LoadTiles(inPath)
		if err != nil {
			return err
		}
		res, err := d.Stratify(layer.Tiles, s1)
		if err != nil {
			return err
		}

		out := model.SelectedTiles(layer.Tiles)
		if all {
			out = layer.Tiles
		}
		if err := vector.SaveTiles(outPath, layer, out, vector.ColumnsPrep|vector.ColumnsStrata); err != nil {
			return err
		}
		if err := run.saveTiles(ctx, layer.Tiles); err != nil {
			return err
		}
		if summaryPath != "" {
			if err := writeSummary(summaryPath, &report.Summary{
				RunID:  run.ID(),
				Seed:   d.Seed(),
				Stage1: report.Stage1FromResult(s1, res),
			}); err != nil {
				return err
			}
		}

		log.Info("strata written",
			zap.String("output", outPath),
			zap.Int("written", len(out)),
			zap.Uint64("seed", d.Seed()),
			zap.String("run_id", run.ID()),
		)
		return nil
	}())
}

func stage1Config(cmd *cobra.Command) (design.Stage1Config, error) {
	f := cmd.Flags()

	methodName := cfg.Stage1.Allocation
	if f.Changed("method") {
		methodName, _ = f.GetString("method")
	}
	method, err := sampling.ParseMethod(methodName)
	if err != nil {
		return design.Stage1Config{}, err
	}

	s1 := design.Stage1Config{
		Method:    method,
		Size:      cfg.Stage1.Size,
		Threshold: cfg.Stage1.Threshold,
		Specified: cfg.Stage1.Specified,
	}
	if f.Changed("size") {
		s1.Size, _ = f.GetInt("size")
	}
	if f.Changed("threshold") {
		s1.Threshold, _ = f.GetFloat64("threshold")
	}
	if f.Changed("allocation") {
		s, _ := f.GetString("allocation")
		if s1.Specified, err = sampling.ParseIntList("allocation", s); err != nil {
			return design.Stage1Config{}, err
		}
	}
	return s1, nil
}

func seedFlag(cmd *cobra.Command) uint64 {
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		return seed
	}
	return cfg.Sampling.Seed
}

// writeSummary picks the summary format from the file extension.
func writeSummary(path string, s *report.Summary) error {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return report.WriteSummary(path, s)
	}
	return report.WriteYAML(path, s)
}
