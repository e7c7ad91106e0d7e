package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/vhr-sample/internal/design"
	"github.com/sells-group/vhr-sample/internal/model"
	"github.com/sells-group/vhr-sample/internal/raster"
	"github.com/sells-group/vhr-sample/internal/report"
	"github.com/sells-group/vhr-sample/internal/sampling"
	"github.com/sells-group/vhr-sample/internal/vector"
)

var sampleCmd = &cobra.Command{
	Use:   "sample <strata.shp> <map.tif> <out.shp|out.geojson>",
	Short: "Draw stage-2 reference pixels inside the selected tiles",
	Long: `Draws sample pixels inside the tiles selected by stratify and writes each
as the square footprint of its pixel, with the stage-1, stage-2 and final
inclusion probabilities.

In random mode --size pixels are drawn in every selected tile, away from
the tile edge by --margin pixels. In stratified mode the union of selected
tiles is sampled per map class with --allocation points per class.

Examples:
  vhr-sample sample strata.shp change.tif points.shp --size 20 --seed 42
  vhr-sample sample strata.shp change.tif points.geojson --mode stratified --allocation "50;30;20" --size 100`,
	Args: cobra.ExactArgs(3),
	RunE: runSample,
}

func init() {
	addSampleFlags(sampleCmd.Flags())
	rootCmd.AddCommand(sampleCmd)
}

func addSampleFlags(f *pflag.FlagSet) {
	f.String("mode", "", "random or stratified (overrides stage2.mode)")
	f.Int("size", 0, "points per tile in random mode, total points in stratified mode (overrides stage2.size)")
	f.String("allocation", "", "points per map class in stratified mode, e.g. \"50;30;20\"")
	f.String("mask", "", "map values never sampled in stratified mode (overrides stage2.mask)")
	f.Int("margin", 0, "pixels kept clear of the tile edge in random mode (overrides stage2.margin)")
	f.Uint64("seed", 0, "random seed, 0 seeds from the clock (overrides sampling.seed)")
	f.String("summary", "", "write a design summary (.yaml or .xlsx)")
}

func runSample(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := zap.L().With(zap.String("command", "sample"))
	strataPath, mapPath, outPath := args[0], args[1], args[2]

	s2, err := stage2Config(cmd)
	if err != nil {
		return err
	}
	summaryPath, _ := cmd.Flags().GetString("summary")

	d := design.New(seedFlag(cmd))
	run, err := startRun(ctx, model.RunStageSample, d.Seed(), map[string]any{
		"strata":     strataPath,
		"map":        mapPath,
		"mode":       string(s2.Mode),
		"size":       s2.Size,
		"allocation": s2.Allocation,
		"mask":       s2.Mask,
		"margin":     s2.Margin,
	})
	if err != nil {
		return err
	}

	return run.finish(ctx, func() error {
		layer, err := vector.LoadTiles(strataPath)
		if err != nil {
			return err
		}
		h, err := raster.TIFFStore{}.Open(mapPath)
		if err != nil {
			return err
		}

		s, err := d.Sample(layer.Tiles, h, s2)
		if err != nil {
			return err
		}

		projection := h.Projection()
		if projection == "" {
			projection = layer.Projection
		}
		if err := vector.SavePoints(outPath, s.Points, h.Transform(), projection); err != nil {
			return err
		}
		if err := run.savePoints(ctx, s.Points); err != nil {
			return err
		}
		if summaryPath != "" {
			if err := writeSummary(summaryPath, &report.Summary{
				RunID:  run.ID(),
				Seed:   d.Seed(),
				Stage1: report.Stage1FromTiles(layer.Tiles),
				Stage2: report.Stage2FromSample(s),
			}); err != nil {
				return err
			}
		}

		log.Info("sample written",
			zap.String("output", outPath),
			zap.Int("points", len(s.Points)),
			zap.Uint64("seed", d.Seed()),
			zap.String("run_id", run.ID()),
		)
		return nil
	}())
}

func stage2Config(cmd *cobra.Command) (design.Stage2Config, error) {
	f := cmd.Flags()

	modeName := cfg.Stage2.Mode
	if f.Changed("mode") {
		modeName, _ = f.GetString("mode")
	}
	mode, err := design.ParseMode(modeName)
	if err != nil {
		return design.Stage2Config{}, err
	}

	s2 := design.Stage2Config{
		Mode:       mode,
		Size:       cfg.Stage2.Size,
		Allocation: cfg.Stage2.Allocation,
		Mask:       cfg.Stage2.Mask,
		Margin:     cfg.Stage2.Margin,
	}
	if f.Changed("size") {
		s2.Size, _ = f.GetInt("size")
	}
	if f.Changed("margin") {
		s2.Margin, _ = f.GetInt("margin")
	}
	for flag, dst := range map[string]*[]int{
		"allocation": &s2.Allocation,
		"mask":       &s2.Mask,
	} {
		if !f.Changed(flag) {
			continue
		}
		s, _ := f.GetString(flag)
		if *dst, err = sampling.ParseIntList(flag, strings.TrimSpace(s)); err != nil {
			return design.Stage2Config{}, err
		}
	}
	return s2, s2.Validate()
}
