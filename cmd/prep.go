package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/vhr-sample/internal/model"
	"github.com/sells-group/vhr-sample/internal/prep"
	"github.com/sells-group/vhr-sample/internal/progress"
	"github.com/sells-group/vhr-sample/internal/raster"
	"github.com/sells-group/vhr-sample/internal/sampling"
	"github.com/sells-group/vhr-sample/internal/vector"
)

var prepCmd = &cobra.Command{
	Use:   "prep <tiles.shp> <changemap.tif> <out.shp>",
	Short: "Measure change inside every tile",
	Long: `Computes zonal change statistics for every tile polygon and writes the
tiles with area, proportion, ch_pix and noch_pix columns. Tiles without a
SampID get one.

With --lcmap, tiles whose footprint holds less than --thresh of valid
land-cover pixels are left out.

Examples:
  # Count every non no-data change class
  vhr-sample prep tiles.shp change.tif prep.shp

  # Only classes 3 and 4 are change, require 40% land cover
  vhr-sample prep tiles.shp change.tif prep.shp --strata-values "3;4" --lcmap lc.tif`,
	Args: cobra.ExactArgs(3),
	RunE: runPrep,
}

func init() {
	addPrepFlags(prepCmd.Flags())
	rootCmd.AddCommand(prepCmd)
}

func addPrepFlags(f *pflag.FlagSet) {
	f.String("lcmap", "", "land-cover map restricting tiles to the study area")
	f.Float64("thresh", 0, "minimum valid land-cover proportion (overrides prep.lc_threshold)")
	f.String("ndv", "", "change map no-data values, e.g. \"0;255\" (overrides zonal.no_data)")
	f.String("lc-ndv", "", "land-cover no-data values (overrides prep.lc_no_data)")
	f.String("strata-values", "", "change classes to count (overrides prep.change_classes)")
	f.Int("workers", 0, "concurrent tiles (overrides zonal.workers)")
}

func runPrep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := zap.L().With(zap.String("command", "prep"))
	tilesPath, changePath, outPath := args[0], args[1], args[2]

	opts, err := prepOptions(cmd)
	if err != nil {
		return err
	}
	opts.Progress = progress.Log(log, "prep")
	lcPath, _ := cmd.Flags().GetString("lcmap")

	run, err := startRun(ctx, model.RunStagePrep, 0, map[string]any{
		"tiles":          tilesPath,
		"change_map":     changePath,
		"land_cover":     lcPath,
		"lc_threshold":   opts.LandCoverThreshold,
		"change_no_data": opts.ChangeNoData,
		"change_classes": opts.ChangeClasses,
	})
	if err != nil {
		return err
	}

	return run.finish(ctx, func() error {
		layer, err := vector.LoadTiles(tilesPath)
		if err != nil {
			return err
		}

		var rasters raster.TIFFStore
		change, err := rasters.Open(changePath)
		if err != nil {
			return err
		}
		var landCover raster.Handle
		if lcPath != "" {
			if landCover, err = rasters.Open(lcPath); err != nil {
				return err
			}
		}

		res, err := prep.Run(ctx, layer.Tiles, change, landCover, opts)
		if err != nil {
			return err
		}
		if err := vector.SaveTiles(outPath, layer, res.Tiles, vector.ColumnsPrep); err != nil {
			return err
		}
		if err := run.saveTiles(ctx, res.Tiles); err != nil {
			return err
		}

		log.Info("prep written",
			zap.String("output", outPath),
			zap.Int("tiles", len(res.Tiles)),
			zap.Int("skipped", len(res.Skipped)),
			zap.Int("assigned_ids", res.Assigned),
			zap.String("run_id", run.ID()),
		)
		return nil
	}())
}

func prepOptions(cmd *cobra.Command) (prep.Options, error) {
	opts := prep.Options{
		ChangeNoData:       cfg.Zonal.NoData,
		ChangeClasses:      cfg.Prep.ChangeClasses,
		LandCoverNoData:    cfg.Prep.LandCoverNoData,
		LandCoverThreshold: cfg.Prep.LandCoverThreshold,
		PixelArea:          cfg.Zonal.PixelArea,
		Workers:            cfg.Zonal.Workers,
	}

	f := cmd.Flags()
	if f.Changed("thresh") {
		opts.LandCoverThreshold, _ = f.GetFloat64("thresh")
	}
	if f.Changed("workers") {
		opts.Workers, _ = f.GetInt("workers")
	}
	for flag, dst := range map[string]*[]int{
		"ndv":           &opts.ChangeNoData,
		"lc-ndv":        &opts.LandCoverNoData,
		"strata-values": &opts.ChangeClasses,
	} {
		if !f.Changed(flag) {
			continue
		}
		s, _ := f.GetString(flag)
		v, err := sampling.ParseIntList(flag, s)
		if err != nil {
			return prep.Options{}, err
		}
		*dst = v
	}
	if opts.Workers < 1 {
		return prep.Options{}, eris.Wrap(sampling.NewConfigurationError("workers", "must be >= 1, got %d", opts.Workers), "prep")
	}
	return opts, nil
}
