package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vhr-sample/internal/progress"
	"github.com/sells-group/vhr-sample/internal/raster"
	"github.com/sells-group/vhr-sample/internal/sampling"
)

var strataCmd = &cobra.Command{
	Use:   "strata <changemap.tif> <lcmap.tif> <out.tif>",
	Short: "Combine a change map and a land-cover map into final strata",
	Long: `Builds the strata map used for stage-2 sampling: change classes keep their
change-map value, unchanged pixels become stable forest or stable
non-forest according to the land-cover map, pixels outside the land-cover
map become change no-data and --in-other change classes are folded into
--out-other. Both maps must have the same size.`,
	Args: cobra.ExactArgs(3),
	RunE: runStrata,
}

func init() {
	f := strataCmd.Flags()
	f.Int("in-forest", 2, "land-cover class treated as forest")
	f.Int("out-forest", 5, "strata value for stable forest")
	f.Int("out-nonforest", 6, "strata value for stable non-forest")
	f.String("in-other", "", "change classes folded into --out-other, e.g. \"7;8\"")
	f.Int("out-other", 0, "strata value for --in-other classes")
	f.Int("ndv", 255, "change map no-data value")
	f.Int("lc-ndv", 255, "land-cover no-data value")

	rootCmd.AddCommand(strataCmd)
}

func runStrata(cmd *cobra.Command, args []string) error {
	log := zap.L().With(zap.String("command", "strata"))
	f := cmd.Flags()

	opts := raster.ComposeOptions{Progress: progress.Log(log, "strata")}
	opts.InForest, _ = f.GetInt("in-forest")
	opts.OutForest, _ = f.GetInt("out-forest")
	opts.OutNonForest, _ = f.GetInt("out-nonforest")
	opts.OutOther, _ = f.GetInt("out-other")
	opts.ChangeNoData, _ = f.GetInt("ndv")
	opts.LandCoverNoData, _ = f.GetInt("lc-ndv")
	inOther, _ := f.GetString("in-other")
	var err error
	if opts.InOther, err = sampling.ParseIntList("in-other", inOther); err != nil {
		return err
	}

	var rasters raster.TIFFStore
	change, err := rasters.Open(args[0])
	if err != nil {
		return err
	}
	landCover, err := rasters.Open(args[1])
	if err != nil {
		return err
	}

	out, err := raster.ComposeStrata(change, landCover, opts)
	if err != nil {
		return err
	}
	if err := raster.WriteTIFF(args[2], out); err != nil {
		return err
	}

	cols, rows := out.Size()
	log.Info("strata written", zap.String("output", args[2]), zap.Int("cols", cols), zap.Int("rows", rows))
	return nil
}
