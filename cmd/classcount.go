package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vhr-sample/internal/raster"
	"github.com/sells-group/vhr-sample/internal/report"
	"github.com/sells-group/vhr-sample/internal/sampling"
)

var classcountCmd = &cobra.Command{
	Use:   "classcount <map.tif>",
	Short: "Count pixels per map class",
	Long:  "Prints the number of pixels and the share of counted area of every class, ignoring no-data values.",
	Args:  cobra.ExactArgs(1),
	RunE:  runClasscount,
}

func init() {
	f := classcountCmd.Flags()
	f.String("ndv", "", "no-data values, e.g. \"0;255\" (overrides zonal.no_data)")
	f.String("xlsx", "", "also write the counts to this workbook")

	rootCmd.AddCommand(classcountCmd)
}

func runClasscount(cmd *cobra.Command, args []string) error {
	noData := cfg.Zonal.NoData
	if cmd.Flags().Changed("ndv") {
		s, _ := cmd.Flags().GetString("ndv")
		var err error
		if noData, err = sampling.ParseIntList("ndv", s); err != nil {
			return err
		}
	}

	h, err := raster.TIFFStore{}.Open(args[0])
	if err != nil {
		return err
	}
	counts, err := raster.CountClasses(h, noData)
	if err != nil {
		return err
	}
	formatClassCounts(os.Stdout, counts)

	if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
		if err := report.WriteClassCounts(path, counts); err != nil {
			return err
		}
		zap.L().Info("class counts written", zap.String("output", path))
	}
	return nil
}

// formatClassCounts writes a table of class counts to w.
func formatClassCounts(out io.Writer, counts []raster.ClassCount) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CLASS\tPIXELS\tPERCENT")
	_, _ = fmt.Fprintln(w, "-----\t------\t-------")
	for _, c := range counts {
		_, _ = fmt.Fprintf(w, "%d\t%d\t%.4f\n", c.Class, c.Pixels, c.Percent*100)
	}
	_ = w.Flush()
}
