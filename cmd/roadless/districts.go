package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joeblew999/plat-roadless/internal/logger"
	"github.com/joeblew999/plat-roadless/internal/measure"
	"github.com/joeblew999/plat-roadless/internal/selection"
	"github.com/joeblew999/plat-roadless/internal/service"
	"github.com/joeblew999/plat-roadless/internal/stats"
)

const maxDistricts = 1000

// printDistricts loads the district source into an in-memory table and
// prints it.
func printDistricts(ctx context.Context, w io.Writer, dataDir string) error {
	layers, err := service.NewLayerService(dataDir, logger.L())
	if err != nil {
		return err
	}
	layer, ok := layers.Get(selection.FillLayer)
	if !ok {
		return fmt.Errorf("%w: %q", service.ErrLayerNotFound, selection.FillLayer)
	}
	src, ok := layers.Source(layer.Source)
	if !ok {
		return fmt.Errorf("%w: %q", service.ErrSourceNotFound, layer.Source)
	}
	features, err := service.NewSourceService(dataDir).Load(src)
	if err != nil {
		return err
	}

	store, err := stats.Open(stats.Config{})
	if err != nil {
		return err
	}
	defer store.Close()
	if _, err := store.Load(ctx, features); err != nil {
		return err
	}
	rows, _, err := store.List(ctx, 0, maxDistricts)
	if err != nil {
		return err
	}
	sum, err := store.Summary(ctx)
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DISTRICT\tREPRESENTATIVE\tPARTY\tACRES\tROADLESS\tSHARE\t")
	for _, d := range rows {
		share := measure.Placeholder
		if v, ok := d.RoadlessShare(); ok {
			share = p.Sprintf("%.1f%%", v)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			d.District, d.Representative, d.Party, acres(d.TotalAcres), acres(d.RoadlessAcres), share)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%s districts, %s acres, %s roadless\n",
		humanize.Comma(int64(sum.Districts)), comma(sum.TotalAcres), comma(sum.RoadlessAcres))
	return nil
}

func acres(v *float64) string {
	if v == nil {
		return measure.Placeholder
	}
	return comma(*v)
}

// comma rounds to whole acres the way the popups do.
func comma(v float64) string {
	return humanize.Comma(int64(math.RoundToEven(v)))
}
