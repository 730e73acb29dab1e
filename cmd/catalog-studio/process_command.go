package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aliskhannn/catalog-studio/internal/config"
	"github.com/aliskhannn/catalog-studio/internal/queue"
)

type processFlags struct {
	output      string
	archive     string
	product     string
	template    string
	heuristic   bool
	noBG        bool
	png         bool
	noShadow    bool
	noWatermark bool
	watermark   string
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var flags processFlags

	cmd := &cobra.Command{
		Use:   "process [paths...]",
		Short: "Process images and directories into catalog-ready photos",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyProcessFlags(cmd, cfg, flags)

			pc, err := cfg.Processing()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				args = []string{cfg.Paths.InputDir}
			}

			q := queue.New()
			if _, err := q.Enqueue(args...); err != nil {
				return err
			}

			pl, err := newPipeline(cmd.Context(), cfg, pc)
			if err != nil {
				return err
			}
			defer pl.Close()

			rep, err := pl.orchestrator.RunQueue(cmd.Context(), q, cfg.Paths.OutputDir)
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "o", "", "Output directory (must exist)")
	f.StringVar(&flags.archive, "archive", "", "Folder that receives processed originals")
	f.StringVarP(&flags.product, "product", "p", "", "Product type used in names, alt text and tags")
	f.StringVar(&flags.template, "template", "", "Filename template using {product}, {colors} and {timestamp}")
	f.BoolVar(&flags.heuristic, "heuristic", false, "Build filenames from brand keywords instead of the template")
	f.BoolVar(&flags.noBG, "no-bg", false, "Keep the original background")
	f.BoolVar(&flags.png, "png", false, "Also export a transparent PNG when the background is removed")
	f.BoolVar(&flags.noShadow, "no-shadow", false, "Disable the drop shadow")
	f.BoolVar(&flags.noWatermark, "no-watermark", false, "Disable the watermark")
	f.StringVar(&flags.watermark, "watermark", "", "Watermark image path")

	return cmd
}

// applyProcessFlags overrides config values with the flags the user set.
func applyProcessFlags(cmd *cobra.Command, cfg *config.Config, flags processFlags) {
	changed := cmd.Flags().Changed

	if changed("output") {
		cfg.Paths.OutputDir = flags.output
	}
	if changed("archive") {
		cfg.Paths.ArchiveDir = flags.archive
	}
	if changed("product") {
		cfg.Product.Type = flags.product
	}
	if changed("template") {
		cfg.Naming.Template = flags.template
	}
	if changed("heuristic") {
		cfg.Naming.Heuristic = flags.heuristic
	}
	if changed("no-bg") {
		cfg.Background.Remove = !flags.noBG
	}
	if changed("png") {
		cfg.Export.PNG = flags.png
	}
	if changed("no-shadow") {
		cfg.Canvas.Shadow = !flags.noShadow
	}
	if changed("watermark") {
		cfg.Watermark.Path = flags.watermark
		cfg.Watermark.Enabled = true
	}
	if changed("no-watermark") {
		cfg.Watermark.Enabled = !flags.noWatermark
	}
}

func printReport(w io.Writer, rep queue.Report) {
	if len(rep.Records) > 0 {
		rows := make([][]string, 0, len(rep.Records))
		for _, rec := range rep.Records {
			rows = append(rows, []string{rec.Original, rec.Filename(), rec.PNG, strings.Join(rec.Colors, ", ")})
		}
		fmt.Fprintln(w, renderTable([]string{"Original", "File", "PNG", "Colors"}, rows))
	}

	if len(rep.Failures) > 0 {
		rows := make([][]string, 0, len(rep.Failures))
		for _, f := range rep.Failures {
			rows = append(rows, []string{f.Original, f.Reason})
		}
		fmt.Fprintln(w, renderTable([]string{"Failed", "Reason"}, rows))
	}

	for _, f := range rep.ArchiveErrors {
		fmt.Fprintf(w, "Couldn't move original %s: %s\n", f.Original, f.Reason)
	}

	fmt.Fprintf(w, "Done. %d/%d succeeded. Manifest: %s\n", rep.Succeeded(), rep.Total, rep.ManifestPath)
}
