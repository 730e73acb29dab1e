package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective processing configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			pc, err := cfg.Processing()
			if err != nil {
				return err
			}

			archive := pc.ArchiveDir
			if archive == "" {
				archive = "<output>/Finished_Originals"
			}

			naming := "template " + pc.Template
			if pc.Heuristic {
				naming = "heuristic (" + strings.Join(pc.Keywords, ", ") + ")"
			}

			rows := [][]string{
				{"input", cfg.Paths.InputDir},
				{"output", cfg.Paths.OutputDir},
				{"archive", archive},
				{"move originals", strconv.FormatBool(pc.MoveOriginals)},
				{"canvas", fmt.Sprintf("%dx%d, margin %d", pc.Width, pc.Height, pc.Margin)},
				{"shadow", strconv.FormatBool(pc.Shadow)},
				{"watermark", fmt.Sprintf("%t %s (opacity %.2f, scale %.2f)", pc.Watermark, pc.WatermarkPath, pc.WatermarkOpacity, pc.WatermarkScale)},
				{"background removal", fmt.Sprintf("%t via %s", pc.RemoveBackground, cfg.Background.Command)},
				{"export", fmt.Sprintf("jpg=%t png=%t quality=%d", pc.ExportJPG, pc.WritesPNG(), pc.JPEGQuality)},
				{"product", pc.ProductType},
				{"naming", naming},
				{"unique suffix", strconv.FormatBool(pc.UniqueSuffix)},
				{"manifest prefix", cfg.Manifest.Prefix},
				{"publish to storage", strconv.FormatBool(cfg.Storage.Enabled)},
				{"publish events", strconv.FormatBool(cfg.Kafka.EventsEnabled)},
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, rows))
			return nil
		},
	}
}
