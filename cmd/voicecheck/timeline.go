package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	framesFlag     bool
	confidenceFlag float64
)

var timelineCmd = &cobra.Command{
	Use:   "timeline <clip.wav>",
	Short: "Compute the local risk timeline of a WAV clip",
	Long: `timeline runs only the local spectral estimator: no network call is made.
--confidence blends a known verdict confidence into the result.`,
	Args: cobra.ExactArgs(1),
	RunE: runTimeline,
}

func init() {
	timelineCmd.Flags().BoolVar(&framesFlag, "frames", false, "Print one line per frame")
	timelineCmd.Flags().Float64Var(&confidenceFlag, "confidence", -1, "Blend this verdict confidence into the timeline")
	timelineCmd.Flags().StringVar(&pngFlag, "png", "", "Write the timeline as a PNG heat strip to this path")
	timelineCmd.Flags().IntVarP(&widthFlag, "width", "w", 80, "Timeline width in terminal cells")
}

func runTimeline(cmd *cobra.Command, args []string) error {
	clip, err := loadClip(args[0], "", cli.service.Limits())
	if err != nil {
		return err
	}
	tl, err := estimate(clip)
	if err != nil {
		return fmt.Errorf("estimate %s: %w", clip.Name, err)
	}
	if confidenceFlag >= 0 {
		tl.Blend(confidenceFlag)
	}

	w := cmd.OutOrStdout()
	if framesFlag {
		for i, r := range tl.Risk {
			fmt.Fprintf(w, "%8.3fs  %.4f\n", tl.FrameStart(i), r)
		}
	}
	fmt.Fprintf(w, "%s\nframes=%d hop=%d mean=%.3f duration=%.2fs\n",
		tl.ANSI(widthFlag), len(tl.Risk), tl.Hop, tl.Mean(), tl.Duration())

	if pngFlag != "" {
		return writePNG(tl, pngFlag, widthFlag)
	}
	return nil
}
