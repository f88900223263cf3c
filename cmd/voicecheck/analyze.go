package main

import (
	"github.com/spf13/cobra"

	"github.com/your-org/voicecheck/internal/analysis"
)

var (
	durationFlag string
	pngFlag      string
	widthFlag    int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <clip>",
	Short: "Submit a clip to the detector and render its risk timeline",
	Long: `analyze validates the clip (at most 5 MiB and 15 s), then runs the local
estimator and the remote submission concurrently. When the verdict carries a
confidence it is blended into the local timeline once before rendering.

Only WAV clips get a local timeline; other formats are submitted as-is and
need --duration so the length limit can be checked.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&durationFlag, "duration", "", "Clip length in seconds for non-WAV clips")
	analyzeCmd.Flags().StringVar(&pngFlag, "png", "", "Write the timeline as a PNG heat strip to this path")
	analyzeCmd.Flags().IntVarP(&widthFlag, "width", "w", 80, "Timeline width in terminal cells")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	clip, err := loadClip(args[0], durationFlag, cli.service.Limits())
	if err != nil {
		return err
	}

	session := analysis.NewSession()
	defer session.Cancel()

	ctx, token := session.Begin(cmd.Context(), clip)
	res, _, err := runAnalysis(ctx, session, token, clip)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), session, res, widthFlag, pngFlag)
}
