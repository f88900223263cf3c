package main

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/voicecheck/internal/analysis"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Analyze clip paths read from stdin, newest first",
	Long: `watch reads one clip path per line. Each new path cancels the analysis in
flight and starts a fresh one; only the latest clip is rendered.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVarP(&widthFlag, "width", "w", 80, "Timeline width in terminal cells")
}

func runWatch(cmd *cobra.Command, args []string) error {
	session := analysis.NewSession()
	defer session.Cancel()

	var (
		wg  sync.WaitGroup
		out sync.Mutex
	)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		path := strings.TrimSpace(scanner.Text())
		if path == "" {
			continue
		}
		clip, err := loadClip(path, "", cli.service.Limits())
		if err != nil {
			cli.logger.Warn("skipping clip", zap.String("path", path), zap.Error(err))
			continue
		}

		ctx, token := session.Begin(cmd.Context(), clip)
		cli.logger.Info("analyzing", zap.String("clip", clip.Name))

		wg.Add(1)
		go func() {
			defer wg.Done()
			res, current, err := runAnalysis(ctx, session, token, clip)
			switch {
			case errors.Is(err, context.Canceled):
				cli.logger.Info("superseded", zap.String("clip", clip.Name))
				return
			case err != nil:
				cli.logger.Error("analysis failed", zap.String("clip", clip.Name), zap.Error(err))
				return
			case !current:
				return
			}
			out.Lock()
			defer out.Unlock()
			if err := render(cmd.OutOrStdout(), session, res, widthFlag, ""); err != nil {
				cli.logger.Error("render failed", zap.Error(err))
			}
		}()
	}
	wg.Wait()
	return scanner.Err()
}
