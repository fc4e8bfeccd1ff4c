package portal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"campusportal/internal/leaderboard"
)

const rerankTimeout = time.Minute

// ScheduleRerank returns an unstarted cron that re-ranks the leaderboard on schedule.
// Runs that overlap a still running one are skipped.
func ScheduleRerank(ctx context.Context, schedule string, loc *time.Location, board *leaderboard.Service, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		rctx, cancel := context.WithTimeout(ctx, rerankTimeout)
		defer cancel()
		start := time.Now()
		if err := board.Rerank(rctx); err != nil {
			log.Error("rerank failed", zap.Error(err))
			return
		}
		log.Info("leaderboard reranked", zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return nil, errors.Wrapf(err, "rerank schedule %q", schedule)
	}
	return c, nil
}
