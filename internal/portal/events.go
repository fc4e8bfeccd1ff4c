package portal

import (
	"context"

	"go.uber.org/zap"

	"campusportal/internal/leaderboard"
	"campusportal/internal/queue"
)

// ApplyEvents consumes point events from q and awards them until ctx is done.
// Bad messages and failed awards are logged and skipped.
func ApplyEvents(ctx context.Context, q queue.Queue, board *leaderboard.Service, log *zap.Logger) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		ev, err := leaderboard.Decode(msg)
		if err != nil {
			log.Warn("dropping malformed event", zap.String("type", msg.Type), zap.Error(err))
			continue
		}
		entry, err := board.Award(ctx, ev)
		if err != nil {
			log.Error("award failed",
				zap.String("user_id", ev.UserID), zap.String("reason", ev.Reason), zap.Error(err))
			continue
		}
		log.Debug("points awarded",
			zap.String("user_id", ev.UserID), zap.String("reason", ev.Reason),
			zap.Int("points", ev.Points), zap.Int("total", entry.Points))
	}
	return nil
}
