package utils

import (
	"context"
	"time"
)

// StartUploadCleaner runs sweep every interval until ctx is cancelled. It is
// best-effort: failures are logged and the next tick tries again.
func StartUploadCleaner(ctx context.Context, interval time.Duration, sweep func(context.Context) (int, error)) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			removed, err := sweep(ctx)
			if err != nil {
				Sugar.Warnw("upload sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				Sugar.Infow("removed orphaned uploads", "count", removed)
			}
		}
	}()
}
