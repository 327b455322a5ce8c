package game

import (
	"context"
	"time"

	"github.com/faizsupianwork/temberang/domain"
)

// WaitForUpdate is the poll transport. It re-checks the room's persisted
// updated_at against the caller's last_update at the poll interval, returning
// as soon as something newer exists or, at the ceiling, with the unchanged
// snapshot so the client can re-poll immediately. A change can be observed up
// to one interval late, never lost: the comparison runs against the durable
// timestamp, not an event queue.
func (s *Service) WaitForUpdate(ctx context.Context, code string, lastUpdate int64) (domain.RoomSnapshot, int64, error) {
	deadline := s.clock().Add(s.pollTimeout)

	for {
		snap, err := s.Snapshot(ctx, code)
		if err != nil {
			return domain.RoomSnapshot{}, 0, err
		}

		now := s.clock()
		if snap.UpdatedAt > lastUpdate || !now.Before(deadline) {
			return snap, now.Unix(), nil
		}

		wait := s.pollInterval
		if remaining := deadline.Sub(now); remaining < wait {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.RoomSnapshot{}, 0, ctx.Err()
		case <-timer.C:
		}
	}
}
