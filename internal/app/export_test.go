package app

import "context"

// BroadcastTicks exposes the tick fan-out to black-box tests.
func (s *ResetScheduler) BroadcastTicks(ctx context.Context) {
	s.broadcastTicks(ctx)
}
