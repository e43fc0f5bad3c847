package game

import (
	"context"
	"time"

	"github.com/scythe504/impostor-backend/internal"
)

// =============================================================================
// TIMER MANAGEMENT
// =============================================================================

// startCountdown publishes a timer_update every second until ctx is done
// or stop is called. stop waits for the ticker goroutine so no update is
// published after it returns.
func (g *Game) startCountdown(ctx context.Context, phase internal.GamePhase, endsAt time.Time) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				remaining := max(time.Until(endsAt), 0)
				g.commit(ctx, func(*internal.Session) []event {
					return []event{{internal.EventTimerUpdate, internal.TimerUpdateData{
						TimeRemaining: remaining.Milliseconds(),
						Phase:         phase,
						IsActive:      true,
					}}}
				})
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		cancel()
		<-exited
	}
}

// stopTimer clears the countdown and tells observers it is no longer running.
func (g *Game) stopTimer(ctx context.Context, phase internal.GamePhase) {
	g.commit(ctx, func(s *internal.Session) []event {
		s.DebateEndsAt = time.Time{}
		return []event{{internal.EventTimerUpdate, internal.TimerUpdateData{
			TimeRemaining: 0,
			Phase:         phase,
			IsActive:      false,
		}}}
	})
}
