package background

import "context"

// tickFactSync runs one fact-sync tick (spec.md §4.8.2). Single-flight:
// if a prior tick is still in flight (a slow network upload spanning
// past the next scheduled tick), this tick is skipped rather than
// overlapping.
func (l *Loop) tickFactSync(ctx context.Context) error {
	l.factSyncMu.Lock()
	if l.factSyncBusy {
		l.factSyncMu.Unlock()
		l.Log.Debug().Msg("fact sync: previous tick still running, skipping")
		return nil
	}
	l.factSyncBusy = true
	l.factSyncMu.Unlock()

	defer func() {
		l.factSyncMu.Lock()
		l.factSyncBusy = false
		l.factSyncMu.Unlock()
	}()

	return l.Engine.PushFacts(ctx)
}
