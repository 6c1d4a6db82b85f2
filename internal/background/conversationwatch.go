package background

import (
	"context"
	"fmt"
	"os"
	"time"
)

// fileObservation is the size/mtime pair recorded after a file was
// last successfully re-parsed and pushed.
type fileObservation struct {
	size    int64
	modTime time.Time
}

// tickConversationWatch implements spec.md §4.9's conversation watcher:
// discover candidate transcript files, re-parse and push the delta for
// any file changed (by size or mtime) since it was last observed.
func (l *Loop) tickConversationWatch(ctx context.Context) error {
	sources, err := l.Discoverer.Discover(ctx)
	if err != nil {
		return fmt.Errorf("conversation watch: discover: %w", err)
	}

	for _, src := range sources {
		info, err := os.Stat(src.Path)
		if err != nil {
			l.Log.Warn().Str("path", src.Path).Err(err).Msg("conversation watch: stat failed, skipping")
			continue
		}
		obs := fileObservation{size: info.Size(), modTime: info.ModTime()}

		l.watchMu.Lock()
		prev, seen := l.observed[src.Path]
		l.watchMu.Unlock()
		if seen && prev == obs {
			continue
		}

		parser, ok := l.Parsers[src.Client]
		if !ok {
			l.Log.Warn().Str("client", string(src.Client)).Msg("conversation watch: no parser registered, skipping")
			continue
		}

		conv, err := parser.Parse(ctx, src)
		if err != nil {
			l.Log.Warn().Str("path", src.Path).Err(err).Msg("conversation watch: parse failed, skipping")
			continue
		}

		if err := l.Engine.PushConversationDelta(ctx, conv, src.SessionID); err != nil {
			l.Log.Warn().Str("path", src.Path).Err(err).Msg("conversation watch: push delta failed, will retry next tick")
			continue
		}

		l.watchMu.Lock()
		l.observed[src.Path] = obs
		l.watchMu.Unlock()

		if l.watcher != nil {
			l.watcher.Watch(src.Path)
		}
	}
	return nil
}
