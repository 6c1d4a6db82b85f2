// Package background runs the sync engine's two cooperative periodic
// tasks (spec.md §4.9): the fact sync ticker and the conversation
// watcher. Both share the local store serially and hold no locks
// across suspension points other than the store's own transactions.
package background

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"

	"github.com/agentvault/synccore/internal/model"
	syncengine "github.com/agentvault/synccore/internal/sync"
)

// TranscriptSource identifies one local transcript file a collaborator
// discovered, per spec.md §6's "transcript discovery" interface.
type TranscriptSource struct {
	Path      string
	Client    model.Client
	Project   string
	SessionID string
}

// Discoverer yields the current set of local transcript files. Its
// implementation (walking editor-specific directories) is an external
// collaborator's concern (spec.md §1 non-goals); the loop only
// consumes the result.
type Discoverer interface {
	Discover(ctx context.Context) ([]TranscriptSource, error)
}

// Parser turns one transcript file into a canonical Conversation. One
// implementation per client (cursor, claude-code) is expected; parsing
// logic itself is an external collaborator's concern.
type Parser interface {
	Parse(ctx context.Context, src TranscriptSource) (model.Conversation, error)
}

// Loop owns the cron schedule and the file-observation state for the
// conversation watcher.
type Loop struct {
	Engine     *syncengine.Engine
	Discoverer Discoverer
	Parsers    map[model.Client]Parser
	Log        zerolog.Logger

	FactSyncPeriod          time.Duration
	ConversationWatchPeriod time.Duration

	cron *cron.Cron

	factSyncMu   stdsync.Mutex
	factSyncBusy bool

	watchMu  stdsync.Mutex
	watcher  *fileWatcher
	observed map[string]fileObservation
}

// New builds a Loop. Call Start to begin scheduling.
func New(engine *syncengine.Engine, discoverer Discoverer, parsers map[model.Client]Parser, factSyncPeriod, conversationWatchPeriod time.Duration, log zerolog.Logger) *Loop {
	return &Loop{
		Engine:                  engine,
		Discoverer:              discoverer,
		Parsers:                 parsers,
		Log:                     log,
		FactSyncPeriod:          factSyncPeriod,
		ConversationWatchPeriod: conversationWatchPeriod,
		observed:                make(map[string]fileObservation),
	}
}

// Start schedules both tickers and returns immediately; the tickers
// run until ctx is cancelled or Stop is called.
func (l *Loop) Start(ctx context.Context) error {
	l.cron = cron.New(cron.WithSeconds())

	factSpec := everySpec(l.FactSyncPeriod)
	if _, err := l.cron.AddFunc(factSpec, func() { l.runGuarded(ctx, "fact-sync", l.tickFactSync) }); err != nil {
		return err
	}

	watchSpec := everySpec(l.ConversationWatchPeriod)
	if _, err := l.cron.AddFunc(watchSpec, func() { l.runGuarded(ctx, "conversation-watch", l.tickConversationWatch) }); err != nil {
		return err
	}

	w, err := newFileWatcher(l.Log)
	if err != nil {
		// fsnotify is a best-effort early-wake signal; its absence never
		// blocks the authoritative stat-based poll below.
		l.Log.Warn().Err(err).Msg("background: fsnotify unavailable, relying on poll interval only")
	} else {
		l.watcher = w
	}

	l.cron.Start()

	go func() {
		<-ctx.Done()
		l.Stop()
	}()
	return nil
}

// Stop halts both tickers and waits for any in-flight run to return.
func (l *Loop) Stop() {
	if l.cron != nil {
		<-l.cron.Stop().Done()
	}
	if l.watcher != nil {
		l.watcher.Close()
	}
}

// runGuarded isolates one tick's panic so it can never bring down the
// process; the panic is logged and the tick counted as a failure.
func (l *Loop) runGuarded(ctx context.Context, name string, fn func(context.Context) error) {
	var c panics.Catcher
	c.Try(func() {
		if err := fn(ctx); err != nil {
			l.Log.Error().Err(err).Str("task", name).Msg("background task failed")
		}
	})
	if r := c.Recovered(); r != nil {
		l.Log.Error().Str("task", name).Interface("panic", r.Value).Msg("background task panicked")
	}
}

func everySpec(d time.Duration) string {
	if d <= 0 {
		d = time.Second
	}
	return "@every " + d.String()
}
