package background

import (
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// fileWatcher wraps fsnotify as a best-effort early-wake signal for
// the conversation watcher. It does not drive correctness: the tick's
// stat-based size/mtime comparison (conversationwatch.go) is the
// authoritative "changed since last observation" test per spec. This
// just drains events so the underlying OS watch descriptors don't
// back up; a future version could use it to shorten the poll interval
// opportunistically.
type fileWatcher struct {
	w   *fsnotify.Watcher
	log zerolog.Logger
}

func newFileWatcher(log zerolog.Logger) (*fileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fw := &fileWatcher{w: w, log: log}
	go fw.drain()
	return fw, nil
}

// Watch adds path to the watch set. Errors are logged, not returned:
// losing the early-wake signal for one file never stops the poll.
func (fw *fileWatcher) Watch(path string) {
	if err := fw.w.Add(path); err != nil {
		fw.log.Debug().Str("path", path).Err(err).Msg("background: fsnotify add failed")
	}
}

func (fw *fileWatcher) drain() {
	for {
		select {
		case _, ok := <-fw.w.Events:
			if !ok {
				return
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			fw.log.Debug().Err(err).Msg("background: fsnotify error")
		}
	}
}

func (fw *fileWatcher) Close() {
	fw.w.Close()
}
