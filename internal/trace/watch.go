package trace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// WatchEvent reports that a trace file in a watched directory was written
// and replayed.
type WatchEvent struct {
	Path  string
	Stats Stats
	Err   error
}

// Watch watches dir for trace files (anything matching *.trace) being
// created or written, replaying the file on every such event and sending
// the result on the returned channel. Events are not debounced. Watch
// returns immediately; the watching goroutine stops, and the channel
// closes, once stop is closed. Callers drain the channel until it closes.
func Watch(dir string, arenaCapacity int, stop <-chan struct{}) (<-chan WatchEvent, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	out := make(chan WatchEvent, 16)

	go func() {
		defer close(out)
		defer w.Close()

		for {
			select {
			case <-stop:
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				if !strings.HasSuffix(ev.Name, ".trace") {
					continue
				}
				out <- replayPath(ev.Name, arenaCapacity)

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				out <- WatchEvent{Err: err}
			}
		}
	}()

	return out, nil
}

func replayPath(path string, arenaCapacity int) WatchEvent {
	f, err := os.Open(path)
	if err != nil {
		return WatchEvent{Path: path, Err: err}
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return WatchEvent{Path: filepath.Base(path), Err: err}
	}

	stats, err := Replay(t, arenaCapacity)
	return WatchEvent{Path: filepath.Base(path), Stats: stats, Err: err}
}
