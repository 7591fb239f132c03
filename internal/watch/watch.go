// Package watch turns a set of markdown files into a live stream of change
// events.
package watch

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Kind is the type of a change event.
type Kind string

const (
	KindInitial Kind = "initial"
	KindWrite   Kind = "write"
	KindDeleted Kind = "deleted"
	KindRenamed Kind = "renamed"
)

// Event reports one change to a watched path. Contents holds the full file
// after a write.
type Event struct {
	Path     string
	Kind     Kind
	Contents string
}

// Backend is the OS watch facility. fsnotify is the production backend.
type Backend interface {
	Add(path string) error
	Remove(path string) error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
	Close() error
}

type fsnotifyBackend struct {
	w *fsnotify.Watcher
}

// NewFSNotify returns a Backend over an fsnotify watcher.
func NewFSNotify() (Backend, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &fsnotifyBackend{w: w}, nil
}

func (b *fsnotifyBackend) Add(path string) error         { return b.w.Add(path) }
func (b *fsnotifyBackend) Remove(path string) error      { return b.w.Remove(path) }
func (b *fsnotifyBackend) Events() <-chan fsnotify.Event { return b.w.Events }
func (b *fsnotifyBackend) Errors() <-chan error          { return b.w.Errors }
func (b *fsnotifyBackend) Close() error                  { return b.w.Close() }

// Options configures Watch.
type Options struct {
	Logger *slog.Logger
	// Backend defaults to fsnotify.
	Backend Backend
}

// Stream delivers change events until it is closed, its context ends or no
// watched path is left.
type Stream struct {
	backend Backend
	logger  *slog.Logger
	events  chan Event
	done    chan struct{}
	stopped chan struct{}
	watched map[string]bool

	stopOnce    sync.Once
	releaseOnce sync.Once
	releaseErr  error
}

// Watch starts watching paths. A path that cannot be watched is logged and
// skipped. Deleting or renaming a path ends its monitoring; the stream stops
// after delivering the event that forgets the last watched path.
func Watch(ctx context.Context, paths []string, opts Options) (*Stream, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	backend := opts.Backend
	if backend == nil {
		b, err := NewFSNotify()
		if err != nil {
			return nil, err
		}
		backend = b
	}

	s := &Stream{
		backend: backend,
		logger:  logger,
		events:  make(chan Event),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		watched: make(map[string]bool, len(paths)),
	}
	for _, p := range paths {
		if s.watched[p] {
			continue
		}
		if err := backend.Add(p); err != nil {
			logger.Warn("failed to watch file", "path", p, "error", err)
			continue
		}
		s.watched[p] = true
	}

	go s.loop(ctx)
	return s, nil
}

// Events returns the event channel. It is closed when the stream stops.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Watched reports how many paths are still monitored. Only meaningful after
// the stream has stopped.
func (s *Stream) Watched() int {
	<-s.stopped
	return len(s.watched)
}

// Close stops the stream and releases the backend. Calling it again is a
// no-op.
func (s *Stream) Close() error {
	s.stopOnce.Do(func() { close(s.done) })
	<-s.stopped
	return s.releaseErr
}

func (s *Stream) release() {
	s.releaseOnce.Do(func() {
		s.releaseErr = s.backend.Close()
	})
}

func (s *Stream) loop(ctx context.Context) {
	defer close(s.stopped)
	defer close(s.events)
	defer s.release()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case err, ok := <-s.backend.Errors():
			if !ok {
				return
			}
			s.logger.Error("file watcher error", "error", err)
		case ev, ok := <-s.backend.Events():
			if !ok {
				return
			}
			out, ok := s.translate(ev)
			if !ok {
				continue
			}
			select {
			case s.events <- out:
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
			if len(s.watched) == 0 {
				s.logger.Info("no watched files left, stopping")
				return
			}
		}
	}
}

func (s *Stream) translate(ev fsnotify.Event) (Event, bool) {
	if !s.watched[ev.Name] {
		return Event{}, false
	}
	switch {
	case ev.Has(fsnotify.Remove):
		s.forget(ev.Name)
		return Event{Path: ev.Name, Kind: KindDeleted}, true
	case ev.Has(fsnotify.Rename):
		s.forget(ev.Name)
		return Event{Path: ev.Name, Kind: KindRenamed}, true
	case ev.Has(fsnotify.Write):
		data, err := os.ReadFile(ev.Name)
		if err != nil {
			s.logger.Warn("failed to read changed file", "path", ev.Name, "error", err)
			return Event{}, false
		}
		return Event{Path: ev.Name, Kind: KindWrite, Contents: string(data)}, true
	}
	return Event{}, false
}

func (s *Stream) forget(path string) {
	delete(s.watched, path)
	// The OS may have dropped the watch already.
	_ = s.backend.Remove(path)
}

// Prime emits initial, then forwards everything from in. The returned
// channel closes when in closes or ctx ends.
func Prime[T any](ctx context.Context, initial T, in <-chan T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		select {
		case out <- initial:
		case <-ctx.Done():
			return
		}
		for {
			select {
			case v, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
