package timeline

import (
	"context"
	"sync"
)

// EventBuilder is what a Loader needs from a Builder.
type EventBuilder interface {
	BuildEvents(ctx context.Context, source Source, cfg EventConfig) ([]Event, error)
}

// Loader runs extractions for one Navigator. When reloads overlap, only the most recently
// started one may load its events; older completions are discarded.
type Loader struct {
	builder   EventBuilder
	navigator *Navigator

	mu             sync.Mutex
	generation     uint64
	inFlight       int
	restoreLoading bool
}

// NewLoader creates a Loader that feeds the given navigator.
func NewLoader(builder EventBuilder, navigator *Navigator) *Loader {
	return &Loader{
		builder:   builder,
		navigator: navigator,
	}
}

// Navigator returns the navigator this Loader feeds.
func (l *Loader) Navigator() *Navigator {
	return l.navigator
}

// Reload marks the navigator as loading, builds the events and loads them.
//
// It returns ErrReloadSuperseded, without touching the navigator, if another Reload started
// while this one was building. A failed build restores the previous loading flag and keeps the
// current events. Navigator observers must not call Reload synchronously.
func (l *Loader) Reload(ctx context.Context, source Source, cfg EventConfig) ([]Event, error) {
	l.mu.Lock()
	if l.inFlight == 0 {
		l.restoreLoading = l.navigator.Loading()
	}
	l.inFlight++
	l.generation++
	generation := l.generation
	l.navigator.SetLoading(true)
	l.mu.Unlock()

	events, err := l.builder.BuildEvents(ctx, source, cfg)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.inFlight--

	if generation != l.generation {
		return nil, ErrReloadSuperseded
	}

	if err != nil {
		l.navigator.SetLoading(l.restoreLoading)
		return nil, err
	}

	l.navigator.Load(events)
	l.restoreLoading = false

	return events, nil
}
