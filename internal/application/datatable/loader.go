package datatable

import (
	"context"
	"strings"
	"sync"

	"github.com/aces/bvlfeedback/internal/domain/entities"
	"github.com/aces/bvlfeedback/internal/infrastructure/clients/tabledata"
	"github.com/aces/bvlfeedback/internal/infrastructure/observability"
)

// Fetcher retrieves a table document, reporting body progress as it arrives.
type Fetcher interface {
	FetchTable(ctx context.Context, url string, onProgress tabledata.ProgressFunc) (*entities.TableDataset, error)
}

// Config describes one data table.
type Config struct {
	DataURL      string
	FormatCell   CellFormatter
	FreezeColumn string
}

// Option configures a Loader.
type Option func(*Loader)

// WithOnChange registers fn to observe every state change. Calls are made in
// order and never concurrently, and none happen after Close returns.
func WithOnChange(fn func(State)) Option {
	return func(l *Loader) {
		l.onChange = fn
	}
}

// Loader runs the one-shot load of a data table.
type Loader struct {
	cfg      Config
	fetcher  Fetcher
	onChange func(State)

	mu      sync.Mutex
	state   State
	mounted bool
	closed  bool
	cancel  context.CancelFunc

	// closing is cancelled by Close only. The request context passed to the
	// fetcher may end earlier, which is reported as a failure.
	closing context.Context
	stop    context.CancelFunc

	events    chan Event
	done      chan struct{}
	doneOnce  sync.Once
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewLoader creates an Idle loader for cfg.
func NewLoader(cfg Config, fetcher Fetcher, opts ...Option) *Loader {
	l := &Loader{
		cfg:     cfg,
		fetcher: fetcher,
		state:   InitialState(),
		events:  make(chan Event),
		done:    make(chan struct{}),
	}
	l.closing, l.stop = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the loader's configuration.
func (l *Loader) Config() Config {
	return l.cfg
}

// State returns the current snapshot.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// View returns the render decision for the current state.
func (l *Loader) View() View {
	return Render(l.State(), l.cfg)
}

// Present renders the current state through p.
func (l *Loader) Present(p Presenter) error {
	return Present(l.View(), p)
}

// Done is closed once the loader reaches Loaded or Failed, or is closed.
func (l *Loader) Done() <-chan struct{} {
	return l.done
}

// Mount starts the fetch in the background and returns immediately. With an
// empty DataURL no request is made: the loader fails with a configuration
// error, which is also returned.
func (l *Loader) Mount(ctx context.Context) error {
	url := strings.TrimSpace(l.cfg.DataURL)

	l.mu.Lock()
	switch {
	case l.closed:
		l.mu.Unlock()
		return ErrClosed
	case l.mounted:
		l.mu.Unlock()
		return ErrAlreadyMounted
	}
	l.mounted = true

	if url == "" {
		l.mu.Unlock()
		loadErr := configurationError("data source URL is required")
		observability.LoggerFromContext(ctx).Error().Str("code", loadErr.Code).Msg(loadErr.Text)
		l.apply(FailedWith{Err: loadErr})
		return loadErr
	}

	reqCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.wg.Add(2)
	l.mu.Unlock()

	l.apply(Mounted{})
	go l.run(cancel)
	go l.fetch(reqCtx, url)

	return nil
}

// Close cancels an in-flight request and waits for the loader's goroutines
// to exit. The state is left as it was. It is safe to call more than once.
func (l *Loader) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		cancel := l.cancel
		l.mu.Unlock()

		l.stop()
		if cancel != nil {
			cancel()
		}
		l.wg.Wait()
		l.markDone()
	})
}

// fetch reports the outcome unless the loader was closed. A request context
// that expires or is cancelled by the caller fails the load.
func (l *Loader) fetch(ctx context.Context, url string) {
	defer l.wg.Done()

	dataset, err := l.fetcher.FetchTable(ctx, url, func(loaded, total int64) {
		l.send(Progressed{Loaded: loaded, Total: total})
	})
	if l.closing.Err() != nil {
		return
	}
	if err != nil {
		loadErr := classify(err)
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("url", url).
			Str("kind", loadErr.Kind.String()).
			Msg(loadErr.Error())
		l.send(FailedWith{Err: loadErr})
		return
	}
	l.send(Succeeded{Dataset: dataset})
}

// run is the only goroutine that applies events while a fetch is in flight.
func (l *Loader) run(cancel context.CancelFunc) {
	defer l.wg.Done()
	defer cancel()
	for {
		select {
		case <-l.closing.Done():
			return
		case ev := <-l.events:
			if l.closing.Err() != nil {
				return
			}
			if l.apply(ev).Phase.Terminal() {
				return
			}
		}
	}
}

func (l *Loader) send(ev Event) {
	select {
	case l.events <- ev:
	case <-l.closing.Done():
	}
}

func (l *Loader) apply(ev Event) State {
	l.mu.Lock()
	prev := l.state
	next := Reduce(prev, ev)
	l.state = next
	l.mu.Unlock()

	if next != prev && l.onChange != nil {
		l.onChange(next)
	}
	if next.Phase.Terminal() {
		l.markDone()
	}
	return next
}

func (l *Loader) markDone() {
	l.doneOnce.Do(func() { close(l.done) })
}
