package datatable

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aces/bvlfeedback/internal/domain/entities"
	"github.com/aces/bvlfeedback/internal/infrastructure/clients/tabledata"
)

// scriptedFetcher replays progress counts and then returns dataset or err.
type scriptedFetcher struct {
	progress []int64
	dataset  *entities.TableDataset
	err      error
	calls    atomic.Int32
}

func (f *scriptedFetcher) FetchTable(ctx context.Context, url string, onProgress tabledata.ProgressFunc) (*entities.TableDataset, error) {
	f.calls.Add(1)
	for _, n := range f.progress {
		onProgress(n, -1)
	}
	return f.dataset, f.err
}

// blockingFetcher holds the request open until its context is canceled.
type blockingFetcher struct {
	started chan struct{}
}

func (f *blockingFetcher) FetchTable(ctx context.Context, url string, onProgress tabledata.ProgressFunc) (*entities.TableDataset, error) {
	onProgress(10, -1)
	close(f.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *stateLog) snapshot() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func waitDone(t *testing.T, l *Loader) {
	t.Helper()
	select {
	case <-l.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("loader did not reach a terminal state")
	}
}

func TestLoader_LoadsTableOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/table.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Headers":["Name","Score"],"Data":[{"Name":"A","Score":1}]}`))
	}))
	defer server.Close()

	loader := NewLoader(Config{DataURL: server.URL + "/api/table.json", FreezeColumn: "Name"}, tabledata.NewClient(nil))
	defer loader.Close()

	require.NoError(t, loader.Mount(context.Background()))
	waitDone(t, loader)

	state := loader.State()
	require.Equal(t, PhaseLoaded, state.Phase)
	dataset, ok := state.Dataset()
	require.True(t, ok)
	assert.Equal(t, []string{"Name", "Score"}, dataset.Headers)

	presenter := &recordingPresenter{}
	require.NoError(t, loader.Present(presenter))
	require.Len(t, presenter.tables, 1)
	props := presenter.tables[0]
	assert.Equal(t, []string{"Name", "Score"}, props.Headers)
	assert.Equal(t, []map[string]any{{"Name": "A", "Score": float64(1)}}, props.Rows)
	assert.Equal(t, "Name", props.FreezeColumn)
}

func TestLoader_ServerErrorFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`"Internal error"`))
	}))
	defer server.Close()

	loader := NewLoader(Config{DataURL: server.URL}, tabledata.NewClient(nil))
	defer loader.Close()

	require.NoError(t, loader.Mount(context.Background()))
	waitDone(t, loader)

	state := loader.State()
	require.Equal(t, PhaseFailed, state.Phase)
	require.NotNil(t, state.Err())
	assert.Equal(t, KindTransport, state.Err().Kind)
	assert.Contains(t, state.Err().Error(), "500")
	assert.Contains(t, state.Err().Error(), "Internal error")
	_, ok := state.Dataset()
	assert.False(t, ok)

	view := loader.View()
	assert.Equal(t, ViewError, view.Kind)
	assert.Contains(t, view.Message, "Internal error")
}

func TestLoader_ReportsProgressInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fetcher := &scriptedFetcher{progress: []int64{100, 350}, dataset: sampleDataset()}
	log := &stateLog{}

	loader := NewLoader(Config{DataURL: "/api/table.json"}, fetcher, WithOnChange(log.record))
	defer loader.Close()

	require.NoError(t, loader.Mount(context.Background()))
	waitDone(t, loader)

	var progress []int64
	for _, s := range log.snapshot() {
		if s.Phase == PhaseLoading && s.BytesLoaded > 0 {
			progress = append(progress, s.BytesLoaded)
		}
	}
	assert.Equal(t, []int64{100, 350}, progress)

	states := log.snapshot()
	require.NotEmpty(t, states)
	assert.Equal(t, PhaseLoading, states[0].Phase)
	assert.Equal(t, PhaseLoaded, states[len(states)-1].Phase)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestLoader_EmptyURLIssuesNoRequest(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fetcher := &scriptedFetcher{dataset: sampleDataset()}
	loader := NewLoader(Config{DataURL: "  "}, fetcher)
	defer loader.Close()

	var err error
	assert.NotPanics(t, func() { err = loader.Mount(context.Background()) })

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, KindConfiguration, loadErr.Kind)
	assert.Equal(t, int32(0), fetcher.calls.Load())

	state := loader.State()
	assert.NotEqual(t, PhaseLoaded, state.Phase)
	assert.Equal(t, ViewError, loader.View().Kind)

	select {
	case <-loader.Done():
	default:
		t.Fatal("done should be closed after a configuration error")
	}
}

func TestLoader_MountTwice(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fetcher := &scriptedFetcher{dataset: sampleDataset()}
	loader := NewLoader(Config{DataURL: "/api/table.json"}, fetcher)
	defer loader.Close()

	require.NoError(t, loader.Mount(context.Background()))
	assert.ErrorIs(t, loader.Mount(context.Background()), ErrAlreadyMounted)
	waitDone(t, loader)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestLoader_ParseFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Headers":`))
	}))
	defer server.Close()

	loader := NewLoader(Config{DataURL: server.URL}, tabledata.NewClient(nil))
	defer loader.Close()

	require.NoError(t, loader.Mount(context.Background()))
	waitDone(t, loader)

	require.Equal(t, PhaseFailed, loader.State().Phase)
	assert.Equal(t, KindParse, loader.State().Err().Kind)
	assert.Equal(t, ViewError, loader.View().Kind)
}

func TestLoader_CloseCancelsInFlightRequest(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fetcher := &blockingFetcher{started: make(chan struct{})}
	var changes atomic.Int32

	loader := NewLoader(Config{DataURL: "/api/slow.json"}, fetcher, WithOnChange(func(State) {
		changes.Add(1)
	}))
	require.NoError(t, loader.Mount(context.Background()))

	select {
	case <-fetcher.started:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch never started")
	}

	loader.Close()
	seen := changes.Load()

	assert.Equal(t, PhaseLoading, loader.State().Phase)
	assert.Equal(t, seen, changes.Load(), "no state change may be published after Close")
	select {
	case <-loader.Done():
	default:
		t.Fatal("done should be closed after Close")
	}

	assert.ErrorIs(t, loader.Mount(context.Background()), ErrClosed)
}

func TestLoader_RequestDeadlineFailsWithTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fetcher := &blockingFetcher{started: make(chan struct{})}
	loader := NewLoader(Config{DataURL: "/api/slow.json"}, fetcher)
	defer loader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, loader.Mount(ctx))
	waitDone(t, loader)

	state := loader.State()
	require.Equal(t, PhaseFailed, state.Phase)
	require.NotNil(t, state.Err())
	assert.Equal(t, KindTransport, state.Err().Kind)
	assert.Equal(t, "timeout", state.Err().Code)
	assert.ErrorIs(t, state.Err(), context.DeadlineExceeded)
	assert.Equal(t, ViewError, loader.View().Kind)
}

func TestLoader_RequestCancelledByCallerFails(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fetcher := &blockingFetcher{started: make(chan struct{})}
	loader := NewLoader(Config{DataURL: "/api/slow.json"}, fetcher)
	defer loader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, loader.Mount(ctx))
	<-fetcher.started
	cancel()
	waitDone(t, loader)

	state := loader.State()
	require.Equal(t, PhaseFailed, state.Phase)
	assert.Equal(t, "error", state.Err().Code)
	assert.ErrorIs(t, state.Err(), context.Canceled)
}
