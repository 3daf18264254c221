package datatable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aces/bvlfeedback/internal/domain/entities"
)

func sampleDataset() *entities.TableDataset {
	return &entities.TableDataset{
		Headers: []string{"Name", "Score"},
		Data:    []map[string]any{{"Name": "A", "Score": float64(1)}},
	}
}

func TestReduce_HappyPath(t *testing.T) {
	s := InitialState()
	assert.Equal(t, PhaseIdle, s.Phase)
	_, ok := s.Dataset()
	assert.False(t, ok)

	s = Reduce(s, Mounted{})
	assert.Equal(t, PhaseLoading, s.Phase)

	s = Reduce(s, Progressed{Loaded: 100, Total: 350})
	s = Reduce(s, Progressed{Loaded: 350, Total: 350})
	assert.Equal(t, int64(350), s.BytesLoaded)
	assert.Equal(t, int64(350), s.BytesTotal)
	_, ok = s.Dataset()
	assert.False(t, ok, "dataset must not be visible while loading")

	s = Reduce(s, Succeeded{Dataset: sampleDataset()})
	assert.Equal(t, PhaseLoaded, s.Phase)
	dataset, ok := s.Dataset()
	require.True(t, ok)
	assert.Equal(t, []string{"Name", "Score"}, dataset.Headers)
	assert.Nil(t, s.Err())
}

func TestReduce_ProgressNeverDecreases(t *testing.T) {
	s := Reduce(InitialState(), Mounted{})
	s = Reduce(s, Progressed{Loaded: 350, Total: -1})
	s = Reduce(s, Progressed{Loaded: 100, Total: -1})
	assert.Equal(t, int64(350), s.BytesLoaded)
}

func TestReduce_ProgressIgnoredWhenIdle(t *testing.T) {
	s := Reduce(InitialState(), Progressed{Loaded: 10, Total: 10})
	assert.Equal(t, InitialState(), s)
}

func TestReduce_Failure(t *testing.T) {
	loadErr := &LoadError{Kind: KindTransport, Code: "500", Text: "Internal error"}

	s := Reduce(InitialState(), Mounted{})
	s = Reduce(s, Progressed{Loaded: 14, Total: 14})
	s = Reduce(s, FailedWith{Err: loadErr})

	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Same(t, loadErr, s.Err())
	_, ok := s.Dataset()
	assert.False(t, ok)
}

func TestReduce_TerminalStatesIgnoreEvents(t *testing.T) {
	loaded := Reduce(Reduce(InitialState(), Mounted{}), Succeeded{Dataset: sampleDataset()})
	failed := Reduce(Reduce(InitialState(), Mounted{}), FailedWith{Err: configurationError("x")})

	events := []Event{
		Mounted{},
		Progressed{Loaded: 1 << 20, Total: -1},
		Succeeded{Dataset: &entities.TableDataset{Headers: []string{"Other"}}},
		FailedWith{Err: &LoadError{Kind: KindParse, Code: "parsererror", Text: "late"}},
	}

	for _, ev := range events {
		assert.Equal(t, loaded, Reduce(loaded, ev))
		assert.Equal(t, failed, Reduce(failed, ev))
	}
}

func TestReduce_SucceededWithNilDataset(t *testing.T) {
	s := Reduce(Reduce(InitialState(), Mounted{}), Succeeded{})
	dataset, ok := s.Dataset()
	require.True(t, ok)
	assert.Empty(t, dataset.Headers)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	loading := Reduce(InitialState(), Mounted{})
	before := loading

	_ = Reduce(loading, Progressed{Loaded: 42, Total: 100})
	_ = Reduce(loading, Succeeded{Dataset: sampleDataset()})

	assert.Equal(t, before, loading)
}
