package datatable

import "github.com/aces/bvlfeedback/internal/domain/entities"

// Phase is the load lifecycle position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen in this mount cycle.
func (p Phase) Terminal() bool {
	return p == PhaseLoaded || p == PhaseFailed
}

// State is an immutable snapshot of the loader. The dataset is only
// reachable in PhaseLoaded and the error only in PhaseFailed.
type State struct {
	Phase       Phase
	BytesLoaded int64
	// BytesTotal is -1 while the size is unknown.
	BytesTotal int64

	err     *LoadError
	dataset *entities.TableDataset
}

// InitialState is the Idle state a loader starts in.
func InitialState() State {
	return State{Phase: PhaseIdle, BytesTotal: -1}
}

// Dataset returns the loaded table, ok is false unless Phase is PhaseLoaded.
func (s State) Dataset() (dataset *entities.TableDataset, ok bool) {
	if s.Phase != PhaseLoaded || s.dataset == nil {
		return nil, false
	}
	return s.dataset, true
}

// Err returns the recorded failure, nil unless Phase is PhaseFailed.
func (s State) Err() *LoadError {
	if s.Phase != PhaseFailed {
		return nil
	}
	return s.err
}

// Event is an input to Reduce.
type Event interface {
	event()
}

// Mounted starts the single fetch of a mount cycle.
type Mounted struct{}

// Progressed reports cumulative bytes received.
type Progressed struct {
	Loaded int64
	Total  int64
}

// Succeeded carries the decoded document.
type Succeeded struct {
	Dataset *entities.TableDataset
}

// FailedWith carries the classified failure.
type FailedWith struct {
	Err *LoadError
}

func (Mounted) event()    {}
func (Progressed) event() {}
func (Succeeded) event()  {}
func (FailedWith) event() {}

// Reduce returns the state after ev. It never mutates s and ignores events
// that are not valid in the current phase.
func Reduce(s State, ev Event) State {
	if s.Phase.Terminal() {
		return s
	}

	switch ev := ev.(type) {
	case Mounted:
		if s.Phase == PhaseIdle {
			return State{Phase: PhaseLoading, BytesTotal: -1}
		}

	case Progressed:
		if s.Phase == PhaseLoading && ev.Loaded >= s.BytesLoaded {
			next := s
			next.BytesLoaded = ev.Loaded
			next.BytesTotal = ev.Total
			return next
		}

	case Succeeded:
		if s.Phase == PhaseLoading {
			dataset := ev.Dataset
			if dataset == nil {
				dataset = &entities.TableDataset{}
			}
			return State{
				Phase:       PhaseLoaded,
				BytesLoaded: s.BytesLoaded,
				BytesTotal:  s.BytesTotal,
				dataset:     dataset,
			}
		}

	case FailedWith:
		if ev.Err != nil {
			return State{
				Phase:       PhaseFailed,
				BytesLoaded: s.BytesLoaded,
				BytesTotal:  s.BytesTotal,
				err:         ev.Err,
			}
		}
	}

	return s
}
