package datatable

import "github.com/aces/bvlfeedback/internal/domain/entities"

// CellFormatter customises how a cell is shown. The loader never calls it;
// it is handed to the static renderer as-is.
type CellFormatter func(column string, cell any, row map[string]any) string

// ViewKind is what the component shows for a state.
type ViewKind int

const (
	ViewBusy ViewKind = iota
	ViewError
	ViewTable
)

// TableProps is everything the static table renderer receives.
type TableProps struct {
	Headers      []string
	Rows         []map[string]any
	FormatCell   CellFormatter
	FreezeColumn string
}

// View is the render decision for one state.
type View struct {
	Kind ViewKind

	// ViewBusy
	BytesLoaded int64
	BytesTotal  int64

	// ViewError
	Message string

	// ViewTable
	Table TableProps
}

// StaticTableRenderer draws a fully loaded table.
type StaticTableRenderer interface {
	RenderTable(props TableProps) error
}

// Presenter draws every view of the component; tables go to the embedded
// static renderer.
type Presenter interface {
	StaticTableRenderer
	RenderBusy(bytesLoaded, bytesTotal int64) error
	RenderError(message string) error
}

// Render maps a state to its view. It has no side effects.
func Render(s State, cfg Config) View {
	switch s.Phase {
	case PhaseFailed:
		msg := "Error loading data"
		if err := s.Err(); err != nil {
			msg = err.Error()
		}
		return View{Kind: ViewError, Message: msg}

	case PhaseLoaded:
		dataset, ok := s.Dataset()
		if !ok {
			dataset = &entities.TableDataset{}
		}
		return View{
			Kind: ViewTable,
			Table: TableProps{
				Headers:      dataset.Headers,
				Rows:         dataset.Data,
				FormatCell:   cfg.FormatCell,
				FreezeColumn: cfg.FreezeColumn,
			},
		}

	default:
		return View{Kind: ViewBusy, BytesLoaded: s.BytesLoaded, BytesTotal: s.BytesTotal}
	}
}

// Present renders v with p.
func Present(v View, p Presenter) error {
	switch v.Kind {
	case ViewError:
		return p.RenderError(v.Message)
	case ViewTable:
		return p.RenderTable(v.Table)
	default:
		return p.RenderBusy(v.BytesLoaded, v.BytesTotal)
	}
}
