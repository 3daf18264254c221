package presenters

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aces/bvlfeedback/internal/application/datatable"
)

func TestTextPresenter_RenderTable(t *testing.T) {
	var out, status bytes.Buffer
	p := NewTextPresenter(&out, &status)

	err := p.RenderTable(datatable.TableProps{
		Headers:      []string{"Score", "Name"},
		Rows:         []map[string]any{{"Name": "A", "Score": 1}, {"Name": "Bobby"}},
		FreezeColumn: "Name",
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"Name", "Score"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"A", "1"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"Bobby"}, strings.Fields(lines[2]))
	assert.Empty(t, status.String())
}

func TestTextPresenter_RenderTableUsesFormatter(t *testing.T) {
	var out bytes.Buffer
	p := NewTextPresenter(&out, &bytes.Buffer{})

	err := p.RenderTable(datatable.TableProps{
		Headers: []string{"Name"},
		Rows:    []map[string]any{{"Name": "a"}},
		FormatCell: func(column string, cell any, row map[string]any) string {
			return strings.ToUpper(cell.(string))
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "A\n")
}

func TestTextPresenter_RenderTableEscapesControlCharacters(t *testing.T) {
	var out bytes.Buffer
	p := NewTextPresenter(&out, &bytes.Buffer{})

	err := p.RenderTable(datatable.TableProps{
		Headers: []string{"Site\tName", "Note"},
		Rows: []map[string]any{
			{"Site\tName": "a\tb", "Note": "line one\nline two"},
			{"Site\tName": "c", "Note": "crlf\r\nend"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{`Site\tName`, "Note"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{`a\tb`, "line", `one\nline`, "two"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"c", `crlf\r\nend`}, strings.Fields(lines[2]))
	assert.NotContains(t, out.String(), "\t")

	// second column starts at the same offset on every line
	offset := strings.Index(lines[0], "Note")
	assert.Equal(t, offset, strings.Index(lines[1], "line one"))
	assert.Equal(t, offset, strings.Index(lines[2], "crlf"))
}

func TestTextPresenter_BusyAndError(t *testing.T) {
	var out, status bytes.Buffer
	p := NewTextPresenter(&out, &status)

	require.NoError(t, p.RenderBusy(100, -1))
	require.NoError(t, p.RenderBusy(100, 400))
	require.NoError(t, p.RenderError("500: Internal error"))

	assert.Equal(t, "Loading... 100 bytes\nLoading... 100/400 bytes\nError: 500: Internal error\n", status.String())
	assert.Empty(t, out.String())
}

func TestTextPresenter_Present(t *testing.T) {
	var out, status bytes.Buffer
	p := NewTextPresenter(&out, &status)

	view := datatable.View{Kind: datatable.ViewTable, Table: datatable.TableProps{Headers: []string{"X"}}}
	require.NoError(t, datatable.Present(view, p))
	assert.Equal(t, "X\n", out.String())
}
