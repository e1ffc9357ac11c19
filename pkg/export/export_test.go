package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Moderation queue",
		Columns: []Column{{Header: "ID", Width: 2}, {Header: "Status"}, {Header: "Context", Width: 3}},
		Rows: [][]string{
			{"b-1", "PENDING", "Physics finals"},
			{"b-2", "APPROVED", "=HYPERLINK(\"http://evil\")"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Status,Context", lines[0])
	assert.Equal(t, "b-1,PENDING,Physics finals", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "b-2,APPROVED,\"'=HYPERLINK"))
}

func TestExportersRejectRaggedRows(t *testing.T) {
	data := sampleDataset()
	data.Rows = append(data.Rows, []string{"only-one"})
	_, err := NewCSVExporter().Render(data)
	require.Error(t, err)
	_, err = NewPDFExporter().Render(data)
	require.Error(t, err)
	_, err = NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := sampleDataset()
	data.Rows = append(data.Rows, []string{"b-3", "REJECTED", strings.Repeat("very long context ", 20)})
	out, err := NewPDFExporter().Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
