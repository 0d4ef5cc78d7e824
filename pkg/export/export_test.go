package export

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRenderAndParse(t *testing.T) {
	exporter := NewCSVExporter()
	data := Dataset{
		Headers: []string{"code", "title"},
		Rows: []map[string]string{
			{"code": "CS101", "title": "Intro, with comma"},
			{"code": "MA101", "title": `Quoted "title"`},
		},
	}
	out, err := exporter.Render(data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "code,title\n"))

	parsed, err := exporter.Parse(bytes.NewReader(out), "code", "title")
	require.NoError(t, err)
	assert.Equal(t, data.Headers, parsed.Headers)
	assert.Equal(t, data.Rows, parsed.Rows)
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestCSVParseMissingColumn(t *testing.T) {
	_, err := NewCSVExporter().Parse(strings.NewReader("id,regNo\n1,R1\n"), "id", "regNo", "email")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"email"`)
}

func TestCSVParseShortRowsAndBlankLines(t *testing.T) {
	input := "\ufeffid, regNo ,fullName\n1,R1\n\n2,R2,Bob\n"
	parsed, err := NewCSVExporter().Parse(strings.NewReader(input), "id", "regNo")
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, "", parsed.Rows[0]["fullName"])
	assert.Equal(t, "Bob", parsed.Rows[1]["fullName"])
}

func TestCSVParseEmpty(t *testing.T) {
	_, err := NewCSVExporter().Parse(strings.NewReader(""))
	assert.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	data := Dataset{Headers: []string{"Code", "Grade"}, Rows: []map[string]string{{"Code": "CS101", "Grade": "S"}}}
	out, err := NewPDFExporter().Render(data, "Transcript", "GPA: 10.00")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
}

func TestPDFRenderPaginatesLongTables(t *testing.T) {
	rows := make([]map[string]string, 0, 120)
	for i := 0; i < 120; i++ {
		rows = append(rows, map[string]string{"Code": fmt.Sprintf("CS%03d", i), "Title": "Élan Vital Seminar", "Credits": "3"})
	}
	exporter := NewPDFExporter()
	exporter.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }

	out, err := exporter.Render(Dataset{Headers: []string{"Code", "Title", "Credits"}, Rows: rows}, "Transcript R1")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Regexp(t, `/Count [2-9]`, string(out))
}

func TestColumnWidthsFillPage(t *testing.T) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	data := Dataset{
		Headers: []string{"Code", "Title"},
		Rows:    []map[string]string{{"Code": "CS101", "Title": "A considerably longer course title"}},
	}
	widths := columnWidths(pdf, tr, data)
	require.Len(t, widths, 2)
	assert.InDelta(t, pageWidth, widths[0]+widths[1], 0.001)
	assert.Greater(t, widths[1], widths[0])
}

func TestAlignFor(t *testing.T) {
	assert.Equal(t, "R", alignFor("3"))
	assert.Equal(t, "R", alignFor("9.50"))
	assert.Equal(t, "L", alignFor("N/A"))
}
