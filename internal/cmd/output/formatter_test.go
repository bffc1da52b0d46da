package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/evently/internal/cmd/table"
)

type item struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

func rows(wide bool) table.Data {
	d := table.Data{Headers: []string{"ID", "Name"}, Rows: [][]string{{"1", "Go Night"}}}
	if wide {
		d.Headers = append(d.Headers, "City")
		d.Rows[0] = append(d.Rows[0], "Berlin")
	}
	return d
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "WIDE", "json", "yaml", "markdown", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
	assert.Contains(t, []Format{FormatTable, FormatJSON}, DetectFormat(""))
}

func TestFormat_IsTabular(t *testing.T) {
	assert.True(t, FormatTable.IsTabular())
	assert.True(t, FormatWide.IsTabular())
	assert.True(t, FormatMarkdown.IsTabular())
	assert.False(t, FormatJSON.IsTabular())
	assert.False(t, FormatYAML.IsTabular())
}

func TestRender(t *testing.T) {
	raw := []item{{ID: 1, Name: "Go Night"}}

	tests := []struct {
		format Format
		want   []string
		absent []string
	}{
		{FormatJSON, []string{`"name": "Go Night"`}, nil},
		{FormatYAML, []string{"name: Go Night"}, nil},
		{FormatTable, []string{"Go Night"}, []string{"Berlin"}},
		{FormatWide, []string{"Go Night", "Berlin"}, nil},
		{FormatMarkdown, []string{"|", "Go Night"}, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, tt.format, raw, rows))
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestTableFormatter_NonTableFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format(&buf, item{ID: 7}))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))
}

func TestMarkdownFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownFormatter{}).Format(&buf, table.Data{Headers: []string{"ID"}}))
	assert.Contains(t, buf.String(), "ID")
}
