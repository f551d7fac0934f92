package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

var sampleRows = []types.Entry{
	{Path: "docs/", Size: 3072},
	{Path: "docs/a.txt", Size: 1024},
	{Path: "docs/b, c.txt", Size: 2048},
	{Path: "readme.md", Size: 10},
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"csv", "json", "pdf", "tree", "tsv", "yaml"}, Available())

	_, err := Get("xls")
	assert.Error(t, err)

	r := NewRegistry()
	r.Register("csv", func() Formatter { return &CSVFormatter{} })
	assert.Equal(t, []string{"csv"}, r.Available())
}

func TestFormatForFile(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"out.csv", "csv"},
		{"OUT.PDF", "pdf"},
		{"list.yml", "yaml"},
		{"list.txt", "tree"},
		{"list.xls", ""},
		{"noext", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatForFile(tt.name))
		})
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&CSVFormatter{}).Format(&buf, sampleRows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"Name", "Size"}, records[0])
	assert.Equal(t, []string{"docs/b, c.txt", "2048"}, records[3])
}

func TestTSVFormatter(t *testing.T) {
	f, err := Get("tsv")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, sampleRows[:2]))
	assert.Equal(t, "Name\tSize\ndocs/\t3072\ndocs/a.txt\t1024\n", buf.String())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, sampleRows))

	var doc document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 4, doc.Count)
	assert.Equal(t, int64(3082), doc.TotalSize)
	assert.True(t, doc.Entries[0].Dir)
	assert.Equal(t, "1.0 KiB", doc.Entries[1].SizeHuman)
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, sampleRows))

	var doc document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 4, doc.Count)
	assert.Equal(t, "readme.md", doc.Entries[3].Path)
}

func TestPDFFormatter(t *testing.T) {
	var buf bytes.Buffer
	rows := make([]types.Entry, 0, 200)
	for range 200 {
		rows = append(rows, sampleRows...)
	}
	require.NoError(t, (&PDFFormatter{Title: "test"}).Format(&buf, rows))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestTreeFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TreeFormatter{}).Format(&buf, sampleRows))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "."))
	assert.Contains(t, out, "docs/")
	assert.Contains(t, out, "a.txt (1.0 KiB)")
	assert.Contains(t, out, "readme.md (10 B)")
	assert.Equal(t, 1, strings.Count(out, "docs/"))
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		want    int
	}{
		{"no patterns keeps everything", nil, 4},
		{"star stays in one component", []string{"*.md"}, 1},
		{"double star crosses directories", []string{"**.txt"}, 2},
		{"directory itself", []string{"docs"}, 1},
		{"any pattern matches", []string{"*.md", "docs/a*"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Filter(sampleRows, Options{Include: tt.include})
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	_, err := Filter(sampleRows, Options{Include: []string{"[unclosed"}})
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "csv", sampleRows, Options{Include: []string{"*.md"}}))
	assert.Equal(t, "Name,Size\nreadme.md,10\n", buf.String())

	assert.Error(t, Write(&buf, "nope", sampleRows, Options{}))
}
