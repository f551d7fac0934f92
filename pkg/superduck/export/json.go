package export

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

// document is the structure shared by the json and yaml formats.
type document struct {
	Entries   []row `json:"entries" yaml:"entries"`
	Count     int   `json:"count" yaml:"count"`
	TotalSize int64 `json:"total_size" yaml:"total_size"`
}

type row struct {
	Path      string `json:"path" yaml:"path"`
	Dir       bool   `json:"dir,omitempty" yaml:"dir,omitempty"`
	Size      int64  `json:"size" yaml:"size"`
	SizeHuman string `json:"size_human" yaml:"size_human"`
}

func buildDocument(rows []types.Entry) document {
	doc := document{Entries: make([]row, len(rows)), Count: len(rows)}
	for i, e := range rows {
		doc.Entries[i] = row{Path: e.Path, Dir: e.IsDir(), Size: e.Size, SizeHuman: e.HumanSize()}
		if !e.IsDir() {
			doc.TotalSize += e.Size
		}
	}
	return doc
}

// JSONFormatter writes a single indented JSON document.
type JSONFormatter struct{}

// Format implements Formatter.
func (f *JSONFormatter) Format(w io.Writer, rows []types.Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildDocument(rows))
}

// YAMLFormatter writes the same document as JSONFormatter in YAML.
type YAMLFormatter struct{}

// Format implements Formatter.
func (f *YAMLFormatter) Format(w io.Writer, rows []types.Entry) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(buildDocument(rows)); err != nil {
		return err
	}
	return enc.Close()
}

func init() {
	Register("json", func() Formatter { return &JSONFormatter{} })
	Register("yaml", func() Formatter { return &YAMLFormatter{} })
}

var (
	_ Formatter = (*JSONFormatter)(nil)
	_ Formatter = (*YAMLFormatter)(nil)
)
