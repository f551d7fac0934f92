package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

// CSVFormatter writes a Name,Size header followed by one row per entry.
// Comma selects the field separator; zero means ','.
type CSVFormatter struct {
	Comma rune
}

// Format implements Formatter.
func (f *CSVFormatter) Format(w io.Writer, rows []types.Entry) error {
	cw := csv.NewWriter(w)
	if f.Comma != 0 {
		cw.Comma = f.Comma
	}
	if err := cw.Write([]string{"Name", "Size"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.Path, strconv.FormatInt(row.Size, 10)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func init() {
	Register("csv", func() Formatter { return &CSVFormatter{} })
	Register("tsv", func() Formatter { return &CSVFormatter{Comma: '\t'} })
}

var _ Formatter = (*CSVFormatter)(nil)
