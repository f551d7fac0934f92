package export

import (
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

const (
	pdfNameWidth = 140.0
	pdfSizeWidth = 40.0
	pdfRowHeight = 6.0
)

// PDFFormatter writes a two column Name/Size table on A4 pages, repeating
// the header on every page.
type PDFFormatter struct {
	// Title is printed above the table when set.
	Title string
}

// Format implements Formatter.
func (f *PDFFormatter) Format(w io.Writer, rows []types.Entry) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetHeaderFunc(func() {
		if f.Title != "" && pdf.PageNo() == 1 {
			pdf.SetFont("Helvetica", "B", 14)
			pdf.CellFormat(0, 10, tr(f.Title), "", 1, "L", false, 0, "")
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(220, 220, 220)
		pdf.CellFormat(pdfNameWidth, pdfRowHeight+1, "Name", "1", 0, "L", true, 0, "")
		pdf.CellFormat(pdfSizeWidth, pdfRowHeight+1, "Size", "1", 1, "R", true, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 9)
	var total int64
	for _, r := range rows {
		name := pdf.SplitText(tr(r.Path), pdfNameWidth-2)
		label := r.Path
		if len(name) > 0 {
			label = name[0]
		}
		pdf.CellFormat(pdfNameWidth, pdfRowHeight, label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(pdfSizeWidth, pdfRowHeight, types.FormatSize(r.Size), "1", 1, "R", false, 0, "")
		if !r.IsDir() {
			total += r.Size
		}
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(pdfNameWidth, pdfRowHeight, strconv.Itoa(len(rows))+" entries", "1", 0, "L", false, 0, "")
	pdf.CellFormat(pdfSizeWidth, pdfRowHeight, types.FormatSize(total), "1", 1, "R", false, 0, "")

	return pdf.Output(w)
}

func init() {
	Register("pdf", func() Formatter { return &PDFFormatter{Title: "SuperDuck export"} })
}

var _ Formatter = (*PDFFormatter)(nil)
