// Package pdfexport writes a report as a paginated PDF document.
package pdfexport

import (
	"fmt"
	"io"
	"strings"
	"time"

	gofpdf "github.com/go-pdf/fpdf"
	"github.com/reporteria/reportviewer/internal/viewmodel"
	"github.com/ubuntu/decorate"
)

// Title is the heading of every exported document.
const Title = "Reporte del Sistema"

const (
	margin      = 15.0
	lineHeight  = 6.0
	keyWidth    = 55.0
	titleHeight = 10.0
)

// Options tunes the exported document.
type Options struct {
	// Now returns the generation time. Defaults to time.Now.
	Now func() time.Time

	noCompress bool
}

// Write renders vm as a PDF document to w.
//
// Pages are A4. A new page starts whenever the next line would cross the bottom margin.
func Write(w io.Writer, vm viewmodel.ViewModel, opts Options) (err error) {
	defer decorate.OnError(&err, "could not export PDF")

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	generated := now()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(!opts.noCompress)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetCreationDate(generated)
	pdf.SetTitle(Title, true)
	pdf.SetCreator("reportviewer", true)

	// Core fonts are cp1252; accents in Spanish labels need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	bottom := pageH - margin
	valueWidth := pageW - 2*margin - keyWidth

	ensureRoom := func(h float64) {
		if pdf.GetY()+h > bottom {
			pdf.AddPage()
		}
	}

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, titleHeight, tr(Title), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.CellFormat(0, lineHeight, tr(fmt.Sprintf("Generado: %s", generated.Format("2006-01-02 15:04:05"))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, lineHeight, tr(fmt.Sprintf("Equipo: %s", Identifier(vm))), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, s := range Sections(vm) {
		// Keep a section title with at least its first line.
		ensureRoom(titleHeight + lineHeight)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.SetTextColor(37, 99, 235)
		pdf.CellFormat(0, titleHeight, tr(s.Title), "", 1, "L", false, 0, "")

		pdf.SetTextColor(30, 41, 59)
		for _, l := range s.Lines {
			writeLine(pdf, tr, l, valueWidth, ensureRoom)
		}
		pdf.Ln(2)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func writeLine(pdf *gofpdf.Fpdf, tr func(string) string, l Line, valueWidth float64, ensureRoom func(float64)) {
	key := ""
	if l.Key != "" {
		key = l.Key + ":"
	} else {
		l.Value = "• " + l.Value
	}

	pdf.SetFont("Helvetica", "", 10)
	for i, part := range wrap(pdf, tr(l.Value), valueWidth) {
		ensureRoom(lineHeight)
		k := ""
		if i == 0 {
			k = tr(key)
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(keyWidth, lineHeight, k, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(valueWidth, lineHeight, part, "", 1, "L", false, 0, "")
	}
}

// wrap splits cp1252 text into lines no wider than width in the current font.
// Words wider than a whole line are cut.
func wrap(pdf *gofpdf.Fpdf, s string, width float64) []string {
	var lines []string
	var cur string
	for _, word := range strings.Fields(s) {
		candidate := word
		if cur != "" {
			candidate = cur + " " + word
		}
		if pdf.GetStringWidth(candidate) <= width {
			cur = candidate
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
		}
		for pdf.GetStringWidth(word) > width && len(word) > 1 {
			n := len(word) - 1
			for n > 1 && pdf.GetStringWidth(word[:n]) > width {
				n--
			}
			lines = append(lines, word[:n])
			word = word[n:]
		}
		cur = word
	}
	if cur != "" || len(lines) == 0 {
		lines = append(lines, cur)
	}
	return lines
}
