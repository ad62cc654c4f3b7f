package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-pdf/fpdf"
)

// TicketFields is everything printed on an entry pass.
type TicketFields struct {
	EventName    string
	TicketNumber string
	ChildName    string
	ChildRoll    string
	ClassSection string
	Guests       []string
	TotalPeople  int
	AmountPaid   int64
	Currency     string
}

// Renderer writes one A4 PDF per ticket under <dir>/tickets.  Rendering the
// same ticket twice overwrites the file with identical content.
type Renderer struct {
	dir string
}

// NewRenderer returns a Renderer rooted at dir.
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: filepath.Join(dir, "tickets")}
}

// Path is where the document for ticket lives, whether or not it exists yet.
func (r *Renderer) Path(ticket string) string {
	return filepath.Join(r.dir, safeName(ticket)+".pdf")
}

// Exists reports whether the document for ticket has been rendered.
func (r *Renderer) Exists(ticket string) bool {
	_, err := os.Stat(r.Path(ticket))
	return err == nil
}

// Render draws the entry pass and returns the file path.
func (r *Renderer) Render(f TicketFields) (string, error) {
	if f.TicketNumber == "" {
		return "", errors.New("render: empty ticket number")
	}
	qrPNG, err := EncodeQR(f.TicketNumber)
	if err != nil {
		return "", fmt.Errorf("render: qr: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(f.EventName+" "+f.TicketNumber, true)
	pdf.SetCreator("event-ticket-system", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetXY(20, 25)
	pdf.CellFormat(pageW-40, 12, tr(f.EventName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(pageW-40, 8, "Entry Pass", "", 1, "L", false, 0, "")

	pdf.RegisterImageOptionsReader("qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", pageW-20-60, 55, 60, 60, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	pdf.SetFont("Courier", "B", 16)
	pdf.SetXY(20, 60)
	pdf.CellFormat(100, 10, tr(f.TicketNumber), "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	line := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(40, 8, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(80, 8, tr(value), "", 1, "L", false, 0, "")
	}
	line("Student", f.ChildName)
	line("Roll number", f.ChildRoll)
	line("Class", f.ClassSection)
	for i, g := range f.Guests {
		line("Guest "+strconv.Itoa(i+1), g)
	}
	line("People allowed", strconv.Itoa(f.TotalPeople))
	if f.AmountPaid > 0 {
		line("Amount", strconv.FormatInt(f.AmountPaid, 10)+" "+f.Currency)
	}

	pdf.SetFont("Helvetica", "I", 11)
	pdf.SetXY(20, pageH-30)
	pdf.CellFormat(pageW-40, 8, "QR valid for one-time entry only.", "T", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	path := r.Path(f.TicketNumber)
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("render: write: %w", err)
	}
	return path, nil
}
