package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateDocument carries the fields printed on a certificate.
type CertificateDocument struct {
	Number         string
	Title          string
	HolderName     string
	CourseName     string
	InstanceName   string
	OrganizationID string
	CompletedAt    *time.Time
	GeneratedAt    time.Time
	ExpiresAt      *time.Time
}

// CertificateRenderer lays out certificates as single page landscape PDFs.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render produces the PDF bytes for the document.
func (r *CertificateRenderer) Render(doc CertificateDocument) ([]byte, error) {
	if doc.Number == "" || doc.HolderName == "" {
		return nil, fmt.Errorf("certificate requires number and holder name")
	}
	title := doc.Title
	if title == "" {
		title = "Certificate of Completion"
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pageWidth, pageHeight := pdf.GetPageSize()
	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, pageWidth-20, pageHeight-20, "D")
	pdf.SetLineWidth(0.3)
	pdf.Rect(14, 14, pageWidth-28, pageHeight-28, "D")

	pdf.SetY(40)
	pdf.SetFont("Times", "B", 30)
	pdf.CellFormat(0, 14, title, "", 1, "C", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Times", "", 14)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Times", "B", 26)
	pdf.CellFormat(0, 12, doc.HolderName, "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Times", "", 14)
	pdf.CellFormat(0, 8, "has successfully completed", "", 1, "C", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Times", "B", 18)
	course := doc.CourseName
	if doc.InstanceName != "" {
		course = fmt.Sprintf("%s (%s)", course, doc.InstanceName)
	}
	pdf.CellFormat(0, 10, course, "", 1, "C", false, 0, "")

	if doc.CompletedAt != nil {
		pdf.SetFont("Times", "", 12)
		pdf.CellFormat(0, 8, "Completed on "+doc.CompletedAt.Format("January 2, 2006"), "", 1, "C", false, 0, "")
	}

	pdf.SetY(pageHeight - 45)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Certificate No. "+doc.Number, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, "Issued "+doc.GeneratedAt.Format("2006-01-02"), "", 1, "C", false, 0, "")
	if doc.ExpiresAt != nil {
		pdf.CellFormat(0, 6, "Valid until "+doc.ExpiresAt.Format("2006-01-02"), "", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
