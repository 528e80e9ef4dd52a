package qr

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// CertificateDocument is the data rendered into an issued certificate PDF.
type CertificateDocument struct {
	StudentName   string
	RollNumber    string
	Course        string
	Institution   string
	CertificateID string
	IssuedAt      time.Time
}

// QR stamp position on an A4 landscape page, in millimeters. Deterministic so
// verification can expect the code in the same corner on every issued PDF.
const (
	stampX    = 240.0
	stampY    = 155.0
	stampEdge = 40.0
)

// BuildCertificatePDF renders the issued certificate with the QR code stamped
// at the fixed bottom-right position.
func BuildCertificatePDF(doc *CertificateDocument, qrPNG []byte) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetY(40)
	pdf.CellFormat(0, 14, "Certificate of Completion", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.SetY(70)
	pdf.CellFormat(0, 10, "This certifies that", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 14, doc.StudentName, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Roll No. %s", doc.RollNumber), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 10, fmt.Sprintf("has successfully completed %s", doc.Course), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 10, fmt.Sprintf("issued by %s on %s", doc.Institution, doc.IssuedAt.Format("2 January 2006")), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetY(180)
	pdf.CellFormat(0, 6, fmt.Sprintf("Certificate ID: %s", doc.CertificateID), "", 1, "L", false, 0, "")

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr-stamp", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr-stamp", stampX, stampY, stampEdge, stampEdge, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
