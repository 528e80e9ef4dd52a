package qr

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// DecodeImage scans a single page raster for a QR code and parses its
// payload. Returns ErrNoQRCode when the page carries none.
func DecodeImage(raster []byte) (*Payload, error) {
	img, _, err := image.Decode(bytes.NewReader(raster))
	if err != nil {
		return nil, err
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, err
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return nil, ErrNoQRCode
	}

	return ParsePayload(result.GetText())
}

// Rasterizer matches the fingerprint package's page renderer.
type Rasterizer interface {
	RasterizePages(data []byte) ([][]byte, error)
}

// PDFExtractor bundles a rasterizer with the decode loop.
type PDFExtractor struct {
	raster Rasterizer
}

func NewPDFExtractor(raster Rasterizer) *PDFExtractor {
	return &PDFExtractor{raster: raster}
}

func (e *PDFExtractor) Extract(data []byte) (*Payload, error) {
	return ExtractFromPDF(e.raster, data)
}

// ExtractFromPDF rasterizes the document and returns the first decodable QR
// payload. Pages without a code are skipped; ErrNoQRCode means the whole
// document had none.
func ExtractFromPDF(raster Rasterizer, pdfData []byte) (*Payload, error) {
	pages, err := raster.RasterizePages(pdfData)
	if err != nil {
		return nil, err
	}
	for _, page := range pages {
		payload, err := DecodeImage(page)
		if err != nil {
			continue
		}
		return payload, nil
	}
	return nil, ErrNoQRCode
}
