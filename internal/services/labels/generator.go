// Package labels renders printable QR label sheets for product codes.
// Scanning a label resolves the product code back through the product
// lookup endpoint.
package labels

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/kibslabs/labstock/internal/models"
	"github.com/skip2/go-qrcode"
)

// SheetConfig holds layout configuration for PDF generation
type SheetConfig struct {
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	MarginTop  float64 `json:"marginTop"`
	MarginLeft float64 `json:"marginLeft"`
	GapX       float64 `json:"gapX"`
	GapY       float64 `json:"gapY"`
}

// DefaultSheetConfig is a 3x8 A4 layout matching common label paper.
func DefaultSheetConfig() SheetConfig {
	return SheetConfig{
		Cols:       3,
		Rows:       8,
		MarginTop:  10,
		MarginLeft: 7,
		GapX:       2.5,
		GapY:       0,
	}
}

// GenerateProductLabels creates a PDF with one QR label per product.
func GenerateProductLabels(products []models.Product, cfg SheetConfig) ([]byte, error) {
	if cfg.Cols <= 0 || cfg.Rows <= 0 {
		return nil, fmt.Errorf("invalid sheet layout: %dx%d", cfg.Cols, cfg.Rows)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 10)

	// A4 dimensions
	pageWidth, pageHeight := 210.0, 297.0

	totalGapX := float64(cfg.Cols-1) * cfg.GapX
	totalGapY := float64(cfg.Rows-1) * cfg.GapY

	availW := pageWidth - (cfg.MarginLeft * 2)
	availH := pageHeight - (cfg.MarginTop * 2)

	labelW := (availW - totalGapX) / float64(cfg.Cols)
	labelH := (availH - totalGapY) / float64(cfg.Rows)

	labelsPerPage := cfg.Cols * cfg.Rows

	for i, product := range products {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		indexOnPage := i % labelsPerPage
		col := indexOnPage % cfg.Cols
		row := indexOnPage / cfg.Cols

		x := cfg.MarginLeft + float64(col)*(labelW+cfg.GapX)
		y := cfg.MarginTop + float64(row)*(labelH+cfg.GapY)

		qrPng, err := qrcode.Encode(product.ProductCode, qrcode.Low, 256)
		if err != nil {
			return nil, err
		}

		imgName := fmt.Sprintf("qr_%d", i)
		imgOptions := gofpdf.ImageOptions{
			ImageType: "PNG",
			ReadDpi:   true,
		}
		reader := bytes.NewReader(qrPng)
		_ = pdf.RegisterImageOptionsReader(imgName, imgOptions, reader)

		// QR centered in the label, 70% of its height
		qrSize := labelH * 0.7
		if qrSize > labelW {
			qrSize = labelW * 0.9
		}

		qrX := x + (labelW-qrSize)/2
		qrY := y + (labelH-qrSize)/2 - 2

		pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, imgOptions, 0, "")

		// Product code below the QR
		pdf.SetXY(x, y+labelH-6)
		pdf.SetFontSize(8)
		pdf.CellFormat(labelW, 5, product.ProductCode, "", 0, "C", false, 0, "")

		// Product name top left, truncated to the label width
		pdf.SetXY(x, y+1)
		pdf.SetFontSize(6)
		name := product.Name
		if len(name) > 32 {
			name = name[:29] + "..."
		}
		pdf.CellFormat(labelW, 3, name, "", 0, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
