package services

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/NikolozR/suliko-client/internal/domain"
)

type PDFService struct{}

func NewPDFService() *PDFService {
	return &PDFService{}
}

// GeneratePDF renders the translated document as a PDF to w.
func (s *PDFService) GeneratePDF(job domain.Job, translatedText string, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Translation %s", job.JobID), false)
	pdf.SetAuthor("Suliko", false)
	pdf.AddPage()

	title := strings.TrimSuffix(job.OriginalFileName, filepath.Ext(job.OriginalFileName))
	if strings.TrimSpace(title) == "" {
		title = "Translated document"
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	if job.SourceLanguageName != "" || job.TargetLanguageName != "" {
		pdf.Cell(0, 6, fmt.Sprintf("%s -> %s", job.SourceLanguageName, job.TargetLanguageName))
		pdf.Ln(6)
	}

	if !job.CreatedAt.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("Translated on %s", job.CreatedAt.Local().Format("02/01/2006 15:04")))
	} else {
		pdf.Cell(0, 6, fmt.Sprintf("Exported on %s", time.Now().Local().Format("02/01/2006 15:04")))
	}
	pdf.Ln(12)

	s.writeBody(pdf, translatedText)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	return nil
}

func (s *PDFService) writeBody(pdf *gofpdf.Fpdf, content string) {
	pdf.SetFont("Helvetica", "", 12)

	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) == 0 {
		pdf.MultiCell(0, 6, "(empty)", "", "L", false)
		return
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			pdf.Ln(4)
			continue
		}

		// Markdown headings get a heavier font, everything else flows
		// as plain paragraphs.
		if strings.HasPrefix(line, "#") {
			pdf.SetFont("Helvetica", "B", 14)
			pdf.MultiCell(0, 7, strings.TrimSpace(strings.TrimLeft(line, "#")), "", "L", false)
			pdf.SetFont("Helvetica", "", 12)
			continue
		}

		pdf.MultiCell(0, 6, line, "", "L", false)
	}
}
