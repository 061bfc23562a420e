package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ExportManager owns the on-disk artifacts produced for download: rendered
// PDF exports of translated documents. Session state itself is never
// persisted; only export output lands here.
type ExportManager struct {
	baseDir string
	pdfDir  string
}

func NewExportManager(baseDir string) (*ExportManager, error) {
	em := &ExportManager{
		baseDir: baseDir,
		pdfDir:  filepath.Join(baseDir, "pdf"),
	}

	for _, dir := range []string{em.baseDir, em.pdfDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	return em, nil
}

// PDFPath returns where the export for a session lives, whether or not it
// has been generated yet.
func (em *ExportManager) PDFPath(sessionID string) string {
	return filepath.Join(em.pdfDir, fmt.Sprintf("%s.pdf", sessionID))
}

// SavePDF streams a rendered PDF into the export directory.
func (em *ExportManager) SavePDF(sessionID string, r io.Reader) (string, error) {
	path := em.PDFPath(sessionID)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create pdf file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write pdf file: %w", err)
	}

	return path, nil
}

// Remove deletes the export artifact for a closed session, if present.
func (em *ExportManager) Remove(sessionID string) {
	_ = os.Remove(em.PDFPath(sessionID))
}
