package document

import (
	"os"
	"path/filepath"
	"time"

	errs "github.com/matzehuels/nixvault/pkg/errors"
	"github.com/matzehuels/nixvault/pkg/record"
)

// PackagesDir is the subdirectory of the output root holding documents.
const PackagesDir = "packages"

// Path returns where the document for r is written under outRoot.
func Path(outRoot string, r *record.Record) string {
	return filepath.Join(outRoot, PackagesDir, r.ID()+Ext)
}

// Writer persists rendered documents under Root. It is safe for concurrent
// use as long as callers write distinct records.
type Writer struct {
	Root string
}

// NewWriter creates a writer for the output root dir.
func NewWriter(root string) *Writer {
	return &Writer{Root: root}
}

// Save renders r and writes it to [Path], replacing any previous file.
// Failures are SAVE_FAILED errors.
func (w *Writer) Save(r *record.Record, generatedAt time.Time) (string, error) {
	path := Path(w.Root, r)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errs.Wrap(errs.ErrCodeSaveFailed, err, "create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, Render(r, generatedAt), 0644); err != nil {
		return "", errs.Wrap(errs.ErrCodeSaveFailed, err, "write %s", path)
	}
	return path, nil
}
