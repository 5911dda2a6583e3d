package report

import (
	"io"

	"github.com/joseph-ayodele/ocr-dataset-prep/internal/fsutil"
)

// Save renders into path atomically.
func Save(path string, render func(io.Writer) error) error {
	return fsutil.WriteFileAtomic(path, 0o644, render)
}

// Save writes the workbook to path atomically.
func (b *Workbook) Save(path string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	return Save(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
