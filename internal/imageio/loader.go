// Package imageio decodes source images and writes fixed-height normalized copies.
package imageio

import (
	"fmt"
	"image"
	_ "image/gif"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decoder loads pixel data from a file.
type Decoder interface {
	Decode(path string) (image.Image, error)
}

// Loader decodes any registered format (jpeg, png, gif, bmp, tiff, webp).
// With AutoOrient the EXIF orientation tag is applied, so dimensions match
// what a viewer displays.
type Loader struct {
	AutoOrient bool
}

// NewLoader returns a Loader that honors EXIF orientation.
func NewLoader() Loader {
	return Loader{AutoOrient: true}
}

func (l Loader) Decode(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(l.AutoOrient))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
