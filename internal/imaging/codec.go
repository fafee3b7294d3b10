package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUndecodable marks files that were opened fine but hold no
	// image data any registered decoder understands.
	ErrUndecodable = errors.New("undecodable image")

	// ErrEncode marks failures while serializing the converted image.
	ErrEncode = errors.New("encode image")
)

// Codec reads and writes images on disk. The batch pipeline only ever
// talks to this interface, so tests can swap in failing
// implementations without touching the filesystem.
type Codec interface {
	Decode(path string) (image.Image, error)
	Encode(img image.Image, path string) error
}

// StdCodec is the default Codec backed by the stdlib PNG and JPEG
// packages. Output format follows the destination file extension:
// ".png" writes PNG, everything else writes JPEG.
type StdCodec struct {
	quality int
}

// NewStdCodec returns a codec writing JPEG at the given quality.
// Values outside 1..100 fall back to the stdlib default.
func NewStdCodec(quality int) *StdCodec {
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return &StdCodec{quality: quality}
}

func (c *StdCodec) Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUndecodable, filepath.Base(path), err)
	}
	return img, nil
}

func (c *StdCodec) Encode(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	var encErr error
	if strings.EqualFold(filepath.Ext(path), ".png") {
		encErr = png.Encode(f, img)
	} else {
		encErr = jpeg.Encode(f, img, &jpeg.Options{Quality: c.quality})
	}
	closeErr := f.Close()

	if encErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncode, filepath.Base(path), encErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", path, closeErr)
	}
	return nil
}
