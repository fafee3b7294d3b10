package task

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/grayforge/internal/imaging"
)

func writeImage(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 255, B: 0, A: 255})
	img.SetNRGBA(2, 0, color.NRGBA{R: 0, G: 0, B: 255, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{R: 30, G: 60, B: 90, A: 200})

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if filepath.Ext(path) == ".png" {
		err = png.Encode(f, img)
	} else {
		err = jpeg.Encode(f, img, nil)
	}
	if err != nil {
		t.Fatal(err)
	}
}

func TestTransformTaskSuccess(t *testing.T) {
	srcDir, dstDir := t.TempDir(), t.TempDir()
	src := filepath.Join(srcDir, "photo.png")
	writeImage(t, src)

	res := NewTransformTask(WorkItem{Source: src, DestDir: dstDir}, nil).Execute()

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s (%s), want SUCCESS", res.Outcome, res.Error)
	}
	if res.Source != src {
		t.Errorf("Source = %q, want %q", res.Source, src)
	}
	if res.Width != 3 || res.Height != 2 {
		t.Errorf("dimensions = %dx%d, want 3x2", res.Width, res.Height)
	}
	if res.Duration <= 0 {
		t.Error("expected positive duration")
	}

	out := filepath.Join(dstDir, "photo.png")
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("output not written under source name: %v", err)
	}
	defer f.Close()
	converted, err := png.Decode(f)
	if err != nil {
		t.Fatalf("output not a valid PNG: %v", err)
	}
	gray := converted.(*image.NRGBA)
	if px := gray.NRGBAAt(0, 0); px.R != 85 || px.G != 85 || px.B != 85 {
		t.Errorf("pixel (0,0) = %v, want gray 85", px)
	}
	if px := gray.NRGBAAt(0, 1); px != (color.NRGBA{R: 60, G: 60, B: 60, A: 200}) {
		t.Errorf("pixel (0,1) = %v, want gray 60 with alpha 200", px)
	}
}

func TestTransformTaskMissingSource(t *testing.T) {
	dstDir := t.TempDir()
	item := WorkItem{Source: filepath.Join(t.TempDir(), "absent.png"), DestDir: dstDir}

	res := NewTransformTask(item, nil).Execute()

	if res.Outcome != OutcomeIOError {
		t.Errorf("outcome = %s, want IO_ERROR", res.Outcome)
	}
	if res.Error == "" {
		t.Error("expected error message")
	}
	entries, _ := os.ReadDir(dstDir)
	if len(entries) != 0 {
		t.Errorf("nothing should be written on load failure, found %d entries", len(entries))
	}
}

func TestTransformTaskCorruptSource(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "broken.jpg")
	if err := os.WriteFile(src, []byte("not a jpeg at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := NewTransformTask(WorkItem{Source: src, DestDir: t.TempDir()}, nil).Execute()

	if res.Outcome != OutcomeLoadFailed {
		t.Errorf("outcome = %s, want LOAD_FAILED", res.Outcome)
	}
}

func TestTransformTaskMissingDestDir(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "photo.png")
	writeImage(t, src)

	item := WorkItem{Source: src, DestDir: filepath.Join(srcDir, "no", "such", "dir")}
	res := NewTransformTask(item, nil).Execute()

	if res.Outcome != OutcomeIOError {
		t.Errorf("outcome = %s, want IO_ERROR", res.Outcome)
	}
}

// failSaveCodec decodes for real but refuses to write.
type failSaveCodec struct {
	inner imaging.Codec
}

func (c *failSaveCodec) Decode(path string) (image.Image, error) {
	return c.inner.Decode(path)
}

func (c *failSaveCodec) Encode(img image.Image, path string) error {
	return fmt.Errorf("%w: %s: no space left on device", imaging.ErrEncode, filepath.Base(path))
}

func TestTransformTaskEncodeFailure(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "photo.png")
	writeImage(t, src)

	codec := &failSaveCodec{inner: imaging.NewStdCodec(0)}
	res := NewTransformTask(WorkItem{Source: src, DestDir: t.TempDir()}, codec).Execute()

	if res.Outcome != OutcomeSaveFailed {
		t.Errorf("outcome = %s, want SAVE_FAILED", res.Outcome)
	}
	if res.Width != 3 || res.Height != 2 {
		t.Errorf("dimensions should be recorded before the save attempt, got %dx%d", res.Width, res.Height)
	}
}

func TestTransformTaskJPEGDestination(t *testing.T) {
	srcDir, dstDir := t.TempDir(), t.TempDir()
	src := filepath.Join(srcDir, "photo.jpg")
	writeImage(t, src)

	res := NewTransformTask(WorkItem{Source: src, DestDir: dstDir}, nil).Execute()
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s (%s), want SUCCESS", res.Outcome, res.Error)
	}

	f, err := os.Open(filepath.Join(dstDir, "photo.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if format != "jpeg" {
		t.Errorf("output format = %s, want jpeg", format)
	}
}
