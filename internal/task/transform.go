package task

import (
	"errors"
	"time"

	"github.com/ppiankov/grayforge/internal/imaging"
)

// TransformTask converts one image to grayscale through a Codec.
type TransformTask struct {
	item  WorkItem
	codec imaging.Codec
}

// NewTransformTask builds the task for a single work item. A nil
// codec falls back to the stdlib PNG/JPEG codec at default quality.
func NewTransformTask(item WorkItem, codec imaging.Codec) *TransformTask {
	if codec == nil {
		codec = imaging.NewStdCodec(0)
	}
	return &TransformTask{item: item, codec: codec}
}

// Execute runs the load, transform, save pipeline for one image.
// Every failure is absorbed into the returned Result.
func (t *TransformTask) Execute() Result {
	start := time.Now()
	res := Result{Source: t.item.Source}

	img, err := t.codec.Decode(t.item.Source)
	if err != nil {
		if errors.Is(err, imaging.ErrUndecodable) {
			res.Outcome = OutcomeLoadFailed
		} else {
			res.Outcome = OutcomeIOError
		}
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	b := img.Bounds()
	res.Width, res.Height = b.Dx(), b.Dy()

	gray := imaging.Grayscale(img)
	if err := t.codec.Encode(gray, t.item.OutputPath()); err != nil {
		if errors.Is(err, imaging.ErrEncode) {
			res.Outcome = OutcomeSaveFailed
		} else {
			res.Outcome = OutcomeIOError
		}
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	res.Outcome = OutcomeSuccess
	res.Duration = time.Since(start)
	return res
}
