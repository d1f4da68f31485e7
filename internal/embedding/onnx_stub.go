//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/mindcast/internal/models"
)

// ONNXEncoder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEncoder struct{}

// NewONNXEncoder returns models.ErrEncoderUnavailable when built without CGO.
func NewONNXEncoder(_ string, _, _, _ int) (*ONNXEncoder, error) {
	return nil, fmt.Errorf("%w: ONNX encoder requires CGO; build with CGO_ENABLED=1 and onnxruntime", models.ErrEncoderUnavailable)
}

func (e *ONNXEncoder) EncodeBatch(context.Context, []string) (*Batch, error) {
	return nil, models.ErrEncoderUnavailable
}

func (e *ONNXEncoder) EncodeSentence(context.Context, string) ([]float32, error) {
	return nil, models.ErrEncoderUnavailable
}

func (e *ONNXEncoder) Dimensions() int { return 0 }

func (e *ONNXEncoder) Close() error { return nil }
