// Package decoder reads QR codes and barcodes from camera frames.
package decoder

import (
	stderrors "errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/abrezinsky/gatecheck/internal/models"
)

// ErrNotFound means the frame holds no readable code. It is expected on most frames.
var ErrNotFound = stderrors.New("no code in frame")

// Decoder turns a frame into a scan result
type Decoder interface {
	Decode(img image.Image) (models.ScanResult, error)
}

// Engine tries a fixed list of symbologies in order
type Engine struct {
	mu      sync.Mutex
	readers []gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
}

// New creates an engine for QR, Code 128, Code 39, EAN-13 and Data Matrix
func New() *Engine {
	return &Engine{
		readers: []gozxing.Reader{
			qrcode.NewQRCodeReader(),
			oned.NewCode128Reader(),
			oned.NewCode39Reader(),
			oned.NewEAN13Reader(),
			datamatrix.NewDataMatrixReader(),
		},
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Decode returns the first code found in img, or ErrNotFound
func (e *Engine) Decode(img image.Image) (models.ScanResult, error) {
	if img == nil {
		return models.ScanResult{}, ErrNotFound
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return models.ScanResult{}, fmt.Errorf("binarize frame: %w", err)
	}

	// gozxing readers keep per-decode state
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range e.readers {
		result, err := r.Decode(bmp, e.hints)
		r.Reset()
		if err != nil || result == nil {
			continue
		}
		text := result.GetText()
		if strings.TrimSpace(text) == "" {
			continue
		}
		return models.ScanResult{
			RawText: text,
			Format:  result.GetBarcodeFormat().String(),
		}, nil
	}
	return models.ScanResult{}, ErrNotFound
}

var _ Decoder = (*Engine)(nil)
