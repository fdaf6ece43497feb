package landmarks

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-vigil/pkg/geometry"
)

// RegressorConfig holds 68-point landmark model configuration
type RegressorConfig struct {
	ModelPath string `yaml:"model_path" json:"model_path"` // ONNX model emitting 136 normalized coordinates
	InputSize int    `yaml:"input_size" json:"input_size"` // Square model input (e.g. 112 for PFLD)
}

// DefaultRegressorConfig returns defaults for a PFLD-style 68-point model
func DefaultRegressorConfig() RegressorConfig {
	return RegressorConfig{
		ModelPath: "models/face_landmarks_68.onnx",
		InputSize: 112,
	}
}

// Regressor maps a face crop to 68 landmark points with an ONNX network
type Regressor struct {
	net       gocv.Net
	inputSize image.Point
	mu        sync.Mutex // Protects inference
}

// NewRegressor loads the landmark model
func NewRegressor(cfg RegressorConfig) (*Regressor, error) {
	// Check if model file exists
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	// Load ONNX model
	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load landmark model from %s", cfg.ModelPath)
	}

	// Set backend and target
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Regressor{
		net:       net,
		inputSize: image.Pt(cfg.InputSize, cfg.InputSize),
	}, nil
}

// Predict returns landmarks for the face inside box, in frame pixels
func (r *Regressor) Predict(img gocv.Mat, box image.Rectangle) (*geometry.Landmarks, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	crop := img.Region(box)
	defer crop.Close()

	// Create blob from the face crop
	blob := gocv.BlobFromImage(crop, 1.0/255.0, r.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	r.net.SetInput(blob, "")
	output := r.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read landmark output: %w", err)
	}
	return denormalize(data, box)
}

// denormalize maps [x0, y0, x1, y1, ...] in crop-relative [0,1] units back
// to frame pixels.
func denormalize(data []float32, box image.Rectangle) (*geometry.Landmarks, error) {
	if len(data) < 2*geometry.NumLandmarks {
		return nil, fmt.Errorf("%w: model produced %d values, want %d", ErrBadFrame, len(data), 2*geometry.NumLandmarks)
	}

	w, h := float64(box.Dx()), float64(box.Dy())
	var lm geometry.Landmarks
	for i := range lm {
		lm[i] = geometry.Point{
			X: float64(box.Min.X) + float64(data[2*i])*w,
			Y: float64(box.Min.Y) + float64(data[2*i+1])*h,
		}
	}
	return &lm, nil
}

// Close releases the network
func (r *Regressor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.net.Close()
}
