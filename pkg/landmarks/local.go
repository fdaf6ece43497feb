package landmarks

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-vigil/pkg/camera"
	"github.com/teslashibe/go-vigil/pkg/geometry"
)

// LocalConfig configures the on-device pipeline.
type LocalConfig struct {
	Detector  DetectorConfig  `yaml:"detector" json:"detector"`
	Regressor RegressorConfig `yaml:"regressor" json:"regressor"`
}

// DefaultLocalConfig returns the default model paths and sizes.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		Detector:  DefaultDetectorConfig(),
		Regressor: DefaultRegressorConfig(),
	}
}

// LocalSource runs camera capture, YuNet face detection and 68-point
// regression in-process. Only the largest face is analyzed.
type LocalSource struct {
	cam       *camera.Manager
	detector  *YuNetDetector
	regressor *Regressor
	frame     gocv.Mat

	mu     sync.Mutex
	closed bool
}

// NewLocal loads both models. The camera must be opened by the caller.
func NewLocal(cam *camera.Manager, cfg LocalConfig) (*LocalSource, error) {
	detector, err := NewYuNet(cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("face detector: %w", err)
	}
	regressor, err := NewRegressor(cfg.Regressor)
	if err != nil {
		detector.Close()
		return nil, fmt.Errorf("landmark model: %w", err)
	}
	return &LocalSource{
		cam:       cam,
		detector:  detector,
		regressor: regressor,
		frame:     gocv.NewMat(),
	}, nil
}

// Next captures one frame and returns the largest face's landmarks.
func (s *LocalSource) Next(ctx context.Context) (*geometry.Landmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	if err := s.cam.Read(&s.frame); err != nil {
		return nil, err
	}

	dets, err := s.detector.Detect(s.frame)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	face := Largest(dets)
	if face == nil {
		return nil, nil
	}

	box := Square(face.Box, image.Rect(0, 0, s.frame.Cols(), s.frame.Rows()))
	if box.Empty() {
		return nil, nil
	}
	return s.regressor.Predict(s.frame, box)
}

// Close releases the models and the frame buffer. The camera is left to its owner.
func (s *LocalSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.detector.Close()
	s.regressor.Close()
	return s.frame.Close()
}
