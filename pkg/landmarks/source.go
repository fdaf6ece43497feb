// Package landmarks provides per-frame 68-point facial landmarks to the
// engine. Sources may run a local OpenCV pipeline, receive landmarks from a
// remote service over a websocket, or replay a recorded session.
package landmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-vigil/pkg/geometry"
)

// Errors returned by sources.
var (
	ErrClosed   = errors.New("landmarks: source closed")
	ErrBadFrame = errors.New("landmarks: malformed frame")
)

// Source yields one landmark set per processed camera frame.
// Next returns (nil, nil) when the frame had no face.
type Source interface {
	Next(ctx context.Context) (*geometry.Landmarks, error)
	Close() error
}

// Frame is the JSON form of one frame, used by the remote and replay sources.
type Frame struct {
	Time   time.Time    `json:"time,omitzero"`
	Face   bool         `json:"face"`
	Points [][2]float64 `json:"points,omitempty"`
}

// NewFrame encodes lm (nil for no face) at t.
func NewFrame(t time.Time, lm *geometry.Landmarks) Frame {
	f := Frame{Time: t, Face: lm != nil}
	if lm != nil {
		f.Points = make([][2]float64, len(lm))
		for i, p := range lm {
			f.Points[i] = [2]float64{p.X, p.Y}
		}
	}
	return f
}

// Landmarks converts the frame back to landmarks. A frame without a face
// yields nil.
func (f Frame) Landmarks() (*geometry.Landmarks, error) {
	if !f.Face {
		return nil, nil
	}
	if len(f.Points) != geometry.NumLandmarks {
		return nil, fmt.Errorf("%w: %d points, want %d", ErrBadFrame, len(f.Points), geometry.NumLandmarks)
	}
	var lm geometry.Landmarks
	for i, p := range f.Points {
		lm[i] = geometry.Point{X: p[0], Y: p[1]}
	}
	return &lm, nil
}

// Decode parses one JSON frame.
func Decode(data []byte) (*geometry.Landmarks, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return f.Landmarks()
}
