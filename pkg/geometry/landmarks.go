// Package geometry turns 68-point facial landmarks into the ratios and
// angles the fatigue detectors consume.
package geometry

import "math"

// NumLandmarks is the size of the iBUG 68-point annotation scheme.
const NumLandmarks = 68

// Landmark index ranges (half-open) in the 68-point scheme.
const (
	JawStart      = 0
	JawEnd        = 17
	NoseBridge    = 27
	NoseTip       = 30
	RightEyeStart = 36
	RightEyeEnd   = 42
	LeftEyeStart  = 42
	LeftEyeEnd    = 48
	MouthStart    = 48
	MouthEnd      = 68
	MouthLeft     = 48
	MouthRight    = 54
	Chin          = 8
)

// Point is a 2-D image-space coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Landmarks is one face's 68 landmark points.
type Landmarks [NumLandmarks]Point

// RightEye returns the six contour points of the subject's right eye.
func (l *Landmarks) RightEye() [6]Point {
	var eye [6]Point
	copy(eye[:], l[RightEyeStart:RightEyeEnd])
	return eye
}

// LeftEye returns the six contour points of the subject's left eye.
func (l *Landmarks) LeftEye() [6]Point {
	var eye [6]Point
	copy(eye[:], l[LeftEyeStart:LeftEyeEnd])
	return eye
}

// Mouth returns the twenty outer and inner lip points.
func (l *Landmarks) Mouth() [20]Point {
	var mouth [20]Point
	copy(mouth[:], l[MouthStart:MouthEnd])
	return mouth
}

// FromSlice builds Landmarks from a flat point slice.
// Returns false if the slice does not hold exactly 68 points.
func FromSlice(points []Point) (*Landmarks, bool) {
	if len(points) != NumLandmarks {
		return nil, false
	}
	var lm Landmarks
	copy(lm[:], points)
	return &lm, true
}

func centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var c Point
	for _, p := range points {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(points))
	return Point{X: c.X / n, Y: c.Y / n}
}
