package landmarks

import "image"

// Detection represents a detected face in pixel coordinates
type Detection struct {
	Box        image.Rectangle // Bounding box in frame pixels
	Confidence float64         // Detection confidence (0-1)
}

// Area returns the area of the bounding box
func (d Detection) Area() int {
	return d.Box.Dx() * d.Box.Dy()
}

// DetectorConfig holds face detector configuration
type DetectorConfig struct {
	ModelPath        string  `yaml:"model_path" json:"model_path"`               // Path to YuNet ONNX model
	ConfidenceThresh float64 `yaml:"confidence_thresh" json:"confidence_thresh"` // Minimum confidence (default 0.6)
	InputWidth       int     `yaml:"input_width" json:"input_width"`             // Initial model input width
	InputHeight      int     `yaml:"input_height" json:"input_height"`           // Initial model input height
}

// DefaultDetectorConfig returns production defaults for YuNet
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.6,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// Largest picks the face with the biggest bounding box, which is the
// driver in a single-occupant cabin. Ties go to the higher confidence.
func Largest(dets []Detection) *Detection {
	if len(dets) == 0 {
		return nil
	}

	best := &dets[0]
	for i := 1; i < len(dets); i++ {
		d := &dets[i]
		if d.Area() > best.Area() || (d.Area() == best.Area() && d.Confidence > best.Confidence) {
			best = d
		}
	}
	return best
}

// Square expands r to a square around its center, clipped to bounds.
// Landmark regressors are trained on square face crops.
func Square(r, bounds image.Rectangle) image.Rectangle {
	side := max(r.Dx(), r.Dy())
	cx := r.Min.X + r.Dx()/2
	cy := r.Min.Y + r.Dy()/2
	sq := image.Rect(cx-side/2, cy-side/2, cx-side/2+side, cy-side/2+side)
	return sq.Intersect(bounds)
}
