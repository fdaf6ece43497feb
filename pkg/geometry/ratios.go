package geometry

import "math"

// EAR is clamped to this range to suppress outliers from bad landmark localization.
const (
	EARMin = 0.15
	EARMax = 0.40
)

// Sample is the per-frame geometry derived from one set of landmarks.
type Sample struct {
	EAR       float64 `json:"ear"`
	MAR       float64 `json:"mar"`
	RollDeg   float64 `json:"roll_deg"`
	PitchDeg  float64 `json:"pitch_deg"`
	FaceRatio float64 `json:"face_ratio"`
}

// EyeAspectRatio computes (|p1-p5| + |p2-p4|) / (2|p0-p3|) over six ordered
// eye-contour points. The result is always within [EARMin, EARMax]; a
// zero-width eye reads as 0 before clamping.
func EyeAspectRatio(eye [6]Point) float64 {
	width := eye[0].Dist(eye[3])
	ear := 0.0
	if width > 0 {
		ear = (eye[1].Dist(eye[5]) + eye[2].Dist(eye[4])) / (2 * width)
	}
	return clamp(ear, EARMin, EARMax)
}

// MouthAspectRatio computes (|p13-p19| + |p14-p18| + |p15-p17|) / (3|p12-p16|)
// over the twenty mouth points. Unclamped; 0 when the inner mouth has no width.
func MouthAspectRatio(mouth [20]Point) float64 {
	width := mouth[12].Dist(mouth[16])
	if width == 0 {
		return 0
	}
	return (mouth[13].Dist(mouth[19]) + mouth[14].Dist(mouth[18]) + mouth[15].Dist(mouth[17])) / (3 * width)
}

// HeadPose returns absolute roll and pitch in degrees.
// Roll is the inter-ocular vector against horizontal; pitch is the nose-tip to
// mouth-center vector offset by 90 degrees, so an upright face reads 0 for both.
func HeadPose(lm *Landmarks) (rollDeg, pitchDeg float64) {
	rightEye := centroid(lm[RightEyeStart:RightEyeEnd])
	leftEye := centroid(lm[LeftEyeStart:LeftEyeEnd])
	eyeVec := leftEye.Sub(rightEye)
	if eyeVec.X != 0 || eyeVec.Y != 0 {
		rollDeg = math.Abs(degrees(math.Atan2(eyeVec.Y, eyeVec.X)))
	}

	mouthCenter := centroid([]Point{lm[MouthLeft], lm[MouthRight]})
	noseToMouth := mouthCenter.Sub(lm[NoseTip])
	if noseToMouth.X != 0 || noseToMouth.Y != 0 {
		pitchDeg = math.Abs(degrees(math.Atan2(noseToMouth.Y, noseToMouth.X)) - 90)
	}
	return rollDeg, pitchDeg
}

// FaceRatio is jaw width over nose-bridge-to-chin height, 0 when degenerate.
func FaceRatio(lm *Landmarks) float64 {
	height := lm[NoseBridge].Dist(lm[Chin])
	if height == 0 {
		return 0
	}
	return lm[JawStart].Dist(lm[JawEnd-1]) / height
}

// Analyze derives a Sample from landmarks. EAR is the mean of both eyes.
func Analyze(lm *Landmarks) Sample {
	roll, pitch := HeadPose(lm)
	return Sample{
		EAR:       (EyeAspectRatio(lm.RightEye()) + EyeAspectRatio(lm.LeftEye())) / 2,
		MAR:       MouthAspectRatio(lm.Mouth()),
		RollDeg:   roll,
		PitchDeg:  pitch,
		FaceRatio: FaceRatio(lm),
	}
}

// degrees converts radians to degrees.
func degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
