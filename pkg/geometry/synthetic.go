package geometry

import "math"

// FacePose describes a synthetic face for replays, demos and tests.
type FacePose struct {
	EAR      float64 // eye aspect ratio before clamping
	MAR      float64 // mouth aspect ratio
	RollDeg  float64 // in-plane head rotation
	PitchDeg float64 // nose-to-mouth deflection
	CenterX  float64
	CenterY  float64
	Scale    float64 // 1.0 = ~120px wide face
}

// NeutralPose is an upright, eyes-open, mouth-closed face at the center of a 640x480 frame.
func NeutralPose() FacePose {
	return FacePose{
		EAR:     0.30,
		MAR:     0.10,
		CenterX: 320,
		CenterY: 240,
		Scale:   1.0,
	}
}

// Synthesize builds 68 landmarks whose EAR, MAR, roll and pitch match the pose.
// Roll rotates the whole face, so it also shows up in the measured pitch.
func Synthesize(pose FacePose) *Landmarks {
	var lm Landmarks

	// Jaw: a U from temple to temple through the chin.
	for i := JawStart; i < JawEnd; i++ {
		t := math.Pi * float64(i) / float64(JawEnd-1)
		lm[i] = Point{X: -60 * math.Cos(t), Y: -10 + 80*math.Sin(t)}
	}

	// Brows (17-26).
	for i := 17; i < 27; i++ {
		lm[i] = Point{X: -45 + 10*float64(i-17), Y: -22}
	}

	// Nose bridge (27-30) and nostrils (31-35).
	for i := NoseBridge; i <= NoseTip; i++ {
		lm[i] = Point{X: 0, Y: -10 + 10*float64(i-NoseBridge)}
	}
	for i := 31; i < 36; i++ {
		lm[i] = Point{X: -8 + 4*float64(i-31), Y: 24}
	}

	placeEye(&lm, RightEyeStart, -30, pose.EAR)
	placeEye(&lm, LeftEyeStart, 30, pose.EAR)
	placeMouth(&lm, pose.MAR)

	// Pitch: swing the nose tip so the nose-to-mouth vector sits at 90+pitch degrees.
	mouthCenter := Point{X: 0, Y: 40}
	angle := (90 + pose.PitchDeg) * math.Pi / 180
	lm[NoseTip] = Point{X: mouthCenter.X - 20*math.Cos(angle), Y: mouthCenter.Y - 20*math.Sin(angle)}

	scale := pose.Scale
	if scale == 0 {
		scale = 1
	}
	sin, cos := math.Sincos(pose.RollDeg * math.Pi / 180)
	for i := range lm {
		p := lm[i]
		lm[i] = Point{
			X: pose.CenterX + scale*(p.X*cos-p.Y*sin),
			Y: pose.CenterY + scale*(p.X*sin+p.Y*cos),
		}
	}
	return &lm
}

// placeEye lays out a 20px wide eye whose openness gives the requested EAR.
func placeEye(lm *Landmarks, start int, cx, ear float64) {
	h := 20 * ear / 2
	lm[start+0] = Point{X: cx - 10, Y: 0}
	lm[start+1] = Point{X: cx - 3, Y: -h}
	lm[start+2] = Point{X: cx + 3, Y: -h}
	lm[start+3] = Point{X: cx + 10, Y: 0}
	lm[start+4] = Point{X: cx + 3, Y: h}
	lm[start+5] = Point{X: cx - 3, Y: h}
}

// placeMouth lays out outer lips (48-59) and a 30px wide inner mouth (60-67).
func placeMouth(lm *Landmarks, mar float64) {
	const y = 40.0
	h := 30 * mar / 2
	for i := 0; i < 12; i++ {
		t := 2 * math.Pi * float64(i) / 12
		lm[MouthStart+i] = Point{X: -25 * math.Cos(t), Y: y - (h+6)*math.Sin(t)}
	}
	inner := [8]Point{
		{X: -15, Y: y},
		{X: -7, Y: y - h},
		{X: 0, Y: y - h},
		{X: 7, Y: y - h},
		{X: 15, Y: y},
		{X: 7, Y: y + h},
		{X: 0, Y: y + h},
		{X: -7, Y: y + h},
	}
	for i, p := range inner {
		lm[MouthStart+12+i] = p
	}
}
