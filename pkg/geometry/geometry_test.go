package geometry

import (
	"math"
	"testing"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestEyeAspectRatio_Formula(t *testing.T) {
	// Width 20, both verticals 6 -> (6+6)/(2*20) = 0.3
	eye := [6]Point{
		{X: 0, Y: 0},
		{X: 7, Y: -3},
		{X: 13, Y: -3},
		{X: 20, Y: 0},
		{X: 13, Y: 3},
		{X: 7, Y: 3},
	}
	if got := EyeAspectRatio(eye); !approx(got, 0.3, 1e-9) {
		t.Errorf("Expected EAR=0.3, got %v", got)
	}
}

func TestEyeAspectRatio_AlwaysClamped(t *testing.T) {
	tests := []struct {
		name string
		open float64 // vertical opening for a 20px wide eye
		want float64
	}{
		{"shut", 0, EARMin},
		{"narrow", 1, EARMin},
		{"normal", 6, 0.3},
		{"wide", 12, EARMax},
		{"absurd", 400, EARMax},
	}

	for _, tc := range tests {
		h := tc.open / 2
		eye := [6]Point{{0, 0}, {7, -h}, {13, -h}, {20, 0}, {13, h}, {7, h}}
		got := EyeAspectRatio(eye)
		if got < EARMin || got > EARMax {
			t.Errorf("%s: EAR %v outside [%v, %v]", tc.name, got, EARMin, EARMax)
		}
		if !approx(got, tc.want, 1e-9) {
			t.Errorf("%s: Expected EAR=%v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestEyeAspectRatio_DegenerateWidth(t *testing.T) {
	var eye [6]Point // all points coincide
	if got := EyeAspectRatio(eye); got != EARMin {
		t.Errorf("Expected degenerate eye to clamp to %v, got %v", EARMin, got)
	}
}

func TestMouthAspectRatio(t *testing.T) {
	lm := Synthesize(FacePose{EAR: 0.3, MAR: 0.8, Scale: 1})
	if got := MouthAspectRatio(lm.Mouth()); !approx(got, 0.8, 1e-9) {
		t.Errorf("Expected MAR=0.8, got %v", got)
	}

	var zero [20]Point
	if got := MouthAspectRatio(zero); got != 0 {
		t.Errorf("Expected degenerate mouth MAR=0, got %v", got)
	}
}

func TestMouthAspectRatio_Unclamped(t *testing.T) {
	lm := Synthesize(FacePose{EAR: 0.3, MAR: 2.5, Scale: 1})
	if got := MouthAspectRatio(lm.Mouth()); !approx(got, 2.5, 1e-9) {
		t.Errorf("Expected MAR=2.5 to pass through unclamped, got %v", got)
	}
}

func TestHeadPose_Upright(t *testing.T) {
	lm := Synthesize(NeutralPose())
	roll, pitch := HeadPose(lm)
	if !approx(roll, 0, 1e-6) || !approx(pitch, 0, 1e-6) {
		t.Errorf("Expected upright face to read 0/0, got roll=%v pitch=%v", roll, pitch)
	}
}

func TestHeadPose_Roll(t *testing.T) {
	for _, deg := range []float64{-30, -10, 10, 25} {
		pose := NeutralPose()
		pose.RollDeg = deg
		roll, _ := HeadPose(Synthesize(pose))
		if !approx(roll, math.Abs(deg), 1e-6) {
			t.Errorf("Roll %v: expected %v, got %v", deg, math.Abs(deg), roll)
		}
	}
}

func TestHeadPose_Pitch(t *testing.T) {
	for _, deg := range []float64{-20, 18, 40} {
		pose := NeutralPose()
		pose.PitchDeg = deg
		roll, pitch := HeadPose(Synthesize(pose))
		if !approx(pitch, math.Abs(deg), 1e-6) {
			t.Errorf("Pitch %v: expected %v, got %v", deg, math.Abs(deg), pitch)
		}
		if !approx(roll, 0, 1e-6) {
			t.Errorf("Pitch %v: expected roll 0, got %v", deg, roll)
		}
	}
}

func TestHeadPose_Degenerate(t *testing.T) {
	var lm Landmarks
	roll, pitch := HeadPose(&lm)
	if roll != 0 || pitch != 0 {
		t.Errorf("Expected zero landmarks to give 0/0, got roll=%v pitch=%v", roll, pitch)
	}
}

func TestAnalyze(t *testing.T) {
	pose := NeutralPose()
	pose.EAR = 0.27
	pose.MAR = 0.6
	s := Analyze(Synthesize(pose))

	if !approx(s.EAR, 0.27, 1e-9) {
		t.Errorf("Expected EAR=0.27, got %v", s.EAR)
	}
	if !approx(s.MAR, 0.6, 1e-9) {
		t.Errorf("Expected MAR=0.6, got %v", s.MAR)
	}
	if !approx(s.FaceRatio, 1.5, 1e-6) {
		t.Errorf("Expected FaceRatio=1.5, got %v", s.FaceRatio)
	}
}

func TestAnalyze_ScaleInvariant(t *testing.T) {
	pose := NeutralPose()
	pose.EAR = 0.25
	small := Analyze(Synthesize(pose))
	pose.Scale = 3
	large := Analyze(Synthesize(pose))

	if !approx(small.EAR, large.EAR, 1e-9) || !approx(small.MAR, large.MAR, 1e-9) {
		t.Errorf("Ratios should not depend on face size: %+v vs %+v", small, large)
	}
}

func TestFromSlice(t *testing.T) {
	if _, ok := FromSlice(make([]Point, 10)); ok {
		t.Error("Expected FromSlice to reject 10 points")
	}
	pts := make([]Point, NumLandmarks)
	pts[NoseTip] = Point{X: 1, Y: 2}
	lm, ok := FromSlice(pts)
	if !ok {
		t.Fatal("Expected FromSlice to accept 68 points")
	}
	if lm[NoseTip] != (Point{X: 1, Y: 2}) {
		t.Errorf("Expected nose tip preserved, got %+v", lm[NoseTip])
	}
}
