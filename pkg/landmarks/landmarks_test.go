package landmarks

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-vigil/pkg/geometry"
)

func neutral() *geometry.Landmarks {
	return geometry.Synthesize(geometry.NeutralPose())
}

func TestFrame_RoundTrip(t *testing.T) {
	lm := neutral()
	f := NewFrame(time.Now(), lm)
	if !f.Face || len(f.Points) != geometry.NumLandmarks {
		t.Fatalf("Expected a 68-point face frame, got face=%v points=%d", f.Face, len(f.Points))
	}
	got, err := f.Landmarks()
	if err != nil {
		t.Fatalf("Landmarks failed: %v", err)
	}
	if *got != *lm {
		t.Error("Expected landmarks to survive the round trip")
	}

	empty := NewFrame(time.Now(), nil)
	if got, err := empty.Landmarks(); got != nil || err != nil {
		t.Errorf("Expected no face, got %v, %v", got, err)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		face    bool
		wantErr bool
	}{
		{"no face", `{"face":false}`, false, false},
		{"wrong count", `{"face":true,"points":[[1,2],[3,4]]}`, false, true},
		{"not json", `{face`, false, true},
	}

	for _, tc := range tests {
		lm, err := Decode([]byte(tc.input))
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: expected error=%v, got %v", tc.name, tc.wantErr, err)
		}
		if tc.wantErr && !errors.Is(err, ErrBadFrame) {
			t.Errorf("%s: expected ErrBadFrame, got %v", tc.name, err)
		}
		if (lm != nil) != tc.face {
			t.Errorf("%s: expected face=%v, got %v", tc.name, tc.face, lm)
		}
	}
}

func TestLargest(t *testing.T) {
	if Largest(nil) != nil {
		t.Error("Expected nil for no detections")
	}

	dets := []Detection{
		{Box: image.Rect(0, 0, 50, 50), Confidence: 0.99},
		{Box: image.Rect(100, 100, 300, 300), Confidence: 0.70}, // driver
		{Box: image.Rect(400, 0, 440, 40), Confidence: 0.95},
	}
	best := Largest(dets)
	if best == nil || best.Box != dets[1].Box {
		t.Errorf("Expected the largest face, got %+v", best)
	}
}

func TestSquare(t *testing.T) {
	bounds := image.Rect(0, 0, 640, 480)

	sq := Square(image.Rect(100, 100, 200, 160), bounds)
	if sq.Dx() != sq.Dy() || sq.Dx() != 100 {
		t.Errorf("Expected a 100px square, got %v", sq)
	}

	clipped := Square(image.Rect(600, 0, 640, 100), bounds)
	if !clipped.In(bounds) {
		t.Errorf("Expected square clipped to frame, got %v", clipped)
	}
}

func TestDenormalize(t *testing.T) {
	data := make([]float32, 2*geometry.NumLandmarks)
	data[0], data[1] = 0.5, 0.25

	lm, err := denormalize(data, image.Rect(100, 200, 300, 400))
	if err != nil {
		t.Fatalf("denormalize failed: %v", err)
	}
	if lm[0].X != 200 || lm[0].Y != 250 {
		t.Errorf("Expected (200,250), got %+v", lm[0])
	}

	if _, err := denormalize(data[:10], image.Rect(0, 0, 10, 10)); !errors.Is(err, ErrBadFrame) {
		t.Errorf("Expected ErrBadFrame for short output, got %v", err)
	}
}

type stubSource struct {
	frames []*geometry.Landmarks
}

func (s *stubSource) Next(ctx context.Context) (*geometry.Landmarks, error) {
	if len(s.frames) == 0 {
		return nil, io.EOF
	}
	lm := s.frames[0]
	s.frames = s.frames[1:]
	return lm, nil
}

func (s *stubSource) Close() error { return nil }

func TestRecorder_ReplayRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&stubSource{frames: []*geometry.Landmarks{neutral(), nil, neutral()}}, &buf)

	ctx := context.Background()
	for {
		if _, err := rec.Next(ctx); err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("Unexpected error: %v", err)
			}
			break
		}
	}
	if rec.Err() != nil {
		t.Fatalf("Recording failed: %v", rec.Err())
	}

	replay := NewReplay(&buf)
	var faces []bool
	for {
		lm, err := replay.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Replay failed: %v", err)
		}
		faces = append(faces, lm != nil)
	}
	if len(faces) != 3 || !faces[0] || faces[1] || !faces[2] {
		t.Errorf("Expected [face, none, face], got %v", faces)
	}
}

func TestReplay_BadLine(t *testing.T) {
	replay := NewReplay(strings.NewReader("{\"face\":false}\n\nnot json\n"))
	if _, err := replay.NextFrame(); err != nil {
		t.Fatalf("Expected first frame to parse, got %v", err)
	}
	_, err := replay.NextFrame()
	if !errors.Is(err, ErrBadFrame) || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("Expected ErrBadFrame on line 3, got %v", err)
	}
}

var upgrader = websocket.Upgrader{}

func landmarkServer(t *testing.T, send func(ws *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer ws.Close()
		send(ws)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestRemoteSource_ReceivesFrames(t *testing.T) {
	sent := make(chan struct{})
	server := landmarkServer(t, func(ws *websocket.Conn) {
		ws.WriteJSON(NewFrame(time.Now(), neutral()))
		<-sent
	})
	defer server.Close()
	defer close(sent)

	cfg := DefaultRemoteConfig()
	cfg.URL = wsURL(server)
	cfg.FrameTimeout = 2 * time.Second

	src, err := DialRemote(context.Background(), cfg)
	if err != nil {
		t.Fatalf("DialRemote failed: %v", err)
	}
	defer src.Close()

	lm, err := src.Next(context.Background())
	if err != nil || lm == nil {
		t.Fatalf("Expected a face, got %v, %v", lm, err)
	}
	if lm[geometry.NoseTip] != neutral()[geometry.NoseTip] {
		t.Error("Expected landmarks to match what the server sent")
	}
}

func TestRemoteSource_TimeoutIsNoFace(t *testing.T) {
	hold := make(chan struct{})
	server := landmarkServer(t, func(ws *websocket.Conn) { <-hold })
	defer server.Close()
	defer close(hold)

	cfg := DefaultRemoteConfig()
	cfg.URL = wsURL(server)
	cfg.FrameTimeout = 20 * time.Millisecond

	src, err := DialRemote(context.Background(), cfg)
	if err != nil {
		t.Fatalf("DialRemote failed: %v", err)
	}
	defer src.Close()

	lm, err := src.Next(context.Background())
	if lm != nil || err != nil {
		t.Errorf("Expected (nil, nil) on timeout, got %v, %v", lm, err)
	}
}

func TestRemoteSource_ServerGone(t *testing.T) {
	server := landmarkServer(t, func(ws *websocket.Conn) {
		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
	})
	defer server.Close()

	cfg := DefaultRemoteConfig()
	cfg.URL = wsURL(server)
	cfg.FrameTimeout = 2 * time.Second

	src, err := DialRemote(context.Background(), cfg)
	if err != nil {
		t.Fatalf("DialRemote failed: %v", err)
	}
	defer src.Close()

	if _, err := src.Next(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestDialRemote_Unreachable(t *testing.T) {
	cfg := DefaultRemoteConfig()
	cfg.URL = "ws://127.0.0.1:1/landmarks"
	if _, err := DialRemote(context.Background(), cfg); err == nil {
		t.Error("Expected dial error")
	}
}
