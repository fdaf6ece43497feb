package landmarks

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-vigil/pkg/debug"
	"github.com/teslashibe/go-vigil/pkg/geometry"
)

// RemoteConfig configures a websocket landmark feed.
type RemoteConfig struct {
	URL          string        `yaml:"url" json:"url"`                     // ws:// or wss:// endpoint streaming Frame JSON
	Token        string        `yaml:"token" json:"-"`                     // Optional bearer token
	FrameTimeout time.Duration `yaml:"frame_timeout" json:"frame_timeout"` // Next reports no face after this long without a frame
}

// DefaultRemoteConfig returns a local landmark service endpoint.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		URL:          "ws://127.0.0.1:8765/landmarks",
		FrameTimeout: 200 * time.Millisecond,
	}
}

type result struct {
	lm  *geometry.Landmarks
	err error
}

// RemoteSource receives landmark frames from an external detection service
// (for example a dlib landmark server) over a websocket.
type RemoteSource struct {
	config RemoteConfig
	ws     *websocket.Conn
	wsMu   sync.Mutex

	frames chan result
	done   chan struct{}

	mu      sync.Mutex
	readErr error
	closed  bool
}

// DialRemote connects to the landmark service and starts reading frames.
func DialRemote(ctx context.Context, cfg RemoteConfig) (*RemoteSource, error) {
	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	ws, _, err := dialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to landmark service: %w", err)
	}

	s := &RemoteSource{
		config: cfg,
		ws:     ws,
		frames: make(chan result, 1),
		done:   make(chan struct{}),
	}

	// Respond to pings so the service keeps the stream open
	ws.SetPingHandler(func(appData string) error {
		s.wsMu.Lock()
		defer s.wsMu.Unlock()
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	go s.readLoop()
	return s, nil
}

// readLoop keeps only the newest frame so a slow tick loop never lags behind.
func (s *RemoteSource) readLoop() {
	defer close(s.done)
	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if !s.closed {
				s.readErr = err
			}
			s.mu.Unlock()
			return
		}

		lm, err := Decode(data)
		if err != nil {
			debug.Log("⚠️  Landmark frame dropped: %v\n", err)
		}

		select {
		case <-s.frames:
		default:
		}
		s.frames <- result{lm: lm, err: err}
	}
}

// Next returns the newest frame, waiting up to FrameTimeout for one. A
// timeout is reported as a frame without a face.
func (s *RemoteSource) Next(ctx context.Context) (*geometry.Landmarks, error) {
	timeout := s.config.FrameTimeout
	if timeout <= 0 {
		timeout = DefaultRemoteConfig().FrameTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-s.frames:
		return r.lm, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.readErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrClosed, s.readErr)
		}
		return nil, ErrClosed
	case <-timer.C:
		return nil, nil
	}
}

// Close sends a close frame and tears down the connection.
func (s *RemoteSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.wsMu.Lock()
	s.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.wsMu.Unlock()
	return s.ws.Close()
}
