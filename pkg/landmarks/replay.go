package landmarks

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/teslashibe/go-vigil/pkg/geometry"
)

// ReplaySource reads recorded frames, one JSON Frame per line.
// Next returns io.EOF once the recording is exhausted.
type ReplaySource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// NewReplay reads frames from r. If r is an io.Closer it is closed by Close.
func NewReplay(r io.Reader) *ReplaySource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	s := &ReplaySource{scanner: scanner}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// NextFrame returns the next recorded frame with its timestamp.
func (s *ReplaySource) NextFrame() (Frame, error) {
	for s.scanner.Scan() {
		s.line++
		data := s.scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			return Frame{}, fmt.Errorf("%w: line %d: %v", ErrBadFrame, s.line, err)
		}
		return f, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

// Next returns the next recorded frame's landmarks.
func (s *ReplaySource) Next(ctx context.Context) (*geometry.Landmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.NextFrame()
	if err != nil {
		return nil, err
	}
	return f.Landmarks()
}

// Close closes the underlying reader if it has one.
func (s *ReplaySource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// Recorder wraps a Source and writes every frame it yields as a JSON line,
// producing files ReplaySource can read back.
type Recorder struct {
	Source
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
	err error // first write failure
}

// NewRecorder tees src into w.
func NewRecorder(src Source, w io.Writer) *Recorder {
	return &Recorder{Source: src, enc: json.NewEncoder(w), now: time.Now}
}

// Next reads from the wrapped source and records the result. Source errors
// are passed through unrecorded. Recording stops at the first write failure;
// see Err.
func (r *Recorder) Next(ctx context.Context) (*geometry.Landmarks, error) {
	lm, err := r.Source.Next(ctx)
	if err != nil {
		return lm, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		if werr := r.enc.Encode(NewFrame(r.now(), lm)); werr != nil {
			r.err = fmt.Errorf("record frame: %w", werr)
		}
	}
	return lm, nil
}

// Err returns the write failure that stopped recording, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
