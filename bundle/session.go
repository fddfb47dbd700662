package bundle

import (
	"context"
	"sync"

	"tangled.org/tokentrim.app/tokentrim/internal/types"
)

// SessionState is the decode state shown by a presentation layer
type SessionState int

const (
	StateIdle SessionState = iota
	StateDecoding
	StateResults
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDecoding:
		return "decoding"
	case StateResults:
		return "results"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Session is the result store handed to a presentation layer. It keeps the
// file records ready for export and the outcome of the latest decode.
type Session struct {
	mu      sync.RWMutex
	decoder *Decoder
	logger  types.Logger

	records []FileRecord
	state   SessionState
	result  *DecodeResult
	err     error

	// generation increases on every Decode and Clear; a decode only
	// publishes its outcome while its generation is current
	generation uint64
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithSessionLogger logs state transitions
func WithSessionLogger(logger types.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates an idle session. A nil decoder uses default settings.
func NewSession(dec *Decoder, opts ...SessionOption) *Session {
	if dec == nil {
		dec = NewDecoder(nil)
	}
	s := &Session{
		decoder: dec,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetResults replaces the records offered for export
func (s *Session) SetResults(records []FileRecord) {
	cp := make([]FileRecord, len(records))
	copy(cp, records)

	s.mu.Lock()
	s.records = cp
	s.mu.Unlock()
}

// Results returns the records offered for export
func (s *Session) Results() []FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := make([]FileRecord, len(s.records))
	copy(cp, s.records)
	return cp
}

// Decode runs the decoder and stores its outcome. The previous result is
// replaced wholesale. When another Decode or Clear happened meanwhile, the
// outcome is returned but not stored.
func (s *Session) Decode(ctx context.Context, data []byte, mode Mode) (*DecodeResult, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.state = StateDecoding
	s.result = nil
	s.err = nil
	s.mu.Unlock()

	s.logf("decode started (%d bytes, mode %s)", len(data), mode)

	result, err := s.decoder.Decode(ctx, data, mode)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logf("decode superseded, discarding outcome")
		return result, err
	}

	if err != nil {
		s.state = StateError
		s.err = err
		s.logf("decode failed: %v", err)
		return nil, err
	}

	s.state = StateResults
	s.result = result
	s.logf("decode finished: %d files", result.TotalFiles)
	return result, nil
}

// Result returns the latest decode result, or nil
func (s *Session) Result() *DecodeResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Err returns the latest decode error, or nil
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// State returns the current decode state
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Clear discards records and decode outcome and returns to idle
func (s *Session) Clear() {
	s.mu.Lock()
	s.generation++
	s.records = nil
	s.result = nil
	s.err = nil
	s.state = StateIdle
	s.mu.Unlock()

	s.logf("session cleared")
}

func (s *Session) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
