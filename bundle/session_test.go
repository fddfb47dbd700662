package bundle_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"tangled.org/tokentrim.app/tokentrim/bundle"
)

type bufferedLogger struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *bufferedLogger) Printf(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(&l.buf, format+"\n", v...)
}

func (l *bufferedLogger) Println(v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(&l.buf, v...)
}

func (l *bufferedLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func TestSession(t *testing.T) {
	artifact := mustEncode(t, nil, bundle.ModeLosslessJSON, exampleFiles())

	t.Run("Transitions", func(t *testing.T) {
		logger := &bufferedLogger{}
		s := bundle.NewSession(nil, bundle.WithSessionLogger(logger))

		if s.State() != bundle.StateIdle {
			t.Fatalf("new session state %s, want idle", s.State())
		}

		result, err := s.Decode(context.Background(), artifact.Data, bundle.ModeAuto)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if s.State() != bundle.StateResults {
			t.Errorf("state %s, want results", s.State())
		}
		if s.Result() != result || s.Err() != nil {
			t.Error("session must hold the latest result")
		}

		_, err = s.Decode(context.Background(), []byte("not a bundle"), bundle.ModeAuto)
		if !errors.Is(err, bundle.ErrUnrecognizedFormat) {
			t.Fatalf("expected ErrUnrecognizedFormat, got %v", err)
		}
		if s.State() != bundle.StateError {
			t.Errorf("state %s, want error", s.State())
		}
		if s.Result() != nil {
			t.Error("failed decode must discard the previous result")
		}
		if !errors.Is(s.Err(), bundle.ErrUnrecognizedFormat) {
			t.Errorf("session error %v", s.Err())
		}

		s.Clear()
		if s.State() != bundle.StateIdle || s.Result() != nil || s.Err() != nil {
			t.Error("Clear must return to idle")
		}

		if !strings.Contains(logger.String(), "decode finished: 2 files") {
			t.Errorf("missing transition log, got:\n%s", logger.String())
		}
	})

	t.Run("ExportRecords", func(t *testing.T) {
		s := bundle.NewSession(nil)
		records := exampleFiles()
		s.SetResults(records)

		records[0].Filename = "mutated.py"
		got := s.Results()
		if len(got) != 2 || got[0].Filename != "a.py" {
			t.Errorf("Results must be isolated from caller slices, got %+v", got)
		}

		s.Clear()
		if len(s.Results()) != 0 {
			t.Error("Clear must discard export records")
		}
	})

	t.Run("ConcurrentUse", func(t *testing.T) {
		s := bundle.NewSession(bundle.NewDecoder(nil))

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				s.Decode(context.Background(), artifact.Data, bundle.ModeAuto)
			}()
			go func() {
				defer wg.Done()
				_ = s.State()
				_ = s.Result()
			}()
		}
		wg.Wait()

		if s.State() != bundle.StateResults {
			t.Errorf("final state %s, want results", s.State())
		}
		if s.Result() == nil || s.Result().TotalFiles != 2 {
			t.Error("final result missing")
		}
	})

	t.Run("StateNames", func(t *testing.T) {
		names := map[bundle.SessionState]string{
			bundle.StateIdle:     "idle",
			bundle.StateDecoding: "decoding",
			bundle.StateResults:  "results",
			bundle.StateError:    "error",
		}
		for state, want := range names {
			if state.String() != want {
				t.Errorf("%d.String() = %q, want %q", state, state.String(), want)
			}
		}
	})
}
