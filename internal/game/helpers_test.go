package game

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type digitFrame struct {
	at    time.Time
	digit string
}

// surfaceState is the latest value of every region plus a timeline of digit writes.
type surfaceState struct {
	digit   string
	color   Color
	lives   int
	level   int
	result  string
	input   string
	start   bool
	check   bool
	inputOn bool
	frames  []digitFrame
}

type recordingSurface struct {
	mu    sync.Mutex
	clock clockwork.Clock
	state surfaceState
}

func (s *recordingSurface) SetDigit(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.digit = text
	s.state.frames = append(s.state.frames, digitFrame{at: s.clock.Now(), digit: text})
}

func (s *recordingSurface) SetDigitColor(c Color) { s.mu.Lock(); s.state.color = c; s.mu.Unlock() }
func (s *recordingSurface) SetLives(n int)        { s.mu.Lock(); s.state.lives = n; s.mu.Unlock() }
func (s *recordingSurface) SetLevel(n int)        { s.mu.Lock(); s.state.level = n; s.mu.Unlock() }
func (s *recordingSurface) SetResult(msg string)  { s.mu.Lock(); s.state.result = msg; s.mu.Unlock() }
func (s *recordingSurface) SetInput(v string)     { s.mu.Lock(); s.state.input = v; s.mu.Unlock() }
func (s *recordingSurface) EnableStart(on bool)   { s.mu.Lock(); s.state.start = on; s.mu.Unlock() }
func (s *recordingSurface) EnableCheck(on bool)   { s.mu.Lock(); s.state.check = on; s.mu.Unlock() }
func (s *recordingSurface) EnableInput(on bool)   { s.mu.Lock(); s.state.inputOn = on; s.mu.Unlock() }

func (s *recordingSurface) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.input
}

func (s *recordingSurface) snapshot() surfaceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.frames = append([]digitFrame(nil), s.state.frames...)
	return out
}

func (s *recordingSurface) resetTimeline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.frames = nil
}

// scriptSource replays fixed digits, then zeros.
type scriptSource struct {
	mu     sync.Mutex
	digits []int
}

func (s *scriptSource) Intn(int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.digits) == 0 {
		return 0
	}
	d := s.digits[0]
	s.digits = s.digits[1:]
	return d
}

type clockworkFake = *clockwork.FakeClock

type constSource int

func (c constSource) Intn(int) int { return int(c) }

func newTestController(t *testing.T, src DigitSource) (*Controller, *recordingSurface, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	surface := &recordingSurface{clock: fc}
	c := New(surface, WithClock(fc), WithSource(src))
	t.Cleanup(c.Wait)
	return c, surface, fc
}

// drive advances the fake clock one step at a time until done is closed.
func drive(t *testing.T, fc *clockwork.FakeClock, done <-chan struct{}) {
	t.Helper()
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		blocked := make(chan error, 1)
		go func() { blocked <- fc.BlockUntilContext(ctx, 1) }()

		select {
		case <-done:
			cancel()
			return
		case err := <-blocked:
			cancel()
			if err != nil {
				t.Fatalf("timed task stalled: %v", err)
			}
			fc.Advance(ShowDelay)
		}
	}
}

func present(t *testing.T, c *Controller, fc *clockwork.FakeClock) {
	t.Helper()
	done, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drive(t, fc, done)
}

func answer(t *testing.T, c *Controller, fc *clockwork.FakeClock, typed string) Outcome {
	t.Helper()
	if _, err := c.Input(typed); err != nil {
		t.Fatalf("Input(%q): %v", typed, err)
	}
	outcome, done, err := c.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	drive(t, fc, done)
	return outcome
}

func repeatDigit(d string, n int) string { return strings.Repeat(d, n) }
