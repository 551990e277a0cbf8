// internal/game/controller.go
//
// Turn-based controller for a single digit span run.
// Responsibilities:
//   - Own the Session (level, lives, target and user sequences) and the current Phase.
//   - Present the target one digit at a time on a Surface using timed suspension points.
//   - Sanitize input, compare it with the target and move to the next level, a retry or game over.
//
// Notes:
//   - Every mutation happens under mu. The lock is released only while a timed task sleeps,
//     and the phase alone decides which calls are accepted in the meantime.
//   - Start and Check return a channel that is closed when their timed tail has finished.
//   - Calls in the wrong phase change nothing and return one of the sentinel errors below.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

var (
	ErrNotIdle          = errors.New("game: not idle")
	ErrNotAwaitingInput = errors.New("game: not awaiting input")
	ErrIncompleteInput  = errors.New("game: incomplete input")
	ErrInputDisabled    = errors.New("game: input disabled")
	ErrBusy             = errors.New("game: busy")
	ErrClosed           = errors.New("game: closed")
)

// Controller drives one game on one Surface.
type Controller struct {
	mu      sync.Mutex
	surface Surface
	clock   clockwork.Clock
	src     DigitSource
	log     zerolog.Logger

	phase   Phase
	session Session
	notice  uint64 // bumped whenever the result region is rewritten
	closed  bool   // set by Close; no task is spawned afterwards
	tasks   sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the real clock; tests pass a clockwork.FakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithSource sets the digit generator. It is only used under the controller lock.
func WithSource(src DigitSource) Option {
	return func(c *Controller) { c.src = src }
}

// WithLogger attaches a logger for phase transitions.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New builds a controller in the Idle phase and paints the initial surface.
func New(s Surface, opts ...Option) *Controller {
	c := &Controller{
		surface: s,
		clock:   clockwork.NewRealClock(),
		log:     zerolog.Nop(),
		phase:   PhaseIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.src == nil {
		c.src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
	return c
}

// Start generates a new target and flashes it. Valid only in Idle.
// After a game over (no lives left) the session is restored to defaults first.
func (c *Controller) Start(ctx context.Context) (<-chan struct{}, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return nil, ErrNotIdle
	}
	if c.session.Lives == 0 {
		c.resetLocked()
	}
	c.phase = PhasePresenting
	c.surface.EnableStart(false)
	c.surface.EnableInput(false)
	c.surface.EnableCheck(false)
	c.surface.SetDigitColor(ColorDefault)
	c.surface.SetResult("")
	c.notice++

	c.session.Target = generate(c.src, c.session.SequenceLength)
	c.session.User = nil
	target := append([]int(nil), c.session.Target...)
	c.log.Debug().Int("level", c.session.Level).Msg("presenting sequence")

	done := make(chan struct{})
	c.spawn(done, func() { c.present(ctx, target) })
	c.mu.Unlock()
	return done, nil
}

// present shows each digit for ShowDelay, then a blank for BlankDelay.
func (c *Controller) present(ctx context.Context, target []int) {
	for _, d := range target {
		c.mu.Lock()
		c.surface.SetDigit(strconv.Itoa(d))
		c.mu.Unlock()
		if err := c.sleep(ctx, ShowDelay); err != nil {
			c.log.Debug().Err(err).Msg("presentation interrupted")
			return
		}

		c.mu.Lock()
		c.surface.SetDigit("")
		c.mu.Unlock()
		if err := c.sleep(ctx, BlankDelay); err != nil {
			c.log.Debug().Err(err).Msg("presentation interrupted")
			return
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.surface.SetDigit("")
	c.surface.SetInput("")
	c.surface.EnableInput(true)
	// Check opens as soon as the input holds a full sequence.
	c.surface.EnableCheck(false)
	c.phase = PhaseAwaitingInput
	c.log.Debug().Msg("awaiting input")
}

// Input sanitizes raw, writes it back to the surface and toggles the check control.
// It returns the retained value.
func (c *Controller) Input(raw string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseAwaitingInput {
		return c.surface.Input(), ErrInputDisabled
	}
	value := Sanitize(raw, c.session.SequenceLength)
	c.surface.SetInput(value)
	c.surface.EnableCheck(len(value) == c.session.SequenceLength)
	return value, nil
}

// Check compares the entered digits with the target.
// The returned channel closes after the success hold or the retry notice has elapsed.
func (c *Controller) Check(ctx context.Context) (Outcome, <-chan struct{}, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", nil, ErrClosed
	}
	if c.phase != PhaseAwaitingInput {
		c.mu.Unlock()
		return "", nil, ErrNotAwaitingInput
	}
	value := Sanitize(c.surface.Input(), c.session.SequenceLength)
	if len(value) != c.session.SequenceLength {
		c.mu.Unlock()
		return "", nil, ErrIncompleteInput
	}

	c.surface.EnableCheck(false)
	c.phase = PhaseChecking
	c.session.User = parseDigits(value)
	c.surface.SetInput("")
	done := make(chan struct{})

	switch {
	case Equal(c.session.User, c.session.Target):
		c.surface.SetDigit(SuccessGlyph)
		c.surface.SetDigitColor(ColorSuccess)
		c.surface.EnableInput(false)
		c.log.Debug().Int("level", c.session.Level).Msg("sequence matched")

		c.spawn(done, func() {
			if err := c.sleep(ctx, SuccessHold); err != nil {
				c.log.Debug().Err(err).Msg("success hold interrupted")
				return
			}
			c.mu.Lock()
			c.advanceLocked()
			c.mu.Unlock()
		})
		c.mu.Unlock()
		return OutcomeMatch, done, nil

	case c.session.Lives > 1:
		c.session.Lives--
		c.session.User = nil
		c.surface.SetLives(c.session.Lives)
		c.surface.SetResult(RetryMessage)
		c.notice++
		ticket := c.notice
		c.phase = PhaseAwaitingInput
		c.log.Debug().Int("lives", c.session.Lives).Msg("sequence mismatched")

		c.spawn(done, func() {
			if err := c.sleep(ctx, NoticeHold); err != nil {
				return
			}
			c.mu.Lock()
			if c.notice == ticket {
				c.surface.SetResult("")
			}
			c.mu.Unlock()
		})
		c.mu.Unlock()
		return OutcomeRetry, done, nil

	default:
		level := c.session.Level
		c.surface.SetDigit(FailureGlyph)
		c.surface.SetDigitColor(ColorFailure)
		c.session.Lives = 0
		c.session.Target, c.session.User = nil, nil
		c.surface.SetLives(0)
		c.surface.SetResult(fmt.Sprintf(
			"You completed round %d and a digit span of %d. To start over, press play.", level-2, level-1))
		c.notice++
		c.surface.EnableInput(false)
		c.surface.EnableStart(true)
		c.phase = PhaseIdle
		c.log.Info().Int("level", level).Msg("game over")
		c.mu.Unlock()

		close(done)
		return OutcomeGameOver, done, nil
	}
}

// advanceLocked runs after a successful match has been displayed.
func (c *Controller) advanceLocked() {
	if c.session.Level == MaxLevel {
		c.surface.SetLevel(MaxLevel)
		c.surface.SetResult(fmt.Sprintf("Congrats! You reached the maximum span of %d digits!!", MaxLevel))
		c.notice++
		c.phase = PhaseComplete
		c.log.Info().Msg("maximum span reached")
		return
	}
	c.session.Target, c.session.User = nil, nil
	c.session.Level++
	c.session.SequenceLength++
	c.surface.SetLevel(c.session.Level - 1)
	c.surface.EnableStart(true)
	c.phase = PhaseIdle
}

// Restart restores the defaults without starting a presentation.
// It is refused while a presentation or a success hold is running.
func (c *Controller) Restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case PhasePresenting, PhaseChecking:
		return ErrBusy
	}
	c.resetLocked()
	return nil
}

func (c *Controller) resetLocked() {
	c.session = newSession()
	c.phase = PhaseIdle
	c.notice++
	c.surface.SetDigit("")
	c.surface.SetDigitColor(ColorDefault)
	c.surface.SetLives(c.session.Lives)
	c.surface.SetLevel(c.session.Level - 1)
	c.surface.SetResult("")
	c.surface.SetInput("")
	c.surface.EnableInput(false)
	c.surface.EnableCheck(false)
	c.surface.EnableStart(true)
}

// Phase reports the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Snapshot copies the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	return Snapshot{
		Phase:           c.phase,
		Level:           s.Level,
		SequenceLength:  s.SequenceLength,
		Lives:           s.Lives,
		Round:           s.Level - 1,
		RoundsCompleted: s.Level - 2,
		Input:           c.surface.Input(),
		GameOver:        c.phase == PhaseIdle && s.Lives == 0,
		Complete:        c.phase == PhaseComplete,
		Target:          append([]int(nil), s.Target...),
		User:            append([]int(nil), s.User...),
	}
}

// Wait blocks until every timed task has returned.
func (c *Controller) Wait() { c.tasks.Wait() }

// Close makes Start and Check refuse with ErrClosed, so Wait can no longer race a new task.
// Running tasks are stopped through their context, not by Close.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// spawn runs fn as a tracked task. Callers hold mu, so Add never races Close followed by Wait.
func (c *Controller) spawn(done chan struct{}, fn func()) {
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		defer close(done)
		fn()
	}()
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	t := c.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
