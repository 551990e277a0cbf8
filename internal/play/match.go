// internal/play/match.go
//
// A Match binds one game.Controller to one view.Board and gives it an identity.
// Responsibilities:
//   - Pick the digit source for the requested mode (crypto-seeded or daily).
//   - Own the lifetime context handed to the controller's timed tasks.
//   - Track last activity so idle matches can be swept.

package play

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/robalobadob/digitspan/internal/daily"
	"github.com/robalobadob/digitspan/internal/game"
	"github.com/robalobadob/digitspan/internal/view"
)

// Mode selects how digits are generated.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeDaily  Mode = "daily"
)

var ErrUnknownMode = errors.New("play: unknown mode")

// ParseMode accepts "", "normal" and "daily" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeNormal:
		return ModeNormal, nil
	case ModeDaily:
		return ModeDaily, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Options configures a new Match.
type Options struct {
	Mode      Mode
	DailySalt string
	Clock     clockwork.Clock
	Logger    zerolog.Logger
}

// Match is one live game.
type Match struct {
	ID         string
	Mode       Mode
	Controller *game.Controller
	Board      *view.Board
	CreatedAt  time.Time

	ctx    context.Context
	cancel context.CancelFunc
	clock  clockwork.Clock

	mu           sync.Mutex
	lastActivity time.Time
	closeOnce    sync.Once
}

// New builds a match in the Idle phase.
func New(opts Options) (*Match, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Mode == "" {
		opts.Mode = ModeNormal
	}

	var src game.DigitSource
	switch opts.Mode {
	case ModeNormal:
		seed, err := newSeed()
		if err != nil {
			return nil, err
		}
		src = rand.New(rand.NewSource(seed))
	case ModeDaily:
		src = daily.Source(opts.Clock.Now(), opts.DailySalt)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, opts.Mode)
	}

	id := uuid.NewString()
	now := opts.Clock.Now()
	board := view.NewBoard()
	ctx, cancel := context.WithCancel(context.Background())
	m := &Match{
		ID:           id,
		Mode:         opts.Mode,
		Board:        board,
		CreatedAt:    now,
		ctx:          ctx,
		cancel:       cancel,
		clock:        opts.Clock,
		lastActivity: now,
	}
	m.Controller = game.New(board,
		game.WithClock(opts.Clock),
		game.WithSource(src),
		game.WithLogger(opts.Logger.With().Str("gameId", id).Str("mode", string(opts.Mode)).Logger()),
	)
	return m, nil
}

// Context is cancelled when the match is closed; timed tasks run under it.
func (m *Match) Context() context.Context { return m.ctx }

// Touch records player activity.
func (m *Match) Touch() {
	m.mu.Lock()
	m.lastActivity = m.clock.Now()
	m.mu.Unlock()
}

// LastActivity reports when the match was last touched.
func (m *Match) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivity
}

// Close stops timed tasks, waits for them and ends every view subscription.
func (m *Match) Close() {
	m.closeOnce.Do(func() {
		m.Controller.Close()
		m.cancel()
		m.Controller.Wait()
		m.Board.Close()
	})
}

// newSeed reads a PRNG seed from crypto/rand.
func newSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
