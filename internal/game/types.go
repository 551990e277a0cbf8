// internal/game/types.go
//
// Core type definitions for the digit span game.
// Defines:
//   - Phase: where the controller is in the Idle → Presenting → AwaitingInput → Checking loop.
//   - Color: the tint applied to the digit display.
//   - Outcome: result of a single check.
//   - Session: mutable level/lives state owned by one Controller.
//   - Snapshot: read-only copy handed to callers.

package game

import "time"

const (
	InitialLevel = 2
	InitialLives = 3
	MaxLevel     = 10

	ShowDelay    = 500 * time.Millisecond
	BlankDelay   = 500 * time.Millisecond
	SuccessHold  = 1000 * time.Millisecond
	NoticeHold   = 2000 * time.Millisecond
	SuccessGlyph = "✓"
	FailureGlyph = "X"

	RetryMessage = "Incorrect digit sequence. Try again!"
)

// Phase is the controller's explicit state.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhasePresenting    Phase = "presenting"
	PhaseAwaitingInput Phase = "awaiting_input"
	PhaseChecking      Phase = "checking"
	PhaseComplete      Phase = "complete" // max level reached; only Restart leaves it
)

// Color tints the digit display.
type Color string

const (
	ColorDefault Color = ""
	ColorSuccess Color = "green"
	ColorFailure Color = "red"
)

// Outcome is the result of comparing the user's digits with the target.
type Outcome string

const (
	OutcomeMatch    Outcome = "match"
	OutcomeRetry    Outcome = "retry"
	OutcomeGameOver Outcome = "game_over"
)

// Session holds the state of a single player's run.
type Session struct {
	Level          int   // difficulty tier, starts at 2
	SequenceLength int   // always equal to Level
	Lives          int   // 0..3
	Target         []int // digits flashed this attempt
	User           []int // digits entered this attempt
}

func newSession() Session {
	return Session{
		Level:          InitialLevel,
		SequenceLength: InitialLevel,
		Lives:          InitialLives,
	}
}

// Snapshot is a point-in-time copy of controller state.
type Snapshot struct {
	Phase           Phase  `json:"phase"`
	Level           int    `json:"level"`
	SequenceLength  int    `json:"sequenceLength"`
	Lives           int    `json:"lives"`
	Round           int    `json:"round"`           // level - 1
	RoundsCompleted int    `json:"roundsCompleted"` // level - 2
	Input           string `json:"input"`
	GameOver        bool   `json:"gameOver"`
	Complete        bool   `json:"complete"`
	Target          []int  `json:"-"`
	User            []int  `json:"-"`
}
