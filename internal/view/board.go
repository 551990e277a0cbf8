// internal/view/board.go
//
// Server-side presentation surface for one game.
// Board implements game.Surface by keeping a View (what a page would show) and
// broadcasting a copy of it to subscribers after every change.
//
// Notes:
//   - Writes never block: when a subscriber's buffer is full the oldest pending frame is
//     dropped to make room, so the newest View is always delivered.
//   - Version increases by one per change, so clients can drop stale frames.
package view

import (
	"sync"

	"github.com/robalobadob/digitspan/internal/game"
)

const subscriberBuffer = 16

// View is the full visible state of a game page.
type View struct {
	Version      uint64     `json:"version"`
	Digit        string     `json:"digit"`
	DigitColor   game.Color `json:"digitColor,omitempty"`
	Lives        int        `json:"lives"`
	Level        int        `json:"level"`
	Result       string     `json:"result"`
	Input        string     `json:"input"`
	StartEnabled bool       `json:"startEnabled"`
	CheckEnabled bool       `json:"checkEnabled"`
	InputEnabled bool       `json:"inputEnabled"`
}

// Board is a concurrency-safe game.Surface.
type Board struct {
	mu     sync.Mutex
	view   View
	subs   map[int]chan View
	nextID int
	closed bool
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{subs: make(map[int]chan View)}
}

var _ game.Surface = (*Board)(nil)

func (b *Board) SetDigit(text string)       { b.update(func(v *View) { v.Digit = text }) }
func (b *Board) SetDigitColor(c game.Color) { b.update(func(v *View) { v.DigitColor = c }) }
func (b *Board) SetLives(n int)             { b.update(func(v *View) { v.Lives = n }) }
func (b *Board) SetLevel(n int)             { b.update(func(v *View) { v.Level = n }) }
func (b *Board) SetResult(msg string)       { b.update(func(v *View) { v.Result = msg }) }
func (b *Board) SetInput(value string)      { b.update(func(v *View) { v.Input = value }) }
func (b *Board) EnableStart(on bool)        { b.update(func(v *View) { v.StartEnabled = on }) }
func (b *Board) EnableCheck(on bool)        { b.update(func(v *View) { v.CheckEnabled = on }) }
func (b *Board) EnableInput(on bool)        { b.update(func(v *View) { v.InputEnabled = on }) }

// Input returns the current value of the input field.
func (b *Board) Input() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view.Input
}

// Current returns a copy of the view.
func (b *Board) Current() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

// Subscribe returns a channel that first yields the current view and then every change.
// The returned func unsubscribes and closes the channel.
func (b *Board) Subscribe() (<-chan View, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan View, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	ch <- b.view

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Close ends every subscription. Later changes are still applied but not broadcast.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *Board) update(fn func(*View)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.view)
	b.view.Version++
	for _, ch := range b.subs {
		select {
		case ch <- b.view:
		default:
			// full: drop the oldest frame; only update sends, and it holds mu
			select {
			case <-ch:
			default:
			}
			ch <- b.view
		}
	}
}
