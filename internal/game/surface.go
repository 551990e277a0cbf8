package game

// Surface is everything the controller may touch on screen.
// Implementations must not block and must be safe to call while the
// controller holds its lock.
type Surface interface {
	SetDigit(text string)
	SetDigitColor(c Color)
	SetLives(n int)
	SetLevel(n int)
	SetResult(msg string)
	SetInput(value string)
	Input() string

	EnableStart(on bool)
	EnableCheck(on bool)
	EnableInput(on bool)
}
