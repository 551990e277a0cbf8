// internal/guide/guide.go
//
// Help texts served next to the game.
//
// Responsibilities:
//   - Load the how-to-play and FAQ markdown once, from files or embedded defaults.
//   - Expose the loaded texts and simple counts for diagnostics.
//
// Initialization behavior (Init):
//   - A non-empty path is read from disk; an empty path uses the embedded default.
//   - Texts are trimmed; an empty result is an error.
//   - Initialization is run once (sync.Once).

package guide

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

//go:embed how_to_play.md
var embeddedHowTo string

//go:embed faq.md
var embeddedFAQ string

var (
	initOnce   sync.Once
	howToPlay  string
	faq        string
	initialErr error
)

// Init loads both texts exactly once. Later calls return the first result.
func Init(howToPath, faqPath string) error {
	initOnce.Do(func() {
		var err error
		if howToPlay, err = load(howToPath, embeddedHowTo); err != nil {
			initialErr = fmt.Errorf("guide: how-to-play: %w", err)
			return
		}
		if faq, err = load(faqPath, embeddedFAQ); err != nil {
			initialErr = fmt.Errorf("guide: faq: %w", err)
		}
	})
	return initialErr
}

func load(path, fallback string) (string, error) {
	text := fallback
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		text = string(b)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty text")
	}
	return text, nil
}

// HowToPlay returns the instructions, or the embedded default before Init.
func HowToPlay() string {
	if howToPlay == "" {
		return strings.TrimSpace(embeddedHowTo)
	}
	return howToPlay
}

// FAQ returns the FAQ, or the embedded default before Init.
func FAQ() string {
	if faq == "" {
		return strings.TrimSpace(embeddedFAQ)
	}
	return faq
}

// Stats returns the number of FAQ questions and the length of the instructions in bytes.
func Stats() (questions int, howToBytes int) {
	for _, line := range strings.Split(FAQ(), "\n") {
		if strings.HasPrefix(line, "#") {
			questions++
		}
	}
	return questions, len(HowToPlay())
}
