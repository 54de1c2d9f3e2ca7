package chunker

import (
	"math"
	"strings"
)

// NarrationWordsPerMinute is the speaking rate assumed for voice-over.
const NarrationWordsPerMinute = 150

// CountWords counts whitespace-separated tokens. It is deliberately naive:
// no language-aware tokenization, so results are identical on every locale.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Normalize collapses every whitespace run to a single space and trims the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ReadingMinutes estimates narration length in whole minutes, rounded up.
func ReadingMinutes(words int) int {
	if words <= 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / NarrationWordsPerMinute))
}
