// Package budget converts a word count into the number of generation units
// (scenes, modules) a text should produce.
package budget

import (
	"fmt"
	"math"

	"github.com/dgallion1/scenegest/internal/chunker"
)

// Policy maps a word count to a unit count.
type Policy interface {
	// Units returns the target unit count for words. Any positive word count
	// yields at least one unit.
	Units(words int) int
	// WordsPerUnit is the average number of source words one unit covers.
	WordsPerUnit() float64
	Validate() error
}

// DirectRatio allots one unit per WordsPerUnit words, rounding up.
type DirectRatio struct {
	Words float64
}

func (p DirectRatio) Units(words int) int {
	if words <= 0 {
		return 0
	}
	return max(1, int(math.Ceil(float64(words)/p.Words)))
}

func (p DirectRatio) WordsPerUnit() float64 { return p.Words }

func (p DirectRatio) Validate() error {
	if p.Words <= 0 || math.IsNaN(p.Words) || math.IsInf(p.Words, 0) {
		return fmt.Errorf("words per unit must be positive, got %v", p.Words)
	}
	return nil
}

// DurationMediated derives units from narration time: the text is read at
// WordsPerMinute (rounded up to whole minutes) and cut into fixed-length
// visual segments of SecondsPerUnit.
type DurationMediated struct {
	WordsPerMinute int
	SecondsPerUnit float64
}

// NewDurationMediated uses the standard narration rate.
func NewDurationMediated(secondsPerUnit float64) DurationMediated {
	return DurationMediated{WordsPerMinute: chunker.NarrationWordsPerMinute, SecondsPerUnit: secondsPerUnit}
}

func (p DurationMediated) Units(words int) int {
	if words <= 0 {
		return 0
	}
	minutes := math.Ceil(float64(words) / float64(p.wpm()))
	return max(1, int(math.Round(minutes*60/p.SecondsPerUnit)))
}

func (p DurationMediated) WordsPerUnit() float64 {
	return float64(p.wpm()) * p.SecondsPerUnit / 60
}

func (p DurationMediated) Validate() error {
	if p.SecondsPerUnit <= 0 || math.IsNaN(p.SecondsPerUnit) || math.IsInf(p.SecondsPerUnit, 0) {
		return fmt.Errorf("seconds per unit must be positive, got %v", p.SecondsPerUnit)
	}
	if p.WordsPerMinute < 0 {
		return fmt.Errorf("words per minute must not be negative, got %d", p.WordsPerMinute)
	}
	return nil
}

func (p DurationMediated) wpm() int {
	if p.WordsPerMinute <= 0 {
		return chunker.NarrationWordsPerMinute
	}
	return p.WordsPerMinute
}

// Estimate counts the words in text and applies p.
func Estimate(p Policy, text string) int {
	return p.Units(chunker.CountWords(text))
}
