package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SegmentTolerance is how far past the target a segment may grow before the
// next sentence is pushed into a new segment.
const SegmentTolerance = 1.5

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

const closers = "\"')]}\u201d\u2019\u00bb"

// sentence is a span of the source text plus its word count.
type sentence struct {
	start, end int
	words      int
}

// SplitSegments partitions text into ordered, sentence-aligned segments of
// roughly wordsPerSegment words. Segments are whitespace-normalized; joining
// them with single spaces reproduces the normalized input.
func SplitSegments(text string, wordsPerSegment int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if wordsPerSegment <= 0 {
		return []string{Normalize(text)}
	}

	sentences := splitSentences(text)
	limit := float64(wordsPerSegment) * SegmentTolerance

	var segments []string
	segStart, segEnd, count := -1, -1, 0

	flush := func() {
		if segStart >= 0 {
			if s := Normalize(text[segStart:segEnd]); s != "" {
				segments = append(segments, s)
			}
		}
		segStart, segEnd, count = -1, -1, 0
	}

	for _, s := range sentences {
		// Adding this sentence would blow past the tolerance: close first.
		if count > 0 && float64(count+s.words) > limit {
			flush()
		}
		if segStart < 0 {
			segStart = s.start
		}
		segEnd = s.end
		count += s.words

		if count >= wordsPerSegment {
			flush()
		}
	}
	flush()

	return segments
}

// splitSentences finds sentence spans. Text before the first terminator-led
// match (e.g. leading "...") is folded into the first sentence, and any
// unterminated tail becomes its own final sentence so nothing is dropped.
// A span only ends at whitespace or the end of text, after any closing
// quotes or brackets; a terminator inside a word ("3.5", "d!c") does not
// end a sentence.
func splitSentences(text string) []sentence {
	matches := sentenceRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []sentence{{start: 0, end: len(text), words: CountWords(text)}}
	}

	out := make([]sentence, 0, len(matches)+1)
	prev := 0
	for _, m := range matches {
		end, ok := boundary(text, m[1])
		if !ok || end <= prev {
			continue
		}
		out = append(out, sentence{start: prev, end: end})
		prev = end
	}
	if strings.TrimSpace(text[prev:]) != "" {
		out = append(out, sentence{start: prev, end: len(text)})
	}

	for i := range out {
		out[i].words = CountWords(text[out[i].start:out[i].end])
	}
	return out
}

// boundary skips closing punctuation after a terminator at i and reports
// whether a sentence may end there.
func boundary(text string, i int) (int, bool) {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !strings.ContainsRune(closers, r) {
			break
		}
		i += size
	}
	if i == len(text) {
		return i, true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return i, unicode.IsSpace(r)
}

// Sentences returns the normalized sentences of text in order.
func Sentences(text string) []string {
	spans := splitSentences(text)
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		if n := Normalize(text[s.start:s.end]); n != "" {
			out = append(out, n)
		}
	}
	return out
}
