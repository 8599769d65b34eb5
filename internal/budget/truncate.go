package budget

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// TruncatedMarker follows the whole lines kept from a truncated block.
	TruncatedMarker = "\n...\n(truncated to fit budget)"
	// CutMarker follows a single line cut mid-way.
	CutMarker = "...\n(truncated to fit budget)"
	// OmittedMarker replaces a block of which nothing fits.
	OmittedMarker = "(omitted to fit budget)"
)

// DefaultCharsPerUnit approximates one model token as four characters.
const DefaultCharsPerUnit = 4.0

// Estimator converts text to abstract size units.
type Estimator struct {
	CharsPerUnit float64
	// WideCharsPerUnit applies to text containing CJK characters, which pack
	// fewer characters per token. Zero disables the distinction.
	WideCharsPerUnit float64
}

// DefaultEstimator returns the four-characters-per-unit estimator.
func DefaultEstimator() Estimator {
	return Estimator{CharsPerUnit: DefaultCharsPerUnit, WideCharsPerUnit: 1.5}
}

func (e Estimator) ratio(text string) float64 {
	if e.WideCharsPerUnit > 0 && hasWide(text) {
		return e.WideCharsPerUnit
	}
	if e.CharsPerUnit > 0 {
		return e.CharsPerUnit
	}
	return DefaultCharsPerUnit
}

// Units estimates the size of text.
func (e Estimator) Units(text string) float64 {
	if text == "" {
		return 0
	}
	return float64(utf8.RuneCountInString(text)) / e.ratio(text)
}

func hasWide(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			return true
		}
	}
	return false
}

// Truncate fits text into budget. Text that fits is returned unchanged.
// Otherwise whole lines are kept while they fit and TruncatedMarker is
// appended. When not even the first line fits it is cut at the character
// count implied by budget and followed by CutMarker. When nothing can be
// kept the result is OmittedMarker.
func Truncate(text string, budget float64, e Estimator) string {
	if e.Units(text) <= budget {
		return text
	}

	lines := strings.Split(text, "\n")
	var (
		kept []string
		used float64
	)
	for _, line := range lines {
		size := e.Units(line + "\n")
		if used+size <= budget {
			kept = append(kept, line)
			used += size
			continue
		}
		if len(kept) == 0 {
			chars := int(math.Floor(math.Max(budget, 0) * e.ratio(line)))
			if chars <= 0 {
				return OmittedMarker
			}
			return string([]rune(line)[:min(chars, utf8.RuneCountInString(line))]) + CutMarker
		}
		break
	}
	return strings.Join(kept, "\n") + TruncatedMarker
}
