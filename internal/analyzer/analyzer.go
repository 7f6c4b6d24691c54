package analyzer

import (
	"regexp"
	"sort"
)

const (
	defaultMinWordLength  = 2
	defaultMaxWordLength  = 50
	defaultRareWordThresh = 1
	defaultRareWordsCap   = 100
	defaultTopWordsLimit  = 50
)

var wordPattern = regexp.MustCompile(`[A-Za-z]+`)

// Analyzer turns a document's cleaned text into word-frequency statistics.
// Its limits mirror the fixed constants of the frequency analyzer it was
// ported from; they are exposed as fields so a caller can override them
// without forking the type.
type Analyzer struct {
	MinWordLength  int
	MaxWordLength  int
	RareWordThresh int
	RareWordsCap   int
	TopWordsLimit  int
}

// NewAnalyzer constructs an Analyzer with the standard limits.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		MinWordLength:  defaultMinWordLength,
		MaxWordLength:  defaultMaxWordLength,
		RareWordThresh: defaultRareWordThresh,
		RareWordsCap:   defaultRareWordsCap,
		TopWordsLimit:  defaultTopWordsLimit,
	}
}

// Analyze tokenizes text and computes its word-frequency statistics. When
// includeStopwords is false (the common case), stopwords are excluded from
// every statistic below, matching the original analyzer's default.
func (a *Analyzer) Analyze(text string, includeStopwords bool) WordAnalysis {
	words := a.extractWords(text, includeStopwords)
	if len(words) == 0 {
		return WordAnalysis{
			WordFrequencies: map[string]int{},
			LengthHistogram: map[int]int{},
		}
	}

	frequencies := make(map[string]int)
	lengthSum := 0
	histogram := make(map[int]int)
	stopwordCount := 0

	for _, w := range words {
		frequencies[w]++
		lengthSum += len(w)
		histogram[len(w)]++
		if isStopword(w) {
			stopwordCount++
		}
	}

	return WordAnalysis{
		WordFrequencies: frequencies,
		TotalWords:      len(words),
		UniqueWords:     len(frequencies),
		AverageWordLen:  float64(lengthSum) / float64(len(words)),
		TopWords:        topWords(frequencies, a.TopWordsLimit),
		LengthHistogram: histogram,
		StopwordCount:   stopwordCount,
		RareWords:       rareWords(frequencies, a.RareWordThresh, a.RareWordsCap),
	}
}

// extractWords lowercases text, extracts alphabetic tokens, and filters
// them by length and (unless includeStopwords) stopword membership.
func (a *Analyzer) extractWords(text string, includeStopwords bool) []string {
	matches := wordPattern.FindAllString(text, -1)
	words := make([]string, 0, len(matches))
	for _, raw := range matches {
		w := toLowerASCII(raw)
		if len(w) < a.MinWordLength || len(w) > a.MaxWordLength {
			continue
		}
		if !includeStopwords && isStopword(w) {
			continue
		}
		words = append(words, w)
	}
	return words
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// topWords returns the limit most frequent words, ties broken
// alphabetically so output is deterministic.
func topWords(frequencies map[string]int, limit int) []WordCount {
	ranked := make([]WordCount, 0, len(frequencies))
	for word, count := range frequencies {
		ranked = append(ranked, WordCount{Word: word, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Word < ranked[j].Word
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// rareWords returns words whose frequency is at or below threshold, capped
// at maxCount entries, in alphabetical order for deterministic output.
func rareWords(frequencies map[string]int, threshold, maxCount int) []string {
	rare := make([]string, 0)
	for word, count := range frequencies {
		if count <= threshold {
			rare = append(rare, word)
		}
	}
	sort.Strings(rare)
	if maxCount > 0 && len(rare) > maxCount {
		rare = rare[:maxCount]
	}
	return rare
}
