package analyzer

import "math"

/*
 TF-IDF, keyword scoring, and pairwise similarity are analyzer-supplied
 extras with no equivalent in the frequency analyzer this package was
 ported from; their formulas come directly from the crawler's word-
 analysis contract.
*/

// TFIDF scores every word in frequencies against a corpus of documents
// (each document represented as its own set of distinct words), using
// the standard term-frequency / inverse-document-frequency product.
func TFIDF(frequencies map[string]int, totalWords int, corpus []map[string]struct{}) []TermDocumentStats {
	if totalWords == 0 || len(corpus) == 0 {
		return nil
	}

	stats := make([]TermDocumentStats, 0, len(frequencies))
	for word, count := range frequencies {
		tf := float64(count) / float64(totalWords)

		docsContaining := 0
		for _, doc := range corpus {
			if _, ok := doc[word]; ok {
				docsContaining++
			}
		}
		if docsContaining == 0 {
			continue
		}
		idf := math.Log(float64(len(corpus)) / float64(docsContaining))

		stats = append(stats, TermDocumentStats{
			Term:  word,
			TF:    tf,
			IDF:   idf,
			TFIDF: tf * idf,
		})
	}
	return stats
}

// KeywordScore ranks word as a keyword candidate for a document of
// totalWords words, combining its relative frequency with a bonus for
// longer words and a penalty for words so common they carry little
// distinguishing signal: freq/N * (1 + len/10 + 1/log(freq+1)).
func KeywordScore(word string, freq, totalWords int) float64 {
	if totalWords == 0 || freq <= 0 {
		return 0
	}
	relFreq := float64(freq) / float64(totalWords)
	lengthBonus := float64(len(word)) / 10
	rarityBonus := 1 / math.Log(float64(freq)+1+1e-9)
	return relFreq * (1 + lengthBonus + rarityBonus)
}

// Compare computes the Jaccard, Overlap, and Dice similarity of two
// documents' vocabularies.
func Compare(a, b map[string]int) SimilarityScores {
	setA := wordSet(a)
	setB := wordSet(b)

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	var jaccard, overlap, dice float64
	if union > 0 {
		jaccard = float64(intersection) / float64(union)
	}
	if minLen := min(len(setA), len(setB)); minLen > 0 {
		overlap = float64(intersection) / float64(minLen)
	}
	if sumLen := len(setA) + len(setB); sumLen > 0 {
		dice = 2 * float64(intersection) / float64(sumLen)
	}

	return SimilarityScores{Jaccard: jaccard, Overlap: overlap, Dice: dice}
}

func wordSet(frequencies map[string]int) map[string]struct{} {
	set := make(map[string]struct{}, len(frequencies))
	for w := range frequencies {
		set[w] = struct{}{}
	}
	return set
}
