package features

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

var stopWords = toSet(strings.Fields(`
a about above after again against all also am an and any are as at be because been
before being below between both but by can cannot could did do does doing down during
each few for from further had has have having he her here hers herself him himself his
how i if in into is it its itself just me more most my myself no nor not now of off on
once only or other our ours ourselves out over own same she should so some such than
that the their theirs them themselves then there these they this those through to too
under until up very was we were what when where which while who whom why will with
would you your yours yourself yourselves`))

// vocabulary is a fitted, bounded term-importance model
type vocabulary struct {
	terms []string
	index map[string]int
	idf   []float64
}

// fitVocabulary keeps unigrams and bigrams that appear in at least minDF
// documents and at most maxDFRatio of them, capped at maxTerms by corpus
// frequency. Terms are stored alphabetically.
func fitVocabulary(docs []string, maxTerms, minDF int, maxDFRatio float64) *vocabulary {
	n := len(docs)
	df := make(map[string]int)
	tf := make(map[string]int)

	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, term := range analyze(doc) {
			tf[term]++
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}

	maxDF := int(math.Floor(maxDFRatio * float64(n)))
	candidates := make([]string, 0, len(df))
	for term, d := range df {
		if d >= minDF && d <= maxDF {
			candidates = append(candidates, term)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if tf[a] != tf[b] {
			return tf[a] > tf[b]
		}
		return a < b
	})
	if len(candidates) > maxTerms {
		candidates = candidates[:maxTerms]
	}
	sort.Strings(candidates)

	v := &vocabulary{
		terms: candidates,
		index: make(map[string]int, len(candidates)),
		idf:   make([]float64, len(candidates)),
	}
	for i, term := range candidates {
		v.index[term] = i
		v.idf[i] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}
	return v
}

// weights writes the L2-normalized tf-idf weights of doc into dst.
// Out-of-vocabulary terms are ignored.
func (v *vocabulary) weights(doc string, dst []float64) {
	for _, term := range analyze(doc) {
		if i, ok := v.index[term]; ok {
			dst[i] += v.idf[i]
		}
	}
	row := dst[:len(v.terms)]
	if norm := floats.Norm(row, 2); norm > 0 {
		floats.Scale(1/norm, row)
	}
}

// analyze lowercases, tokenizes, drops stop words and emits unigrams then
// bigrams.
func analyze(doc string) []string {
	var tokens []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(doc), -1) {
		if !stopWords[tok] {
			tokens = append(tokens, tok)
		}
	}
	terms := append([]string(nil), tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		terms = append(terms, tokens[i]+" "+tokens[i+1])
	}
	return terms
}

func toSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
