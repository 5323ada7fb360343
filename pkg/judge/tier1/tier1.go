// Package tier1 implements the lexical/semantic similarity engine (C4,
// Tier 1): TF-IDF cosine similarity, Jaccard overlap, a semantic score
// (falls back to cosine when no embedding scorer is configured), and a
// time-decay score, composed into an overall Tier1Result.
//
// Formulas are grounded on the original Python implementation's
// traditional_metrics module (cosine/jaccard/time_score/task_success),
// hand-rolled here because no Go text-similarity library is present
// anywhere in the retrieved example pack (see DESIGN.md).
package tier1

import (
	"math"
	"strings"

	"judge/internal/config"
	"judge/internal/logging"
	"judge/pkg/judge/model"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "of": {}, "to": {}, "in": {}, "on": {}, "for": {}, "with": {},
	"it": {}, "this": {}, "that": {}, "as": {}, "at": {}, "by": {}, "be": {},
}

const maxFeatures = 5000

// Engine computes Tier 1 scores. A zero-value Engine uses default
// weights; NewEngine wires it to the Judge's configured weights.
type Engine struct {
	cfg config.Tier1Config
}

// NewEngine constructs a Tier 1 engine from the Judge's configuration.
func NewEngine(cfg *config.Config) *Engine {
	if cfg == nil {
		return &Engine{cfg: config.Tier1Config{SemanticWeight: 0.4, CosineWeight: 0.3, JaccardWeight: 0.2, TimeWeight: 0.1, TaskSuccessThreshold: 0.8}}
	}
	return &Engine{cfg: cfg.Tier1}
}

// Evaluate compares output against every entry in references and keeps
// the best ("max") scalar per metric across references, per §4.4.
func (e *Engine) Evaluate(output string, references []string, startTime, endTime float64) model.Tier1Result {
	var bestCosine, bestJaccard, bestSemantic float64
	if len(references) == 0 {
		references = []string{""}
	}
	for _, ref := range references {
		c := clamp01(cosineSimilarity(output, ref))
		j := clamp01(jaccardSimilarity(output, ref))
		s := clamp01(semanticSimilarity(output, ref, c))
		if c > bestCosine {
			bestCosine = c
		}
		if j > bestJaccard {
			bestJaccard = j
		}
		if s > bestSemantic {
			bestSemantic = s
		}
	}

	duration := math.Max(1e-3, endTime-startTime)
	timeScore := clamp01(math.Exp(-duration))

	weighted := bestSemantic*0.5 + bestCosine*0.3 + bestJaccard*0.2
	threshold := e.cfg.TaskSuccessThreshold
	if threshold == 0 {
		threshold = 0.8
	}
	taskSuccess := 0.0
	if weighted >= threshold {
		taskSuccess = 1.0
	}

	overall := bestSemantic*weightOr(e.cfg.SemanticWeight, 0.4) +
		bestCosine*weightOr(e.cfg.CosineWeight, 0.3) +
		bestJaccard*weightOr(e.cfg.JaccardWeight, 0.2) +
		timeScore*weightOr(e.cfg.TimeWeight, 0.1)

	return model.Tier1Result{
		CosineScore:   bestCosine,
		JaccardScore:  bestJaccard,
		SemanticScore: bestSemantic,
		TimeScore:     timeScore,
		TaskSuccess:   taskSuccess,
		OverallScore:  clamp01(overall),
		ExecutionTime: duration,
	}
}

func weightOr(w, def float64) float64 {
	if w == 0 {
		return def
	}
	return w
}

// clamp01 defends against floating-point drift (§3.1, §8.1): scores
// like 1.0000000000000002 are clamped, not rejected.
func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		logging.Warn("tier1: similarity metric was NaN, clamping to 0")
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func tokenize(s string) []string {
	s = strings.ToLower(s)
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	var filtered []string
	for _, t := range tokens {
		if _, stop := stopWords[t]; stop {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

// ngrams builds unigrams and bigrams from tokens, matching the
// "unigram+bigram" feature space described in §4.4.
func ngrams(tokens []string) []string {
	features := make([]string, 0, len(tokens)*2)
	features = append(features, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		features = append(features, tokens[i]+"_"+tokens[i+1])
	}
	if len(features) > maxFeatures {
		features = features[:maxFeatures]
	}
	return features
}

func termFreq(features []string) map[string]float64 {
	tf := make(map[string]float64)
	for _, f := range features {
		tf[f]++
	}
	return tf
}

// cosineSimilarity computes cosine similarity over a simple term-
// frequency vector space built from unigram+bigram features of a and b
// only (a two-document "corpus"), which approximates TF-IDF's IDF term
// as a constant across this pairwise comparison.
func cosineSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	fa := ngrams(tokenize(a))
	fb := ngrams(tokenize(b))
	if len(fa) == 0 && len(fb) == 0 {
		return 1.0
	}
	if len(fa) == 0 || len(fb) == 0 {
		return 0.0
	}
	va, vb := termFreq(fa), termFreq(fb)
	var dot, na, nb float64
	for term, v := range va {
		dot += v * vb[term]
		na += v * v
	}
	for _, v := range vb {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func jaccardSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	setA := toSet(tokenize(a))
	setB := toSet(tokenize(b))
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}
	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// semanticSimilarity stands in for a BERT-style embedding scorer. No
// embedding model is wired into the Judge (out of scope per spec.md's
// LLM-provider-factory boundary), so this documents the fallback to
// cosine similarity explicitly, per §4.4.
func semanticSimilarity(a, b string, cosineFallback float64) float64 {
	return cosineFallback
}
