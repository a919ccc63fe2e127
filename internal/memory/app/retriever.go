package app

import (
	"math"
	"sort"
	"strings"

	"github.com/memora-labs/memora/internal/domain"
)

// scoredChunk pairs a candidate chunk with its fused retrieval score.
type scoredChunk struct {
	chunk domain.MemoryChunk
	score float64
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched or zero-length vectors score 0 rather than erroring; a stored
// chunk with a bad embedding should lose ranking, not fail the query.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// lexicalScore measures term overlap between query and doc: the fraction of
// distinct query terms present in the doc, weighted by repeat occurrences
// with diminishing returns. Both sides are lowercased and split on
// whitespace/punctuation.
func lexicalScore(query, doc string) float64 {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return 0
	}
	docCounts := make(map[string]int)
	for _, term := range tokenize(doc) {
		docCounts[term]++
	}

	seen := make(map[string]bool, len(queryTerms))
	var score float64
	for _, term := range queryTerms {
		if seen[term] {
			continue
		}
		seen[term] = true
		if n := docCounts[term]; n > 0 {
			// 1 + log dampens repeated occurrences.
			score += 1 + math.Log(float64(n))
		}
	}
	return score / float64(len(seen))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r < 128
	})
}

// rankHybrid fuses lexical and vector rankings of the candidates with
// reciprocal-rank fusion. The lexical ranking carries domain.LexicalBoost
// weight relative to the vector ranking. Returns candidates ordered best
// first; candidates matching neither signal rank last, not dropped, so a
// short memory set still fills the pool.
func rankHybrid(queryVec []float32, queryText string, candidates []domain.MemoryChunk) []scoredChunk {
	n := len(candidates)
	if n == 0 {
		return nil
	}

	lexRank := rankBy(candidates, func(c domain.MemoryChunk) float64 {
		return lexicalScore(queryText, c.Text)
	})
	vecRank := rankBy(candidates, func(c domain.MemoryChunk) float64 {
		return CosineSimilarity(queryVec, c.Embedding)
	})

	fused := make([]scoredChunk, n)
	for i, c := range candidates {
		score := domain.LexicalBoost/float64(domain.RRFRankConstant+lexRank[i]) +
			1.0/float64(domain.RRFRankConstant+vecRank[i])
		fused[i] = scoredChunk{chunk: c, score: score}
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].score > fused[j].score
	})
	return fused
}

// rankBy returns the 1-based rank of each candidate under score (1 = best).
// Candidates with equal scores share the same rank, so ties contribute
// identical RRF terms instead of amplifying input order.
func rankBy(candidates []domain.MemoryChunk, score func(domain.MemoryChunk) float64) []int {
	idx := make([]int, len(candidates))
	for i := range idx {
		idx[i] = i
	}
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = score(c)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	ranks := make([]int, len(candidates))
	for pos, i := range idx {
		if pos > 0 && scores[i] == scores[idx[pos-1]] {
			ranks[i] = ranks[idx[pos-1]]
			continue
		}
		ranks[i] = pos + 1
	}
	return ranks
}

// selectDiverse applies maximal marginal relevance over the ranked
// candidates: each round picks the chunk maximizing
// lambda*relevance - (1-lambda)*max-similarity-to-already-selected.
// Returns at most k chunks, best first.
func selectDiverse(queryVec []float32, ranked []scoredChunk, k int, lambda float64) []domain.MemoryChunk {
	if k <= 0 || len(ranked) == 0 {
		return nil
	}
	if k > len(ranked) {
		k = len(ranked)
	}

	selected := make([]domain.MemoryChunk, 0, k)
	remaining := make([]scoredChunk, len(ranked))
	copy(remaining, ranked)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := math.Inf(-1)
		for i, cand := range remaining {
			relevance := CosineSimilarity(queryVec, cand.chunk.Embedding)
			redundancy := 0.0
			for _, sel := range selected {
				if sim := CosineSimilarity(cand.chunk.Embedding, sel.Embedding); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*relevance - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx].chunk)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

// assembleContext concatenates snippets in order while the running total
// stays strictly under the token budget, stopping at the first snippet that
// would reach it. Returns the joined context and the number of snippets
// included.
func assembleContext(snippets []domain.MemoryChunk, budget int) (string, int) {
	var parts []string
	total := 0
	for _, s := range snippets {
		cost := domain.ApproxTokenCount(s.Text)
		if total+cost >= budget {
			break
		}
		parts = append(parts, s.Text)
		total += cost
	}
	return strings.Join(parts, "\n\n"), len(parts)
}
