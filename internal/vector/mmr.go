package vector

// selectMMR greedily picks k of the candidates, trading relevance to the query
// against similarity to what is already picked:
//
//	score = lambda*sim(query, c) - (1-lambda)*max(sim(c, picked))
//
// candidates must be ordered by descending relevance.
func selectMMR(query []float32, candidates []int, vectors [][]float32, k int, lambda float64) []*scoredIdx {
	if k > len(candidates) {
		k = len(candidates)
	}
	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = InnerProduct(query, vectors[c])
	}
	picked := make([]*scoredIdx, 0, k)
	used := make([]bool, len(candidates))
	for len(picked) < k {
		best, bestScore := -1, 0.0
		for i, c := range candidates {
			if used[i] {
				continue
			}
			var redundancy float64
			for j, p := range picked {
				sim := CosineSimilarity(vectors[c], vectors[p.idx])
				if j == 0 || sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*relevance[i] - (1-lambda)*redundancy
			if best < 0 || score > bestScore {
				best, bestScore = i, score
			}
		}
		used[best] = true
		picked = append(picked, &scoredIdx{idx: candidates[best], score: relevance[best]})
	}
	return picked
}

type scoredIdx struct {
	idx   int
	score float64
}
