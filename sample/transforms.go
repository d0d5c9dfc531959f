package sample

import (
	"math"
	"math/rand/v2"
	"slices"
)

// token carries one vocabulary entry through a transform pipeline.
type token struct {
	id    int32   // the token's position in the vocabulary
	value float32 // raw logit, or probability after softmax
}

// tokens converts a logit slice into candidates, skipping entries already
// masked out by an earlier primitive in the chain.
func tokens(logits []float32) []token {
	ts := make([]token, 0, len(logits))
	for i, v := range logits {
		if math.IsInf(float64(v), -1) {
			continue
		}
		ts = append(ts, token{id: int32(i), value: v})
	}
	return ts
}

// mask writes the surviving candidates back over a full-vocabulary slice,
// setting everything else to -Inf.
func mask(size int, ts []token) []float32 {
	logits := make([]float32, size)
	for i := range logits {
		logits[i] = float32(math.Inf(-1))
	}
	for _, t := range ts {
		logits[t.id] = t.value
	}
	return logits
}

// softmax normalizes candidate values into probabilities in place.
func softmax(ts []token) {
	if len(ts) == 0 {
		return
	}

	// subtracting max logit to avoid under/overflow
	maxLogit := float32(math.Inf(-1))
	for _, t := range ts {
		if t.value > maxLogit {
			maxLogit = t.value
		}
	}

	var sum float32
	for i := range ts {
		ts[i].value = float32(math.Exp(float64(ts[i].value - maxLogit)))
		sum += ts[i].value
	}
	for i := range ts {
		ts[i].value /= sum
	}
}

func temperature(ts []token, temp float32) {
	t := math.Max(float64(temp), 1e-7)
	for i := range ts {
		ts[i].value = float32(float64(ts[i].value) / t)
	}
}

// temperatureExt scales by a temperature derived from the entropy of the
// distribution: low-confidence steps run hotter, peaked steps colder.
// delta=0 degenerates to plain temperature scaling.
func temperatureExt(ts []token, temp, delta, exponent float32) {
	if delta <= 0 || len(ts) < 2 {
		temperature(ts, temp)
		return
	}

	probs := make([]token, len(ts))
	copy(probs, ts)
	softmax(probs)

	var entropy float64
	for _, t := range probs {
		if t.value > 0 {
			entropy -= float64(t.value) * math.Log(float64(t.value))
		}
	}
	maxEntropy := math.Log(float64(len(ts)))

	normalized := entropy / maxEntropy
	dyn := float64(temp-delta) + 2*float64(delta)*math.Pow(normalized, float64(exponent))
	temperature(ts, float32(dyn))
}

// sortByValue orders candidates by descending value.
func sortByValue(ts []token) {
	slices.SortFunc(ts, func(a, b token) int {
		switch {
		case a.value > b.value:
			return -1
		case a.value < b.value:
			return 1
		}
		return 0
	})
}

func topK(ts []token, k int) []token {
	if k <= 0 || k >= len(ts) {
		return ts
	}
	sortByValue(ts)
	return ts[:k]
}

// topP keeps the smallest prefix of the probability-sorted candidates whose
// cumulative probability exceeds p. Expects probabilities, not logits.
func topP(ts []token, p float32, minKeep int) []token {
	if p >= 1 || len(ts) <= minKeep {
		return ts
	}
	sortByValue(ts)

	var sum float32
	for i, t := range ts {
		sum += t.value
		if sum > p && i+1 >= minKeep {
			return ts[:i+1]
		}
	}
	return ts
}

// minP drops candidates whose probability falls below p times the maximum.
func minP(ts []token, p float32, minKeep int) []token {
	if p <= 0 || len(ts) <= minKeep {
		return ts
	}
	sortByValue(ts)

	threshold := ts[0].value * p
	for i, t := range ts {
		if t.value < threshold && i >= minKeep {
			return ts[:i]
		}
	}
	return ts
}

// typical keeps the candidates whose surprise is closest to the entropy of
// the distribution, up to cumulative probability p. Expects probabilities.
func typical(ts []token, p float32, minKeep int) []token {
	if p >= 1 || len(ts) <= minKeep {
		return ts
	}

	var entropy float64
	for _, t := range ts {
		if t.value > 0 {
			entropy -= float64(t.value) * math.Log(float64(t.value))
		}
	}

	shifted := make([]float64, len(ts))
	for i, t := range ts {
		surprise := math.Inf(1)
		if t.value > 0 {
			surprise = -math.Log(float64(t.value))
		}
		shifted[i] = math.Abs(surprise - entropy)
	}

	order := make([]int, len(ts))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		switch {
		case shifted[a] < shifted[b]:
			return -1
		case shifted[a] > shifted[b]:
			return 1
		}
		return 0
	})

	kept := make([]token, 0, len(ts))
	var sum float32
	for _, idx := range order {
		kept = append(kept, ts[idx])
		sum += ts[idx].value
		if sum >= p && len(kept) >= minKeep {
			break
		}
	}
	return kept
}

// xtc excludes the top choices: with probability prob, every candidate above
// threshold except the least likely of them is removed. Expects
// probabilities.
func xtc(ts []token, prob, threshold float32, minKeep int, rng *rand.Rand) []token {
	if prob <= 0 || threshold <= 0 || len(ts) <= minKeep {
		return ts
	}
	if rng.Float32() >= prob {
		return ts
	}
	sortByValue(ts)

	above := 0
	for _, t := range ts {
		if t.value >= threshold {
			above++
		}
	}
	if above < 2 {
		return ts
	}

	// keep the last candidate above threshold plus everything below it
	cut := above - 1
	if len(ts)-cut < minKeep {
		cut = len(ts) - minKeep
	}
	if cut <= 0 {
		return ts
	}
	return ts[cut:]
}

// greedy returns the highest probability token from the candidates.
func greedy(ts []token) token {
	max := ts[0]
	for i := 1; i < len(ts); i++ {
		if ts[i].value > max.value {
			max = ts[i]
		}
	}
	return max
}

// pick samples one candidate proportionally to its probability. Expects
// probabilities.
func pick(ts []token, rng *rand.Rand) token {
	var sum float32
	for _, t := range ts {
		sum += t.value
	}

	r := rng.Float32() * sum
	for _, t := range ts {
		r -= t.value
		if r <= 0 {
			return t
		}
	}
	return ts[len(ts)-1]
}

// newRNG seeds a PCG source the way the generation loop does: the seed as
// the sequence, a golden-ratio hash for a statistically independent stream.
func newRNG(seed int64) *rand.Rand {
	sequence := uint64(seed)
	return rand.New(rand.NewPCG(sequence, sequence^0x9E3779B9))
}
