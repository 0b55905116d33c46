package app

// SeededShuffle returns a new slice with the elements of items permuted
// deterministically by seed: identical (items, seed) pairs yield an identical
// order across calls and process restarts. The seed is folded into a 32-bit
// hash (hash = hash*31 + char) which then drives a Fisher-Yates pass through a
// linear congruential step. Gameplay fairness only, not cryptographic.
func SeededShuffle[T any](items []T, seed string) []T {
	out := make([]T, len(items))
	copy(out, items)

	h := seedHash(seed)
	for i := len(out) - 1; i > 0; i-- {
		h = (h*9301 + 49297) % 233280
		j := int(uint64(h) * uint64(i+1) / 233280)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func seedHash(seed string) uint32 {
	var h uint32
	for _, c := range seed {
		h = h*31 + uint32(c)
	}
	return h
}
