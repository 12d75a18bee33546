package layout

// SeededRandom maps an integer seed to a value in [0, 1). It is the only
// source of jitter in this package so identical seeds yield identical
// placements no matter which zone asks.
func SeededRandom(seed int) float64 {
	x := uint64(int64(seed))*0x9E3779B97F4A7C15 + 0x2545F4914F6CDD1D
	if x == 0 {
		x = 1
	}
	// xorshift64 (13, 17, 5), three rounds to decorrelate adjacent seeds
	for i := 0; i < 3; i++ {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
	}
	return float64(x>>11) / (1 << 53)
}

// centered returns SeededRandom(seed) shifted into [-0.5, 0.5).
func centered(seed int) float64 {
	return SeededRandom(seed) - 0.5
}
