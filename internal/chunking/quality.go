package chunking

// qualityScore rates a chunk in [0,1] from how full it is relative to the
// budget and whether it ends on a sentence boundary.
func qualityScore(tokens, tokenMax int, complete bool) float64 {
	s := 0.5
	if tokenMax > 0 && tokens > 0 {
		fill := float64(tokens) / float64(tokenMax)
		if fill > 1 {
			fill = 1
		}
		s += 0.3 * fill
	}
	if complete {
		s += 0.2
	}
	if s > 1 {
		return 1
	}
	return s
}
