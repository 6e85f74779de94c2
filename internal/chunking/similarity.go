package chunking

import "math"

// coherence blends cosine similarity, Jaccard overlap and a divergence term
// over the shared vocabulary. Empty vectors are dissimilar to everything.
func coherence(a, b termVec) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb, sa, sb float64
	for _, t := range a {
		na += t.w * t.w
		sa += t.w
	}
	for _, t := range b {
		nb += t.w * t.w
		sb += t.w
	}
	var kl float64
	common, union := 0, 0
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b) || (i < len(a) && a[i].id < b[j].id):
			i++
		case i == len(a) || b[j].id < a[i].id:
			j++
		default:
			dot += a[i].w * b[j].w
			pa, pb := a[i].w/sa, b[j].w/sb
			kl += pa*math.Log(pa/pb) + pb*math.Log(pb/pa)
			common++
			i++
			j++
		}
		union++
	}
	cos := dot / math.Sqrt(na*nb)
	jaccard := float64(common) / float64(union)
	var overlap float64
	if common > 0 {
		overlap = math.Exp(-kl / float64(common))
	}
	return 0.6*cos + 0.25*jaccard + 0.15*overlap
}

// smooth replaces each value with the mean of itself and its neighbours,
// passes times.
func smooth(s []float64, passes int) []float64 {
	out := append([]float64(nil), s...)
	tmp := make([]float64, len(s))
	for p := 0; p < passes && len(out) > 2; p++ {
		for i := range out {
			sum, n := out[i], 1.0
			if i > 0 {
				sum += out[i-1]
				n++
			}
			if i+1 < len(out) {
				sum += out[i+1]
				n++
			}
			tmp[i] = sum / n
		}
		out, tmp = tmp, out
	}
	return out
}

// depths scores each gap by how far similarity climbs on both sides before
// it starts falling again.
func depths(s []float64) []float64 {
	n := len(s)
	left := make([]float64, n)
	right := make([]float64, n)
	for i := 0; i < n; i++ {
		left[i] = s[i]
		if i > 0 && s[i-1] >= s[i] {
			left[i] = left[i-1]
		}
	}
	for i := n - 1; i >= 0; i-- {
		right[i] = s[i]
		if i+1 < n && s[i+1] >= s[i] {
			right[i] = right[i+1]
		}
	}
	d := make([]float64, n)
	for i := range s {
		d[i] = (left[i] - s[i]) + (right[i] - s[i])
	}
	return d
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var v float64
	for _, x := range xs {
		v += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(v / float64(len(xs)))
}
