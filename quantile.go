package desim

// gapQuantile estimates a single quantile of the stream of virtual-time
// gaps between dispatched events, using the P-Square method (Jain and
// Chlamtac, 1985): five markers track the running minimum, maximum, the
// target quantile and its two midpoints, and each marker is nudged
// toward its ideal position after every observation. O(1) per
// observation, O(1) retrieval, no samples retained.
type gapQuantile struct {
	target float64    // quantile in [0, 1]
	height [5]float64 // marker heights, ascending
	pos    [5]float64 // actual marker positions, 1-based as in the paper
	want   [5]float64 // ideal marker positions
	grow   [5]float64 // per-observation increments applied to want
	seen   int        // observations so far; the first five seed the markers
}

func newGapQuantile(target float64) *gapQuantile {
	if target < 0 {
		target = 0
	}
	if target > 1 {
		target = 1
	}
	return &gapQuantile{
		target: target,
		grow:   [5]float64{0, target / 2, target, (1 + target) / 2, 1},
	}
}

// observe feeds one gap into the estimator.
func (g *gapQuantile) observe(x float64) {
	if g.seen < 5 {
		// Seed phase: keep the first five observations sorted in place,
		// then promote them to the initial marker heights.
		i := g.seen
		for i > 0 && g.height[i-1] > x {
			g.height[i] = g.height[i-1]
			i--
		}
		g.height[i] = x
		g.seen++
		if g.seen == 5 {
			g.pos = [5]float64{1, 2, 3, 4, 5}
			g.want = [5]float64{1, 1 + 2*g.target, 1 + 4*g.target, 3 + 2*g.target, 5}
		}
		return
	}

	// Locate the cell whose markers bracket x, widening an extreme
	// marker when x falls outside the range seen so far.
	k := 3
	switch {
	case x < g.height[0]:
		g.height[0] = x
		k = 0
	case x >= g.height[4]:
		g.height[4] = x
	default:
		for k = 0; x >= g.height[k+1]; k++ {
		}
	}

	g.seen++
	for j := k + 1; j < 5; j++ {
		g.pos[j]++
	}
	for j := range g.want {
		g.want[j] += g.grow[j]
	}
	for j := 1; j < 4; j++ {
		g.shift(j)
	}
}

// shift moves interior marker j one position toward its ideal location
// when it has drifted a full position off, preferring the paper's
// piecewise-parabolic height estimate and falling back to linear
// interpolation whenever the parabola would leave the bracket.
func (g *gapQuantile) shift(j int) {
	d := g.want[j] - g.pos[j]
	if !(d >= 1 && g.pos[j+1]-g.pos[j] > 1) && !(d <= -1 && g.pos[j-1]-g.pos[j] < -1) {
		return
	}
	s := 1.0
	near := j + 1
	if d < 0 {
		s = -1
		near = j - 1
	}

	prev, cur, next := g.pos[j-1], g.pos[j], g.pos[j+1]
	fit := g.height[j] + s/(next-prev)*(
		(cur-prev+s)*(g.height[j+1]-g.height[j])/(next-cur)+
			(next-cur-s)*(g.height[j]-g.height[j-1])/(cur-prev))
	if g.height[j-1] < fit && fit < g.height[j+1] {
		g.height[j] = fit
	} else {
		g.height[j] += s * (g.height[near] - g.height[j]) / (g.pos[near] - cur)
	}
	g.pos[j] += s
}

// estimate returns the current quantile estimate. During the seed phase
// it answers from the sorted seed buffer, which is exact.
func (g *gapQuantile) estimate() float64 {
	if g.seen == 0 {
		return 0
	}
	if g.seen < 5 {
		return g.height[int(float64(g.seen-1)*g.target)]
	}
	return g.height[2]
}
