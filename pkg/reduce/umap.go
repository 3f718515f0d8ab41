package reduce

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Uniform manifold approximation and projection, following the reference
// algorithm: exact kNN, smoothed fuzzy simplicial set, probabilistic
// symmetrization, then an epoch-per-sample SGD layout with negative
// sampling. Everything runs off one seeded source, so layouts are
// reproducible without touching global state.
//
// The curve constants a and b correspond to the reference defaults
// min_dist=0.1, spread=1.0.
const (
	umapNeighbors       = 15
	umapCurveA          = 1.5769434603113077
	umapCurveB          = 0.8950608781227859
	umapNegativeSamples = 5
	umapGradClip        = 4.0
	umapInitScale       = 10.0
)

type umapReducer struct {
	seed int64
}

var _ Reducer = (*umapReducer)(nil)

func (r *umapReducer) Reduce(x mat.Matrix) (*mat.Dense, error) {
	n, _ := x.Dims()
	if n == 0 {
		return nil, errEmptyInput
	}
	if n < 3 {
		y := smallLayout(n)
		rescale(y, MaxCoord)
		return y, nil
	}

	k := umapNeighbors
	if k > n-1 {
		k = n - 1
	}

	idx, dist := nearestNeighbors(x, k)
	edges := fuzzyGraph(idx, dist, k)
	y := r.layout(x, edges, n)
	rescale(y, MaxCoord)
	return y, nil
}

type knnCandidate struct {
	j int
	d float64
}

// nearestNeighbors brute-forces the k nearest neighbors of every row by
// Euclidean distance. Ties break on index so runs are identical.
func nearestNeighbors(x mat.Matrix, k int) (idx [][]int, dist [][]float64) {
	n, d := x.Dims()
	idx = make([][]int, n)
	dist = make([][]float64, n)
	cand := make([]knnCandidate, 0, n-1)
	for i := 0; i < n; i++ {
		cand = cand[:0]
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			sum := 0.0
			for c := 0; c < d; c++ {
				diff := x.At(i, c) - x.At(j, c)
				sum += diff * diff
			}
			cand = append(cand, knnCandidate{j: j, d: math.Sqrt(sum)})
		}
		sort.Slice(cand, func(a, b int) bool {
			if cand[a].d != cand[b].d {
				return cand[a].d < cand[b].d
			}
			return cand[a].j < cand[b].j
		})
		idx[i] = make([]int, k)
		dist[i] = make([]float64, k)
		for m := 0; m < k; m++ {
			idx[i][m] = cand[m].j
			dist[i][m] = cand[m].d
		}
	}
	return idx, dist
}

type umapEdge struct {
	i, j int
	w    float64
}

// fuzzyGraph converts kNN distances into a symmetric weighted edge list.
// Each point's neighborhood is calibrated so its total membership is
// log2(k), then directed memberships merge with the probabilistic
// t-conorm w = a + b - ab. Edge order follows the neighbor scan, never
// map iteration, to keep layouts reproducible.
func fuzzyGraph(idx [][]int, dist [][]float64, k int) []umapEdge {
	n := len(idx)
	target := math.Log2(float64(k))

	member := make([]map[int]float64, n)
	for i := 0; i < n; i++ {
		rho := 0.0
		for _, dd := range dist[i] {
			if dd > 0 {
				rho = dd
				break
			}
		}
		sigma := smoothKNNSigma(dist[i], rho, target)
		member[i] = make(map[int]float64, k)
		for m, j := range idx[i] {
			gap := dist[i][m] - rho
			if gap <= 0 {
				member[i][j] = 1
			} else {
				member[i][j] = math.Exp(-gap / sigma)
			}
		}
	}

	edges := make([]umapEdge, 0, n*k)
	done := make(map[[2]int]bool, n*k)
	for i := 0; i < n; i++ {
		for _, j := range idx[i] {
			a, b := i, j
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if done[key] {
				continue
			}
			done[key] = true
			wab := member[a][b]
			wba := member[b][a]
			if w := wab + wba - wab*wba; w > 0 {
				edges = append(edges, umapEdge{i: a, j: b, w: w})
			}
		}
	}
	return edges
}

// smoothKNNSigma binary-searches the bandwidth that makes the smoothed
// neighborhood of one point sum to target.
func smoothKNNSigma(dist []float64, rho, target float64) float64 {
	lo, hi := 0.0, math.Inf(1)
	mid := 1.0
	for iter := 0; iter < 64; iter++ {
		sum := 0.0
		for _, dd := range dist {
			gap := dd - rho
			if gap <= 0 {
				sum++
			} else {
				sum += math.Exp(-gap / mid)
			}
		}
		if math.Abs(sum-target) < 1e-5 {
			break
		}
		if sum > target {
			hi = mid
			mid = (lo + hi) / 2
		} else {
			lo = mid
			if math.IsInf(hi, 1) {
				mid *= 2
			} else {
				mid = (lo + hi) / 2
			}
		}
	}
	if mid < 1e-3 {
		mid = 1e-3
	}
	return mid
}

func (r *umapReducer) layout(x mat.Matrix, edges []umapEdge, n int) *mat.Dense {
	rng := rand.New(rand.NewSource(r.seed))

	// PCA initialization gives a deterministic, globally sensible start.
	y, err := pcaProject(x, TargetDims)
	if err != nil {
		y = mat.NewDense(n, TargetDims, nil)
		for i := 0; i < n; i++ {
			for c := 0; c < TargetDims; c++ {
				y.Set(i, c, rng.Float64()*2*umapInitScale-umapInitScale)
			}
		}
	} else {
		rescale(y, umapInitScale)
	}

	if len(edges) == 0 {
		return y
	}

	epochs := 500
	if n > 10000 {
		epochs = 200
	}

	// Epoch-per-sample schedule: an edge with weight w is sampled every
	// maxW/w epochs, so strong edges dominate the layout.
	maxW := 0.0
	for _, e := range edges {
		if e.w > maxW {
			maxW = e.w
		}
	}
	perSample := make([]float64, len(edges))
	nextEpoch := make([]float64, len(edges))
	for i, e := range edges {
		perSample[i] = maxW / e.w
		nextEpoch[i] = perSample[i]
	}

	for epoch := 1; epoch <= epochs; epoch++ {
		alpha := 1 - float64(epoch-1)/float64(epochs)
		for ei, e := range edges {
			if nextEpoch[ei] > float64(epoch) {
				continue
			}
			nextEpoch[ei] += perSample[ei]
			attract(y, e.i, e.j, alpha)
			for s := 0; s < umapNegativeSamples; s++ {
				j := rng.Intn(n)
				if j == e.i {
					continue
				}
				repel(y, e.i, j, alpha)
			}
		}
	}
	return y
}

// attract pulls i and j together along the gradient of the membership
// curve 1/(1 + a·d^2b).
func attract(y *mat.Dense, i, j int, alpha float64) {
	dx := y.At(i, 0) - y.At(j, 0)
	dy := y.At(i, 1) - y.At(j, 1)
	d2 := dx*dx + dy*dy
	if d2 <= 0 {
		return
	}
	g := -2 * umapCurveA * umapCurveB * math.Pow(d2, umapCurveB-1) /
		(1 + umapCurveA*math.Pow(d2, umapCurveB))
	gx := clipGrad(g*dx) * alpha
	gy := clipGrad(g*dy) * alpha
	y.Set(i, 0, y.At(i, 0)+gx)
	y.Set(i, 1, y.At(i, 1)+gy)
	y.Set(j, 0, y.At(j, 0)-gx)
	y.Set(j, 1, y.At(j, 1)-gy)
}

// repel pushes i away from a sampled non-neighbor j. Only the head
// moves, as in the reference implementation.
func repel(y *mat.Dense, i, j int, alpha float64) {
	dx := y.At(i, 0) - y.At(j, 0)
	dy := y.At(i, 1) - y.At(j, 1)
	d2 := dx*dx + dy*dy
	g := 2 * umapCurveB / ((0.001 + d2) * (1 + umapCurveA*math.Pow(d2, umapCurveB)))
	var gx, gy float64
	if d2 > 0 {
		gx = clipGrad(g*dx) * alpha
		gy = clipGrad(g*dy) * alpha
	} else {
		// Coincident points get a fixed nudge apart.
		gx = umapGradClip * alpha
		gy = 0
	}
	y.Set(i, 0, y.At(i, 0)+gx)
	y.Set(i, 1, y.At(i, 1)+gy)
}

func clipGrad(v float64) float64 {
	if v > umapGradClip {
		return umapGradClip
	}
	if v < -umapGradClip {
		return -umapGradClip
	}
	return v
}
