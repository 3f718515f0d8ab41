package reduce

import (
	"math/rand"
	"sync"

	"github.com/danaugrs/go-tsne/tsne"
	"gonum.org/v1/gonum/mat"
)

const (
	tsnePerplexity   = 30.0
	tsneLearningRate = 200.0
	tsneIterations   = 1000
)

// go-tsne draws its initial embedding from the global math/rand source.
// Reseeding that source is process-wide state, so embeddings serialize
// on tsneMu to keep concurrent jobs reproducible.
var tsneMu sync.Mutex

type tsneReducer struct {
	seed int64
}

var _ Reducer = (*tsneReducer)(nil)

func (r *tsneReducer) Reduce(x mat.Matrix) (*mat.Dense, error) {
	n, _ := x.Dims()
	if n == 0 {
		return nil, errEmptyInput
	}
	if n < 3 {
		y := smallLayout(n)
		rescale(y, MaxCoord)
		return y, nil
	}

	// Perplexity must stay well below the sample count or the
	// conditional distributions degenerate.
	perplexity := tsnePerplexity
	if limit := float64(n-1) / 3; limit < perplexity {
		perplexity = limit
	}

	tsneMu.Lock()
	rand.Seed(r.seed)
	t := tsne.NewTSNE(TargetDims, perplexity, tsneLearningRate, tsneIterations, false)
	embedded := t.EmbedData(x, nil)
	tsneMu.Unlock()

	y := mat.DenseCopyOf(embedded)
	rescale(y, MaxCoord)
	return y, nil
}
