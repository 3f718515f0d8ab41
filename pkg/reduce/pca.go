package reduce

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type pcaReducer struct{}

var _ Reducer = pcaReducer{}

func (pcaReducer) Reduce(x mat.Matrix) (*mat.Dense, error) {
	n, _ := x.Dims()
	if n == 0 {
		return nil, errEmptyInput
	}
	if n == 1 {
		return smallLayout(1), nil
	}
	return pcaProject(x, TargetDims)
}

// pcaProject centers x and projects it onto its first k principal axes.
// Rank-deficient inputs yield fewer axes than k; the missing columns
// come back as zeros so the output is always n×k.
func pcaProject(x mat.Matrix, k int) (*mat.Dense, error) {
	n, d := x.Dims()

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, fmt.Errorf("reduce: pca decomposition failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, avail := vecs.Dims()
	m := k
	if avail < m {
		m = avail
	}

	means := make([]float64, d)
	for j := 0; j < d; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += x.At(i, j)
		}
		means[j] = sum / float64(n)
	}
	centered := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			centered.Set(i, j, x.At(i, j)-means[j])
		}
	}

	var proj mat.Dense
	proj.Mul(centered, vecs.Slice(0, d, 0, m))

	out := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			out.Set(i, j, proj.At(i, j))
		}
	}
	return out, nil
}
