// Package reduce projects high-dimensional latent datasets down to 2D
// coordinates for spatial control surfaces.
//
// Three strategies are available: pca (deterministic linear projection),
// tsne and umap (stochastic neighbor embeddings). The stochastic methods
// are seeded and rescale their layout so the largest absolute coordinate
// is exactly [MaxCoord]; pca output keeps its natural scale. Every
// reducer emits exactly [TargetDims] columns regardless of input width.
package reduce

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Method selects a reduction strategy.
type Method string

const (
	PCA  Method = "pca"
	TSNE Method = "tsne"
	UMAP Method = "umap"
)

const (
	// TargetDims is the output width of every reduction.
	TargetDims = 2

	// MaxCoord bounds the layouts of the stochastic methods; their
	// largest absolute coordinate is rescaled to exactly this value.
	MaxCoord = 5.0

	// DefaultSeed seeds the stochastic methods unless WithSeed overrides it.
	DefaultSeed int64 = 42
)

// ErrUnknownMethod is returned for method names outside {pca, tsne, umap}.
var ErrUnknownMethod = errors.New("reduce: unknown method")

var errEmptyInput = errors.New("reduce: empty input")

// Reducer embeds a dataset into TargetDims columns. Row order is
// preserved. Implementations are safe for concurrent use.
type Reducer interface {
	Reduce(x mat.Matrix) (*mat.Dense, error)
}

// Option configures a Reducer.
type Option func(*config)

type config struct {
	seed int64
}

// WithSeed overrides DefaultSeed for the stochastic methods. Layouts are
// deterministic for a fixed seed and input.
func WithSeed(seed int64) Option {
	return func(c *config) { c.seed = seed }
}

// New returns the Reducer for method.
func New(method Method, opts ...Option) (Reducer, error) {
	cfg := config{seed: DefaultSeed}
	for _, o := range opts {
		o(&cfg)
	}
	switch method {
	case PCA:
		return pcaReducer{}, nil
	case TSNE:
		return &tsneReducer{seed: cfg.seed}, nil
	case UMAP:
		return &umapReducer{seed: cfg.seed}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
}

// ParseMethod validates a method name, ignoring case and surrounding
// space. The empty string is not a method; defaulting belongs to the
// caller.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case PCA, TSNE, UMAP:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Methods lists the known methods, for help text and validation messages.
func Methods() []Method {
	return []Method{PCA, TSNE, UMAP}
}

// smallLayout fixes coordinates for inputs too small to embed: a single
// point sits at the origin, a pair straddles it on the horizontal axis.
func smallLayout(n int) *mat.Dense {
	y := mat.NewDense(n, TargetDims, nil)
	if n == 2 {
		y.Set(0, 0, -1)
		y.Set(1, 0, 1)
	}
	return y
}

// rescale uniformly scales y so its largest absolute coordinate equals
// limit. An all-zero layout is left untouched.
func rescale(y *mat.Dense, limit float64) {
	rows, cols := y.Dims()
	maxAbs := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if a := y.At(i, j); a > maxAbs {
				maxAbs = a
			} else if -a > maxAbs {
				maxAbs = -a
			}
		}
	}
	if maxAbs == 0 {
		return
	}
	f := limit / maxAbs
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			y.Set(i, j, y.At(i, j)*f)
		}
	}
}
