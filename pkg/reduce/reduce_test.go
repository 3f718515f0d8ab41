package reduce_test

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ravelab/ravemap/pkg/reduce"
)

// clusterData is two well-separated clusters of four points in 5D. Any
// reasonable embedding keeps the clusters apart.
func clusterData() *mat.Dense {
	rows := [][]float64{
		{0, 0, 0, 0, 0},
		{0.1, 0, 0, 0, 0},
		{0, 0.1, 0, 0, 0},
		{0.1, 0.1, 0, 0, 0},
		{10, 10, 10, 10, 10},
		{10.1, 10, 10, 10, 10},
		{10, 10.1, 10, 10, 10},
		{10.1, 10.1, 10, 10, 10},
	}
	x := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, r := range rows {
		x.SetRow(i, r)
	}
	return x
}

func maxAbs(y *mat.Dense) float64 {
	r, c := y.Dims()
	m := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if a := math.Abs(y.At(i, j)); a > m {
				m = a
			}
		}
	}
	return m
}

func TestParseMethod(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want reduce.Method
	}{
		{"pca", reduce.PCA},
		{"tsne", reduce.TSNE},
		{"umap", reduce.UMAP},
		{"PCA", reduce.PCA},
		{" Umap ", reduce.UMAP},
	} {
		got, err := reduce.ParseMethod(tc.in)
		if err != nil {
			t.Errorf("ParseMethod(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMethod(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "t-sne", "isomap", "pca2"} {
		if _, err := reduce.ParseMethod(bad); !errors.Is(err, reduce.ErrUnknownMethod) {
			t.Errorf("ParseMethod(%q) = %v, want ErrUnknownMethod", bad, err)
		}
	}
}

func TestNewUnknownMethod(t *testing.T) {
	if _, err := reduce.New(reduce.Method("sammon")); !errors.Is(err, reduce.ErrUnknownMethod) {
		t.Fatalf("New = %v, want ErrUnknownMethod", err)
	}
}

func TestAllMethodsEmitTwoColumns(t *testing.T) {
	x := clusterData()
	for _, m := range reduce.Methods() {
		r, err := reduce.New(m)
		if err != nil {
			t.Fatalf("New(%s): %v", m, err)
		}
		y, err := r.Reduce(x)
		if err != nil {
			t.Fatalf("%s Reduce: %v", m, err)
		}
		rows, cols := y.Dims()
		if rows != 8 || cols != reduce.TargetDims {
			t.Errorf("%s: dims = %dx%d, want 8x%d", m, rows, cols, reduce.TargetDims)
		}
	}
}

func TestPCASeparatesClusters(t *testing.T) {
	r, err := reduce.New(reduce.PCA)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	y, err := r.Reduce(clusterData())
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	// The first component must separate the clusters by far more than
	// the within-cluster spread. Sign is arbitrary.
	gap := math.Abs(y.At(0, 0) - y.At(4, 0))
	spread := math.Abs(y.At(0, 0) - y.At(3, 0))
	if gap < 10*spread {
		t.Fatalf("cluster gap %v not dominant over spread %v", gap, spread)
	}

	// Projections of centered data have zero mean per column.
	for j := 0; j < 2; j++ {
		sum := 0.0
		for i := 0; i < 8; i++ {
			sum += y.At(i, j)
		}
		if math.Abs(sum/8) > 1e-9 {
			t.Errorf("column %d mean = %v, want 0", j, sum/8)
		}
	}
}

func TestPCADeterministic(t *testing.T) {
	r, _ := reduce.New(reduce.PCA)
	y1, err := r.Reduce(clusterData())
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	y2, err := r.Reduce(clusterData())
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if !mat.Equal(y1, y2) {
		t.Fatal("pca output differs between identical runs")
	}
}

func TestPCASinglePoint(t *testing.T) {
	r, _ := reduce.New(reduce.PCA)
	y, err := r.Reduce(mat.NewDense(1, 4, []float64{1, 2, 3, 4}))
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if y.At(0, 0) != 0 || y.At(0, 1) != 0 {
		t.Fatalf("single point = (%v, %v), want origin", y.At(0, 0), y.At(0, 1))
	}
}

func TestPCAOneColumnPads(t *testing.T) {
	// 1-D input has only one principal axis; the second output column
	// must be zero.
	x := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	r, _ := reduce.New(reduce.PCA)
	y, err := r.Reduce(x)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	_, cols := y.Dims()
	if cols != 2 {
		t.Fatalf("cols = %d, want 2", cols)
	}
	for i := 0; i < 4; i++ {
		if y.At(i, 1) != 0 {
			t.Errorf("row %d second column = %v, want 0", i, y.At(i, 1))
		}
	}
	if y.At(0, 0) == y.At(3, 0) {
		t.Error("first column carries no variance")
	}
}

func TestTSNEScaledToMaxCoord(t *testing.T) {
	r, err := reduce.New(reduce.TSNE)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	y, err := r.Reduce(clusterData())
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if got := maxAbs(y); math.Abs(got-reduce.MaxCoord) > 1e-9 {
		t.Fatalf("max |coord| = %v, want %v", got, reduce.MaxCoord)
	}
}

func TestTSNEDeterministic(t *testing.T) {
	r, _ := reduce.New(reduce.TSNE, reduce.WithSeed(7))
	y1, err := r.Reduce(clusterData())
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	y2, err := r.Reduce(clusterData())
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if !mat.Equal(y1, y2) {
		t.Fatal("tsne output differs between identically seeded runs")
	}
}

func TestTSNETinyInputs(t *testing.T) {
	r, _ := reduce.New(reduce.TSNE)

	y, err := r.Reduce(mat.NewDense(1, 3, []float64{1, 2, 3}))
	if err != nil {
		t.Fatalf("Reduce single: %v", err)
	}
	if y.At(0, 0) != 0 || y.At(0, 1) != 0 {
		t.Fatalf("single point = (%v, %v), want origin", y.At(0, 0), y.At(0, 1))
	}

	y, err = r.Reduce(mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}))
	if err != nil {
		t.Fatalf("Reduce pair: %v", err)
	}
	if y.At(0, 0) != -reduce.MaxCoord || y.At(1, 0) != reduce.MaxCoord {
		t.Fatalf("pair = %v and %v, want ±%v on x", y.At(0, 0), y.At(1, 0), reduce.MaxCoord)
	}
}

func TestUMAPScaledToMaxCoord(t *testing.T) {
	r, err := reduce.New(reduce.UMAP)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	y, err := r.Reduce(clusterData())
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if got := maxAbs(y); math.Abs(got-reduce.MaxCoord) > 1e-9 {
		t.Fatalf("max |coord| = %v, want %v", got, reduce.MaxCoord)
	}
}

func TestUMAPDeterministic(t *testing.T) {
	r1, _ := reduce.New(reduce.UMAP, reduce.WithSeed(11))
	r2, _ := reduce.New(reduce.UMAP, reduce.WithSeed(11))
	y1, err := r1.Reduce(clusterData())
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	y2, err := r2.Reduce(clusterData())
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if !mat.Equal(y1, y2) {
		t.Fatal("umap output differs between identically seeded runs")
	}
}

func TestUMAPKeepsClustersApart(t *testing.T) {
	r, _ := reduce.New(reduce.UMAP)
	y, err := r.Reduce(clusterData())
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	// Within-cluster distances must stay below the cross-cluster distance.
	dist := func(i, j int) float64 {
		dx := y.At(i, 0) - y.At(j, 0)
		dy := y.At(i, 1) - y.At(j, 1)
		return math.Hypot(dx, dy)
	}
	within := math.Max(dist(0, 3), dist(4, 7))
	across := dist(0, 4)
	if across <= within {
		t.Fatalf("across = %v not larger than within = %v", across, within)
	}
}

func TestUMAPIdenticalRowsFinite(t *testing.T) {
	// Every row the same: distances are all zero. The layout must still
	// come back finite.
	x := mat.NewDense(5, 3, nil)
	for i := 0; i < 5; i++ {
		x.SetRow(i, []float64{1, 1, 1})
	}
	r, _ := reduce.New(reduce.UMAP)
	y, err := r.Reduce(x)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	rows, cols := y.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := y.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("y[%d][%d] = %v", i, j, v)
			}
		}
	}
}

func TestZeroLayoutSkipsRescale(t *testing.T) {
	// A single point embeds at the origin; rescaling a zero layout would
	// divide by zero, so it must be skipped.
	for _, m := range []reduce.Method{reduce.TSNE, reduce.UMAP} {
		r, _ := reduce.New(m)
		y, err := r.Reduce(mat.NewDense(1, 2, []float64{3, 4}))
		if err != nil {
			t.Fatalf("%s Reduce: %v", m, err)
		}
		if y.At(0, 0) != 0 || y.At(0, 1) != 0 {
			t.Errorf("%s single point = (%v, %v), want origin", m, y.At(0, 0), y.At(0, 1))
		}
	}
}
