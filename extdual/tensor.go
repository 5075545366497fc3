package extdual

import "fmt"

// Tensor is a dense read-only n0×n×n view of third derivatives. The first
// index ranges over the tracked prefix only.
type Tensor struct {
	n0, n int
	data  []float64
}

func newTensor(n, n0 int, third []float64) *Tensor {
	t := &Tensor{n0: n0, n: n, data: make([]float64, n0*n*n)}
	for i, m := 0, 0; i < n0; i++ {
		for j := i; j < n; j++ {
			for k := j; k < n; k, m = k+1, m+1 {
				v := third[m]
				t.set(i, j, k, v)
				t.set(i, k, j, v)
				if j < n0 {
					t.set(j, i, k, v)
					t.set(j, k, i, v)
				}
				if k < n0 {
					t.set(k, i, j, v)
					t.set(k, j, i, v)
				}
			}
		}
	}
	return t
}

func (t *Tensor) set(i, j, k int, v float64) {
	t.data[(i*t.n+j)*t.n+k] = v
}

// Dims returns the extents of the three axes.
func (t *Tensor) Dims() (n0, n1, n2 int) { return t.n0, t.n, t.n }

// At returns entry (i,j,k). It panics when i ≥ n0 or j, k ≥ n.
func (t *Tensor) At(i, j, k int) float64 {
	if i < 0 || i >= t.n0 || j < 0 || j >= t.n || k < 0 || k >= t.n {
		panic(fmt.Sprintf("extdual: tensor index (%d,%d,%d) out of range %d×%d×%d", i, j, k, t.n0, t.n, t.n))
	}
	return t.data[(i*t.n+j)*t.n+k]
}
