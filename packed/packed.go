// Package packed maps the indices of symmetric matrices and symmetric
// third-order tensors onto the one-dimensional arrays used by the dual number
// engines.
//
// A symmetric n×n matrix is stored as its upper triangle, row by row:
//
//	(0,0) (0,1) ... (0,n-1) (1,1) (1,2) ... (n-1,n-1)
//
// A symmetric n×n×n tensor is stored the same way for i ≤ j ≤ k. The reduced
// layout only keeps the slabs with i < n0, which is how the extended dual
// numbers trade completeness of the third derivatives for speed.
//
// Every function panics on out-of-range arguments. Index errors here would
// silently corrupt derivatives, so they are never clamped.
package packed

import "fmt"

// TriangleSize returns n(n+1)/2, the number of entries in the upper triangle
// of an n×n matrix.
func TriangleSize(n int) int {
	if n < 0 {
		panic(fmt.Sprintf("packed: negative dimension %d", n))
	}
	return n * (n + 1) / 2
}

// TriangleIndex returns the offset of entry (i,j) of a packed symmetric n×n
// matrix. The arguments may be given in either order.
func TriangleIndex(n, i, j int) int {
	if i > j {
		i, j = j, i
	}
	if n < 0 || i < 0 || j >= n {
		panic(fmt.Sprintf("packed: index (%d,%d) out of range for dimension %d", i, j, n))
	}
	// Same as TriangleSize(n) - TriangleSize(n-i) + j - i.
	return i*(1-i)/2 + i*n + j - i
}

// TetraSize returns n(n+1)(n+2)/6, the number of entries i ≤ j ≤ k of a
// symmetric n×n×n tensor.
func TetraSize(n int) int {
	if n < 0 {
		panic(fmt.Sprintf("packed: negative dimension %d", n))
	}
	return n * (n + 1) * (n + 2) / 6
}

// ReducedSize returns the number of entries i ≤ j ≤ k < n with i < n0.
func ReducedSize(n, n0 int) int {
	if n0 < 0 || n0 > n {
		panic(fmt.Sprintf("packed: tracked prefix %d out of range for dimension %d", n0, n))
	}
	return TetraSize(n) - TetraSize(n-n0)
}

// ReducedIndex returns the offset of entry (i,j,k) in the reduced third-order
// layout. The indices may be given in any order; after sorting, the smallest
// one must be below n0.
//
// The slab for a leading index i holds the (n-i)(n-i+1)/2 pairs i ≤ j ≤ k, so
// the slabs before i add up to TetraSize(n) - TetraSize(n-i). Within the slab
// the pairs are laid out as a packed triangle of dimension n-i.
func ReducedIndex(n, n0, i, j, k int) int {
	i, j, k = sort3(i, j, k)
	if n0 < 0 || n0 > n || i < 0 || i >= n0 || k >= n {
		panic(fmt.Sprintf("packed: index (%d,%d,%d) out of range for dimension %d with %d tracked", i, j, k, n, n0))
	}
	return TetraSize(n) - TetraSize(n-i) + TriangleIndex(n-i, j-i, k-i)
}

// Covered reports whether (i,j,k) has an entry in the reduced layout, that is
// whether the smallest index is below n0.
func Covered(n0, i, j, k int) bool {
	i, _, _ = sort3(i, j, k)
	return i < n0
}

func sort3(i, j, k int) (int, int, int) {
	if i > j {
		i, j = j, i
	}
	if j > k {
		j, k = k, j
	}
	if i > j {
		i, j = j, i
	}
	return i, j, k
}
