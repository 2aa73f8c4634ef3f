package cluster

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrInsufficientSeries is returned when fewer than two series are
// available to cluster.
var ErrInsufficientSeries = errors.New("clustering needs at least two series")

// Assignment maps series names to cluster ids in [1, K].
type Assignment struct {
	K      int            `json:"k"`
	ByName map[string]int `json:"by_name"`
	// Order is the input order of the clustered series.
	Order []string `json:"order"`
}

// Members returns the series of cluster id in input order.
func (a *Assignment) Members(id int) []string {
	var out []string
	for _, name := range a.Order {
		if a.ByName[name] == id {
			out = append(out, name)
		}
	}
	return out
}

// IDs returns the cluster ids in ascending order.
func (a *Assignment) IDs() []int {
	ids := make([]int, a.K)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

// DefaultK is min(3, n).
func DefaultK(n int) int {
	return min(3, n)
}

// Standardize scales each feature column to mean 0 and sample standard
// deviation 1. A column with zero spread becomes all zeros.
func Standardize(features []Features) [][]float64 {
	n := len(features)
	out := make([][]float64, n)
	for i, f := range features {
		out[i] = f.vector()
	}
	if n == 0 {
		return out
	}

	col := make([]float64, n)
	for j := range out[0] {
		for i := range out {
			col[i] = out[i][j]
		}
		mean, sd := stat.MeanStdDev(col, nil)
		for i := range out {
			if sd == 0 || math.IsNaN(sd) {
				out[i][j] = 0
			} else {
				out[i][j] = (out[i][j] - mean) / sd
			}
		}
	}
	return out
}

type node struct {
	leaves  []int
	minLeaf int
}

// Cluster groups the series by average-linkage agglomeration over Euclidean
// distances between standardised features, stopping at k clusters. k <= 0
// selects DefaultK and k is capped at the number of series. Ties merge the
// pair with the lowest leaf indices first, so the result depends only on the
// input. Ids are numbered by first appearance in input order.
func Cluster(features []Features, k int) (*Assignment, error) {
	n := len(features)
	if n < 2 {
		return nil, fmt.Errorf("%w: have %d", ErrInsufficientSeries, n)
	}
	seen := make(map[string]bool, n)
	for _, f := range features {
		if seen[f.Series] {
			return nil, fmt.Errorf("duplicate series %q", f.Series)
		}
		seen[f.Series] = true
	}
	if k <= 0 {
		k = DefaultK(n)
	}
	k = min(k, n)

	points := Standardize(features)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			dist[i][j] = floats.Distance(points[i], points[j], 2)
		}
	}

	clusters := make([]*node, n)
	for i := range clusters {
		clusters[i] = &node{leaves: []int{i}, minLeaf: i}
	}

	for len(clusters) > k {
		bestI, bestJ := 0, 1
		bestD := averageLinkage(dist, clusters[0], clusters[1])
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				d := averageLinkage(dist, clusters[i], clusters[j])
				if d < bestD || (d == bestD && pairLess(clusters[i], clusters[j], clusters[bestI], clusters[bestJ])) {
					bestD, bestI, bestJ = d, i, j
				}
			}
		}

		a, b := clusters[bestI], clusters[bestJ]
		leaves := append(append(make([]int, 0, len(a.leaves)+len(b.leaves)), a.leaves...), b.leaves...)
		sort.Ints(leaves)
		merged := &node{leaves: leaves, minLeaf: leaves[0]}

		next := make([]*node, 0, len(clusters)-1)
		for c := range clusters {
			if c != bestI && c != bestJ {
				next = append(next, clusters[c])
			}
		}
		clusters = append(next, merged)
	}

	owner := make([]int, n)
	for c, cl := range clusters {
		for _, leaf := range cl.leaves {
			owner[leaf] = c
		}
	}

	assign := &Assignment{K: k, ByName: make(map[string]int, n), Order: make([]string, n)}
	ids := make(map[int]int, k)
	for i, f := range features {
		id, ok := ids[owner[i]]
		if !ok {
			id = len(ids) + 1
			ids[owner[i]] = id
		}
		assign.ByName[f.Series] = id
		assign.Order[i] = f.Series
	}
	return assign, nil
}

func averageLinkage(dist [][]float64, a, b *node) float64 {
	var sum float64
	for _, i := range a.leaves {
		for _, j := range b.leaves {
			sum += dist[i][j]
		}
	}
	return sum / float64(len(a.leaves)*len(b.leaves))
}

// pairLess orders cluster pairs by their smaller then larger minimum leaf.
func pairLess(a1, b1, a2, b2 *node) bool {
	x1, y1 := a1.minLeaf, b1.minLeaf
	if y1 < x1 {
		x1, y1 = y1, x1
	}
	x2, y2 := a2.minLeaf, b2.minLeaf
	if y2 < x2 {
		x2, y2 = y2, x2
	}
	if x1 != x2 {
		return x1 < x2
	}
	return y1 < y2
}
