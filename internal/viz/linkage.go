package viz

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Merge is one row of a hierarchical clustering linkage. Clusters 0..n-1 are
// the observations; merge i creates cluster n+i. Left < Right.
type Merge struct {
	Left, Right int
	Distance    float64
	Size        int
}

type cluster struct {
	size     int
	centroid []float64
}

func wardDistance(a, b *cluster) float64 {
	na, nb := float64(a.size), float64(b.size)
	return math.Sqrt(2*na*nb/(na+nb)) * floats.Distance(a.centroid, b.centroid, 2)
}

// WardLinkage clusters points agglomeratively with Ward's minimum variance
// criterion using the nearest-neighbour chain algorithm. The result is ordered
// by merge distance.
func WardLinkage(points [][]float64) []Merge {
	n := len(points)
	if n < 2 {
		return nil
	}

	// slot i holds the cluster containing observation i, or nil once merged away
	slots := make([]*cluster, n)
	for i, p := range points {
		slots[i] = &cluster{size: 1, centroid: append([]float64(nil), p...)}
	}

	type rawMerge struct {
		a, b     int
		distance float64
		size     int
	}
	merges := make([]rawMerge, 0, n-1)
	chain := make([]int, 0, n)
	active := n

	for active > 1 {
		if len(chain) == 0 {
			for i, c := range slots {
				if c != nil {
					chain = append(chain, i)
					break
				}
			}
		}

		a := chain[len(chain)-1]
		prev := -1
		if len(chain) > 1 {
			prev = chain[len(chain)-2]
		}

		best, bestDist := -1, math.Inf(1)
		if prev >= 0 {
			best, bestDist = prev, wardDistance(slots[a], slots[prev])
		}
		for i, c := range slots {
			if c == nil || i == a {
				continue
			}
			if d := wardDistance(slots[a], c); d < bestDist {
				best, bestDist = i, d
			}
		}

		if best != prev {
			chain = append(chain, best)
			continue
		}

		chain = chain[:len(chain)-2]
		ca, cb := slots[a], slots[best]
		size := ca.size + cb.size
		centroid := make([]float64, len(ca.centroid))
		for k := range centroid {
			centroid[k] = (float64(ca.size)*ca.centroid[k] + float64(cb.size)*cb.centroid[k]) / float64(size)
		}
		slots[a] = nil
		slots[best] = &cluster{size: size, centroid: centroid}
		merges = append(merges, rawMerge{a: a, b: best, distance: bestDist, size: size})
		active--
	}

	sort.SliceStable(merges, func(i, j int) bool { return merges[i].distance < merges[j].distance })

	// relabel slot representatives to cluster ids in merge order
	parent := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	out := make([]Merge, len(merges))
	for i, m := range merges {
		x, y := find(m.a), find(m.b)
		if x > y {
			x, y = y, x
		}
		id := n + i
		parent[x], parent[y] = id, id
		out[i] = Merge{Left: x, Right: y, Distance: m.distance, Size: m.size}
	}
	return out
}

// leafOrder returns the observations in left-to-right dendrogram order.
func leafOrder(merges []Merge, n int) []int {
	if n == 1 || len(merges) == 0 {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order
	}
	order := make([]int, 0, n)
	stack := []int{n + len(merges) - 1}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id < n {
			order = append(order, id)
			continue
		}
		m := merges[id-n]
		stack = append(stack, m.Right, m.Left)
	}
	return order
}
