// Package morse implements Morse-Smale clustering: rows are partitioned by
// the pair of density extrema their gradient flows reach on a k-nearest
// neighbor graph, and shallow extrema are merged away by persistence.
package morse

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Config contains the clustering hyperparameters. All were hand-chosen for
// the reference dataset and are surfaced through the YAML config.
type Config struct {
	Neighbors   int     `yaml:"neighbors"`   // kNN graph degree, default 15
	Bandwidth   float64 `yaml:"bandwidth"`   // Gaussian KDE bandwidth in z-scored units, default 0.5
	Persistence float64 `yaml:"persistence"` // merge threshold as a fraction of the density range, default 0.05
}

// DefaultConfig returns the hand-tuned clustering configuration.
func DefaultConfig() Config {
	return Config{Neighbors: 15, Bandwidth: 0.5, Persistence: 0.05}
}

// Crystal summarizes one Morse-Smale cell.
type Crystal struct {
	ID         int       `json:"id"`
	Size       int       `json:"size"`
	MaxRow     int       `json:"max_row"`     // row index of the attracting density maximum
	MinRow     int       `json:"min_row"`     // row index of the attracting density minimum
	MaxDensity float64   `json:"max_density"`
	MinDensity float64   `json:"min_density"`
	Means      []float64 `json:"means"` // per-column means in original units
}

// Result contains the full decomposition.
type Result struct {
	Assignments []int     `json:"assignments"` // crystal ID per row
	Crystals    []Crystal `json:"crystals"`
	Density     []float64 `json:"density"` // kernel density estimate per row
}

// Clusterer runs the decomposition over a fixed configuration.
type Clusterer struct {
	cfg Config
}

// New creates a clusterer with the given configuration.
func New(cfg Config) (*Clusterer, error) {
	if cfg.Neighbors < 2 {
		return nil, fmt.Errorf("morse: neighbors must be >= 2, got %d", cfg.Neighbors)
	}
	if cfg.Bandwidth <= 0 {
		return nil, fmt.Errorf("morse: bandwidth must be positive, got %g", cfg.Bandwidth)
	}
	if cfg.Persistence < 0 || cfg.Persistence >= 1 {
		return nil, fmt.Errorf("morse: persistence must be in [0,1), got %g", cfg.Persistence)
	}
	return &Clusterer{cfg: cfg}, nil
}

// Cluster decomposes the rows of data. Columns are standardized internally;
// crystal means are reported in original units.
func (c *Clusterer) Cluster(data *mat.Dense) (*Result, error) {
	n, d := data.Dims()
	if n <= c.cfg.Neighbors {
		return nil, fmt.Errorf("morse: %d rows is not enough for %d neighbors", n, c.cfg.Neighbors)
	}

	points := standardize(data)

	// Dense pairwise distances: the datasets here are single CSV files, so
	// the quadratic table is affordable and keeps the flow code simple.
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dv := euclid(points[i], points[j])
			dist[i][j] = dv
			dist[j][i] = dv
		}
	}

	neighbors := nearestNeighbors(dist, c.cfg.Neighbors)
	density := kernelDensity(dist, c.cfg.Bandwidth)

	up := flowLabels(neighbors, density, true)
	down := flowLabels(neighbors, density, false)

	level := c.cfg.Persistence * densityRange(density)
	mergeByPersistence(up, neighbors, density, level, true)
	mergeByPersistence(down, neighbors, density, level, false)

	return buildResult(data, n, d, up, down, density), nil
}

func standardize(data *mat.Dense) [][]float64 {
	n, d := data.Dims()
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, d)
	}
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, data)
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 {
			std = 1 // constant column carries no shape
		}
		for i := 0; i < n; i++ {
			points[i][j] = (col[i] - mean) / std
		}
	}
	return points
}

func euclid(a, b []float64) float64 {
	var s float64
	for i := range a {
		dv := a[i] - b[i]
		s += dv * dv
	}
	return math.Sqrt(s)
}

func nearestNeighbors(dist [][]float64, k int) [][]int {
	n := len(dist)
	out := make([][]int, n)
	idx := make([]int, n)
	for i := 0; i < n; i++ {
		for j := range idx {
			idx[j] = j
		}
		row := dist[i]
		self := i
		sort.Slice(idx, func(a, b int) bool {
			if row[idx[a]] == row[idx[b]] {
				return idx[a] < idx[b]
			}
			return row[idx[a]] < row[idx[b]]
		})
		nn := make([]int, 0, k)
		for _, j := range idx {
			if j == self {
				continue
			}
			nn = append(nn, j)
			if len(nn) == k {
				break
			}
		}
		out[i] = nn
	}
	return out
}

// kernelDensity is an unnormalized Gaussian KDE; only the ordering and
// relative gaps matter for the flow and persistence steps.
func kernelDensity(dist [][]float64, h float64) []float64 {
	n := len(dist)
	density := make([]float64, n)
	for i := 0; i < n; i++ {
		var s float64
		for j := 0; j < n; j++ {
			s += math.Exp(-dist[i][j] * dist[i][j] / (2 * h * h))
		}
		density[i] = s / float64(n)
	}
	return density
}

// flowLabels follows the steepest discrete gradient through the neighbor
// graph and labels each point with the extremum it reaches. ascending=true
// flows toward maxima, false toward minima.
func flowLabels(neighbors [][]int, density []float64, ascending bool) []int {
	n := len(density)
	next := make([]int, n)
	for i := 0; i < n; i++ {
		best := i
		for _, j := range neighbors[i] {
			if ascending {
				if density[j] > density[best] {
					best = j
				}
			} else {
				if density[j] < density[best] {
					best = j
				}
			}
		}
		next[i] = best
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	for i := 0; i < n; i++ {
		// Strictly monotone density along the path rules out cycles.
		path := []int{}
		cur := i
		for labels[cur] < 0 && next[cur] != cur {
			path = append(path, cur)
			cur = next[cur]
		}
		term := labels[cur]
		if term < 0 {
			term = cur
		}
		labels[cur] = term
		for _, p := range path {
			labels[p] = term
		}
	}
	return labels
}

func densityRange(density []float64) float64 {
	lo, hi := density[0], density[0]
	for _, v := range density {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// mergeByPersistence repeatedly removes the shallowest extremum whose
// persistence (density gap between the extremum and its highest connecting
// saddle) falls below level, relabeling its basin into the basin it saddles
// into.
func mergeByPersistence(labels []int, neighbors [][]int, density []float64, level float64, ascending bool) {
	if level <= 0 {
		return
	}
	n := len(labels)

	for {
		// Highest saddle between each pair of adjacent basins.
		type pair struct{ a, b int }
		saddle := map[pair]float64{}
		for i := 0; i < n; i++ {
			for _, j := range neighbors[i] {
				a, b := labels[i], labels[j]
				if a == b {
					continue
				}
				if a > b {
					a, b = b, a
				}
				s := math.Min(density[i], density[j])
				if !ascending {
					s = math.Max(density[i], density[j])
				}
				key := pair{a, b}
				cur, ok := saddle[key]
				if !ok || (ascending && s > cur) || (!ascending && s < cur) {
					saddle[key] = s
				}
			}
		}

		// Persistence of each extremum against its best-connected neighbor
		// basin with a more extreme peak.
		bestTarget := map[int]int{}
		bestPersist := map[int]float64{}
		for key, s := range saddle {
			for _, ord := range [2][2]int{{key.a, key.b}, {key.b, key.a}} {
				from, to := ord[0], ord[1]
				if ascending && density[to] <= density[from] {
					continue
				}
				if !ascending && density[to] >= density[from] {
					continue
				}
				p := density[from] - s
				if !ascending {
					p = s - density[from]
				}
				cur, ok := bestPersist[from]
				if !ok || p < cur || (p == cur && to < bestTarget[from]) {
					bestPersist[from] = p
					bestTarget[from] = to
				}
			}
		}

		victim, minP := -1, math.Inf(1)
		for ext, p := range bestPersist {
			if p < minP || (p == minP && ext < victim) {
				victim, minP = ext, p
			}
		}
		if victim < 0 || minP >= level {
			return
		}

		target := bestTarget[victim]
		for i := range labels {
			if labels[i] == victim {
				labels[i] = target
			}
		}
	}
}

func buildResult(data *mat.Dense, n, d int, up, down []int, density []float64) *Result {
	type cell struct{ maxRep, minRep int }
	ids := map[cell]int{}
	var order []cell
	for i := 0; i < n; i++ {
		key := cell{up[i], down[i]}
		if _, ok := ids[key]; !ok {
			ids[key] = -1
			order = append(order, key)
		}
	}
	// Deterministic IDs: strongest attracting maximum first.
	sort.Slice(order, func(a, b int) bool {
		if density[order[a].maxRep] != density[order[b].maxRep] {
			return density[order[a].maxRep] > density[order[b].maxRep]
		}
		return density[order[a].minRep] < density[order[b].minRep]
	})
	for id, key := range order {
		ids[key] = id
	}

	crystals := make([]Crystal, len(order))
	for id, key := range order {
		crystals[id] = Crystal{
			ID:         id,
			MaxRow:     key.maxRep,
			MinRow:     key.minRep,
			MaxDensity: density[key.maxRep],
			MinDensity: density[key.minRep],
			Means:      make([]float64, d),
		}
	}

	assignments := make([]int, n)
	for i := 0; i < n; i++ {
		id := ids[cell{up[i], down[i]}]
		assignments[i] = id
		crystals[id].Size++
		for j := 0; j < d; j++ {
			crystals[id].Means[j] += data.At(i, j)
		}
	}
	for id := range crystals {
		for j := 0; j < d; j++ {
			crystals[id].Means[j] /= float64(crystals[id].Size)
		}
	}

	return &Result{Assignments: assignments, Crystals: crystals, Density: density}
}
