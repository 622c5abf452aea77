package dpix

// StitchCosineThreshold is the minimum cosine between the current path
// direction and a candidate next segment for the two to be joined.
var StitchCosineThreshold float32 = 0.9

// adjacency is an undirected multigraph over vertex indices. Removing an
// edge swaps the last neighbor into its slot, so neighbor order changes
// as edges are consumed.
type adjacency [][]int

func newAdjacency(numVerts int, lines []int) adjacency {
	adj := make(adjacency, numVerts)
	for i := 0; i+1 < len(lines); i += 2 {
		a, b := lines[i], lines[i+1]
		// A segment from a vertex to itself cannot join a path.
		if a == b {
			continue
		}
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	return adj
}

func (adj adjacency) removeHalf(from, to int) {
	n := adj[from]
	for i, v := range n {
		if v == to {
			last := len(n) - 1
			n[i] = n[last]
			adj[from] = n[:last]
			return
		}
	}
}

func (adj adjacency) remove(a, b int) {
	adj.removeHalf(a, b)
	adj.removeHalf(b, a)
}

// StitchLines assembles the undirected segment pairs in lines into
// connected polylines. Each input edge (except self-loops) ends up in
// exactly one output path. At a branch the path continues along the
// segment whose direction deviates least from the current one, as long
// as the cosine exceeds StitchCosineThreshold.
func StitchLines(g *Geometry, lines []int, attr Attr) []*FixedPath {
	adj := newAdjacency(len(g.Vertices), lines)

	var paths []*FixedPath
	for v := range adj {
		for len(adj[v]) > 0 {
			next := adj[v][0]
			adj.remove(v, next)

			path := NewFixedPath(attr, v, next)
			followEdges(g, adj, path)
			path.Reverse()
			followEdges(g, adj, path)
			paths = append(paths, path)
		}
	}
	return paths
}

// followEdges extends path from its last vertex while a sufficiently
// straight continuation exists.
func followEdges(g *Geometry, adj adjacency, path *FixedPath) {
	for {
		n := len(path.Verts)
		last := path.Verts[n-1]
		dir := g.Vertices[last].Sub(g.Vertices[path.Verts[n-2]]).Normalize()

		best := -1
		bestCos := StitchCosineThreshold
		for _, cand := range adj[last] {
			c := g.Vertices[cand].Sub(g.Vertices[last]).Normalize().Dot(dir)
			if c > bestCos {
				best, bestCos = cand, c
			}
		}
		if best < 0 {
			return
		}
		adj.remove(last, best)
		path.Verts = append(path.Verts, best)
	}
}
