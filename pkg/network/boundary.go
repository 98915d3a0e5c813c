package network

// BoundaryInfo estimates, for each child node, the aggregate net power of the
// external sub-network electrically reachable from that child without
// re-entering the operational area.
//
// For child c the estimate starts at P(c). Every neighbor of c outside the
// operational set seeds a breadth-first traversal over external nodes only;
// each newly visited node contributes its P and the traversal continues to
// its external neighbors. Children sharing external neighbors each run their
// own traversal, so their sums may overlap; that is intended, as each child
// reports the demand it alone could be asked to serve.
//
// The result maps child ID to the per-unit power sum. Nodes absent from
// children are absent from the result.
func BoundaryInfo(g *Graph, operational map[int]bool, children map[int]bool) map[int]float64 {
	nodePower := func(id int) float64 {
		n, ok := g.Node(id)
		if !ok {
			return 0
		}
		return n.P
	}

	info := make(map[int]float64, len(children))
	for c := range children {
		if !g.HasNode(c) {
			continue
		}
		total := nodePower(c)
		seen := map[int]bool{c: true}

		for _, v := range g.Neighbors(c) {
			if operational[v] || seen[v] {
				continue
			}
			queue := []int{v}
			for len(queue) > 0 {
				u := queue[0]
				queue = queue[1:]
				if seen[u] || operational[u] {
					continue
				}
				seen[u] = true
				total += nodePower(u)
				for _, w := range g.Neighbors(u) {
					if !seen[w] && !operational[w] {
						queue = append(queue, w)
					}
				}
			}
		}
		info[c] = total
	}
	return info
}
