// Package graph provides the small directed-graph algorithms the alias
// engine needs: strongly-connected-component decomposition and reverse
// post-order traversal. Nodes are dense ints.
package graph

// SCC computes the strongly connected components of the graph with nodes
// 0..n-1 and successor function succs, using Tarjan's algorithm. It
// returns the component index of every node and the member list of every
// component. Members are listed in ascending node order; iteration is
// deterministic given a deterministic succs.
func SCC(n int, succs func(int) []int) (comp []int, members [][]int) {
	comp = make([]int, n)
	for i := range comp {
		comp[i] = -1
	}

	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}

	var stack []int
	next := 0

	var strongconnect func(v int)
	strongconnect = func(v int) {
		index[v] = next
		lowlink[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range succs(v) {
			if index[w] == -1 {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] && index[w] < lowlink[v] {
				lowlink[v] = index[w]
			}
		}

		if lowlink[v] == index[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp[w] = len(members)
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			// Tarjan pops in reverse discovery order; normalize for
			// deterministic iteration by callers.
			sortInts(scc)
			members = append(members, scc)
		}
	}

	for v := 0; v < n; v++ {
		if index[v] == -1 {
			strongconnect(v)
		}
	}
	return comp, members
}

// ReversePostOrder returns the nodes reachable from root in reverse
// post-order, which is a topological order when the graph is acyclic.
func ReversePostOrder(n int, succs func(int) []int, root int) []int {
	visited := make([]bool, n)
	var post []int

	var visit func(v int)
	visit = func(v int) {
		visited[v] = true
		for _, w := range succs(v) {
			if !visited[w] {
				visit(w)
			}
		}
		post = append(post, v)
	}
	visit(root)

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

func sortInts(xs []int) {
	// insertion sort; component sizes are tiny
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}
