package hive

import (
	"container/heap"
	"sort"
)

// Graph is the validated dependency graph of a migration set.
//
// Graphs are derived and never persisted. A Graph returned by BuildGraph
// always has a complete Order: every node appears exactly once, after all
// of its dependencies.
type Graph struct {
	// Nodes maps migration id to its record.
	Nodes map[string]*Record `json:"-"`

	// Edges maps migration id to the ids it depends on.
	Edges map[string][]string `json:"edges"`

	// Order is a valid application order.
	Order []string `json:"order"`

	dependents map[string][]string
}

// Dependencies returns the ids id depends on directly.
func (g *Graph) Dependencies(id string) []string {
	return g.Edges[id]
}

// Dependents returns the ids that depend on id directly, sorted.
func (g *Graph) Dependents(id string) []string {
	return g.dependents[id]
}

// Records returns the records in application order.
func (g *Graph) Records() []*Record {
	out := make([]*Record, 0, len(g.Order))
	for _, id := range g.Order {
		out = append(out, g.Nodes[id])
	}
	return out
}

// Position returns the index of id in Order, or -1.
func (g *Graph) Position(id string) int {
	for i, o := range g.Order {
		if o == id {
			return i
		}
	}
	return -1
}

// BuildGraph converts a flat record list into a dependency graph and
// computes a deterministic application order.
//
// Every structural problem is collected before returning: duplicate ids,
// unknown dependencies, per-module sequence gaps and duplicates, and
// dependency cycles. If any is found, BuildGraph returns a nil graph and a
// *ValidationError listing all of them. A cyclic set never yields a graph.
//
// Nodes with no ordering constraint between them are ordered by
// (module, sequence, id).
func BuildGraph(records []*Record) (*Graph, error) {
	nodes, problems := indexRecords(records)
	problems = append(problems, checkReferences(nodes)...)
	problems = append(problems, checkSequences(records)...)

	edges := make(map[string][]string, len(nodes))
	for id, r := range nodes {
		edges[id] = r.Dependencies
	}

	order, cycle := topoSort(nodes)
	if cycle != nil {
		problems = append(problems, Problem{Kind: ProblemCycle, ID: cycle[0], Nodes: cycle})
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	return &Graph{
		Nodes:      nodes,
		Edges:      edges,
		Order:      order,
		dependents: reverseEdges(nodes),
	}, nil
}

// ValidateDependencies reports duplicate ids, unknown dependencies and
// per-module sequencing problems without attempting a topological sort.
// It never fails; an empty result means the set passed these checks.
func ValidateDependencies(records []*Record) []Problem {
	nodes, problems := indexRecords(records)
	problems = append(problems, checkReferences(nodes)...)
	problems = append(problems, checkSequences(records)...)
	return problems
}

// indexRecords keys records by id, keeping the first of any duplicates.
func indexRecords(records []*Record) (map[string]*Record, []Problem) {
	nodes := make(map[string]*Record, len(records))
	var problems []Problem
	reported := make(map[string]bool)

	for _, r := range records {
		if _, exists := nodes[r.ID]; exists {
			if !reported[r.ID] {
				problems = append(problems, Problem{Kind: ProblemDuplicateID, ID: r.ID, Module: r.Module})
				reported[r.ID] = true
			}
			continue
		}
		nodes[r.ID] = r
	}

	return nodes, problems
}

func checkReferences(nodes map[string]*Record) []Problem {
	var problems []Problem
	for _, id := range sortedIDs(nodes) {
		for _, dep := range nodes[id].Dependencies {
			if _, ok := nodes[dep]; !ok {
				problems = append(problems, Problem{Kind: ProblemUnknownDependency, ID: id, Dependency: dep})
			}
		}
	}
	return problems
}

// checkSequences asserts every module is numbered 1..N with no gaps and no
// duplicates.
func checkSequences(records []*Record) []Problem {
	byModule := make(map[string][]int)
	for _, r := range records {
		byModule[r.Module] = append(byModule[r.Module], r.Sequence)
	}

	modules := make([]string, 0, len(byModule))
	for m := range byModule {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	var problems []Problem
	for _, module := range modules {
		seqs := byModule[module]
		sort.Ints(seqs)

		next, prev := 1, 0
		for _, seq := range seqs {
			if seq == prev {
				problems = append(problems, Problem{Kind: ProblemSequenceDuplicate, Module: module, Sequence: seq})
				continue
			}
			for missing := next; missing < seq; missing++ {
				problems = append(problems, Problem{Kind: ProblemSequenceGap, Module: module, Sequence: missing})
			}
			next, prev = seq+1, seq
		}
	}
	return problems
}

// topoSort runs Kahn's algorithm over the depends-on relation. Unknown
// dependencies are ignored here (checkReferences reports them). When nodes
// remain after the queue drains, a cycle exists and one is returned.
func topoSort(nodes map[string]*Record) ([]string, []string) {
	pending := make(map[string]int, len(nodes))
	dependents := reverseEdges(nodes)

	queue := &recordHeap{}
	for id, r := range nodes {
		n := 0
		for _, dep := range r.Dependencies {
			if _, ok := nodes[dep]; ok {
				n++
			}
		}
		pending[id] = n
		if n == 0 {
			heap.Push(queue, r)
		}
	}

	order := make([]string, 0, len(nodes))
	for queue.Len() > 0 {
		r := heap.Pop(queue).(*Record)
		order = append(order, r.ID)
		for _, dep := range dependents[r.ID] {
			pending[dep]--
			if pending[dep] == 0 {
				heap.Push(queue, nodes[dep])
			}
		}
	}

	if len(order) == len(nodes) {
		return order, nil
	}
	return nil, findCycle(nodes, pending)
}

// findCycle walks dependencies among unresolved nodes until one repeats.
// Every unresolved node has an unresolved dependency, so the walk always
// closes a cycle. The result repeats the first node at the end.
func findCycle(nodes map[string]*Record, pending map[string]int) []string {
	var start string
	for _, id := range sortedIDs(nodes) {
		if pending[id] > 0 {
			start = id
			break
		}
	}

	seen := make(map[string]int)
	var path []string
	for id := start; ; {
		if i, ok := seen[id]; ok {
			return append(path[i:], id)
		}
		seen[id] = len(path)
		path = append(path, id)

		next := ""
		for _, dep := range nodes[id].Dependencies {
			if _, ok := nodes[dep]; ok && pending[dep] > 0 {
				next = dep
				break
			}
		}
		if next == "" {
			// Unreachable for a consistent pending map.
			return path
		}
		id = next
	}
}

func reverseEdges(nodes map[string]*Record) map[string][]string {
	dependents := make(map[string][]string, len(nodes))
	for _, id := range sortedIDs(nodes) {
		for _, dep := range nodes[id].Dependencies {
			if _, ok := nodes[dep]; ok {
				dependents[dep] = append(dependents[dep], id)
			}
		}
	}
	return dependents
}

func sortedIDs(nodes map[string]*Record) []string {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// recordHeap orders ready records by (module, sequence, id).
type recordHeap []*Record

func (h recordHeap) Len() int { return len(h) }

func (h recordHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.Module != b.Module {
		return a.Module < b.Module
	}
	if a.Sequence != b.Sequence {
		return a.Sequence < b.Sequence
	}
	return a.ID < b.ID
}

func (h recordHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *recordHeap) Push(x any) { *h = append(*h, x.(*Record)) }

func (h *recordHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	*h = old[:n-1]
	return r
}
