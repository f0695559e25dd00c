package hierarchy

import (
	"sort"
)

// Graph is an in-memory snapshot of the live edges of one organization.
type Graph struct {
	up   map[string][]Edge
	down map[string][]Edge
}

// NewGraph indexes the live edges. Inactive and deleted edges are ignored.
func NewGraph(edges []Edge) *Graph {
	g := &Graph{up: map[string][]Edge{}, down: map[string][]Edge{}}
	live := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.Live() {
			live = append(live, e)
		}
	}
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].CreatedAt.Equal(live[j].CreatedAt) {
			return live[i].ID < live[j].ID
		}
		return live[i].CreatedAt.Before(live[j].CreatedAt)
	})
	for _, e := range live {
		g.up[e.StaffID] = append(g.up[e.StaffID], e)
		g.down[e.ReportsToID] = append(g.down[e.ReportsToID], e)
	}
	return g
}

// IsManagerOf reports a direct edge staffID -> candidateManagerID. It is not transitive.
func (g *Graph) IsManagerOf(candidateManagerID, staffID string) bool {
	for _, e := range g.up[staffID] {
		if e.ReportsToID == candidateManagerID {
			return true
		}
	}
	return false
}

func (g *Graph) SubordinatesOf(managerID string) []string {
	ids := make([]string, 0, len(g.down[managerID]))
	for _, e := range g.down[managerID] {
		ids = append(ids, e.StaffID)
	}
	return uniqueSorted(ids)
}

func (g *Graph) ManagersOf(staffID string) []string {
	ids := make([]string, 0, len(g.up[staffID]))
	for _, e := range g.up[staffID] {
		ids = append(ids, e.ReportsToID)
	}
	return uniqueSorted(ids)
}

// PrimaryManagerOf returns the target of the oldest primary edge.
func (g *Graph) PrimaryManagerOf(staffID string) (string, bool) {
	for _, e := range g.up[staffID] {
		if e.RelationshipKind == KindPrimary {
			return e.ReportsToID, true
		}
	}
	return "", false
}

// PeersOf returns the staff whose primary manager is staffID's primary manager.
func (g *Graph) PeersOf(staffID string) []string {
	manager, ok := g.PrimaryManagerOf(staffID)
	if !ok {
		return nil
	}
	var ids []string
	for _, e := range g.down[manager] {
		if e.StaffID == staffID || e.RelationshipKind != KindPrimary {
			continue
		}
		if pm, _ := g.PrimaryManagerOf(e.StaffID); pm == manager {
			ids = append(ids, e.StaffID)
		}
	}
	return uniqueSorted(ids)
}

// WouldCreateCycle reports whether adding proposedStaffID -> proposedManagerID
// would make someone reachable from themselves. It walks the reporting chain
// upward from the proposed manager with an explicit stack and visited set.
func (g *Graph) WouldCreateCycle(proposedManagerID, proposedStaffID string) bool {
	if proposedManagerID == proposedStaffID {
		return true
	}
	visited := map[string]struct{}{proposedManagerID: {}}
	stack := []string{proposedManagerID}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.up[current] {
			next := e.ReportsToID
			if next == proposedStaffID {
				return true
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			stack = append(stack, next)
		}
	}
	return false
}

// Tree arranges members along primary edges. Nodes live in a flat index and
// are attached breadth-first from the roots, so anomalous cycles cannot recurse.
// Members left unreached are returned as extra roots.
func (g *Graph) Tree(members []TreeNode) []*TreeNode {
	nodes := make(map[string]*TreeNode, len(members))
	order := make([]string, 0, len(members))
	for _, m := range members {
		if _, dup := nodes[m.StaffID]; dup {
			continue
		}
		nodes[m.StaffID] = &TreeNode{StaffID: m.StaffID, Name: m.Name, Children: []*TreeNode{}}
		order = append(order, m.StaffID)
	}

	children := make(map[string][]string, len(nodes))
	hasParent := make(map[string]bool, len(nodes))
	for _, id := range order {
		manager, ok := g.PrimaryManagerOf(id)
		if !ok {
			continue
		}
		if _, inScope := nodes[manager]; !inScope {
			continue
		}
		children[manager] = append(children[manager], id)
		hasParent[id] = true
	}

	var roots []*TreeNode
	placed := make(map[string]bool, len(nodes))
	attach := func(rootID string) {
		placed[rootID] = true
		roots = append(roots, nodes[rootID])
		queue := []string{rootID}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			for _, child := range children[current] {
				if placed[child] {
					continue
				}
				placed[child] = true
				nodes[current].Children = append(nodes[current].Children, nodes[child])
				queue = append(queue, child)
			}
		}
	}
	for _, id := range order {
		if !hasParent[id] {
			attach(id)
		}
	}
	for _, id := range order {
		if !placed[id] {
			attach(id)
		}
	}
	return roots
}

func uniqueSorted(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
