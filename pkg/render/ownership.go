package render

import (
	"github.com/matzehuels/elksvg/pkg/elk"
	"github.com/matzehuels/elksvg/pkg/errors"
)

// Ownership maps every container id to the edges whose points are expressed
// in that container's frame, in declaration order.
type Ownership struct {
	edges map[string][]*elk.Edge
	owner map[*elk.Edge]string
}

// ResolveOwnership assigns every edge declared anywhere under root to exactly
// one container:
//
//   - if the target lies below the source, the edge is drawn in the source's
//     own frame and the source owns it;
//   - otherwise it is drawn in the frame of the source's parent.
//
// Endpoints naming a port resolve to the port's node. An unknown endpoint, or
// an edge leaving the root (there is no frame above it), fails the whole
// document with MALFORMED_GRAPH.
func ResolveOwnership(root *elk.Node, idx *Containment) (Ownership, error) {
	o := Ownership{
		edges: make(map[string][]*elk.Edge, idx.Len()),
		owner: make(map[*elk.Edge]string),
	}
	for _, id := range idx.order {
		o.edges[id] = []*elk.Edge{}
	}
	if err := o.collect(root, idx); err != nil {
		return Ownership{}, err
	}
	return o, nil
}

func (o Ownership) collect(n *elk.Node, idx *Containment) error {
	for i := range n.Edges {
		e := &n.Edges[i]
		owner, err := ownerOf(e, idx)
		if err != nil {
			return err
		}
		o.edges[owner] = append(o.edges[owner], e)
		o.owner[e] = owner
	}
	for i := range n.Children {
		if err := o.collect(&n.Children[i], idx); err != nil {
			return err
		}
	}
	return nil
}

func ownerOf(e *elk.Edge, idx *Containment) (string, error) {
	src, ok := idx.Resolve(e.SourceID())
	if !ok {
		return "", errors.Malformed("edge %q: unknown source %q", e.ID, e.SourceID())
	}
	tgt, ok := idx.Resolve(e.TargetID())
	if !ok {
		return "", errors.Malformed("edge %q: unknown target %q", e.ID, e.TargetID())
	}
	if idx.IsDescendant(src, tgt) {
		return src, nil
	}
	parent, ok := idx.Parent(src)
	if !ok {
		return "", errors.Malformed("edge %q: source %q has no parent frame", e.ID, src)
	}
	return parent, nil
}

// Edges returns the edges owned by the container. Every indexed node has an
// entry, possibly empty; an unknown id is an invariant violation.
func (o Ownership) Edges(containerID string) ([]*elk.Edge, error) {
	edges, ok := o.edges[containerID]
	if !ok {
		return nil, errors.Malformed("no ownership entry for container %q", containerID)
	}
	return edges, nil
}

// Owner returns the id of the container owning e.
func (o Ownership) Owner(e *elk.Edge) (string, bool) {
	id, ok := o.owner[e]
	return id, ok
}

// Len returns the number of resolved edges.
func (o Ownership) Len() int { return len(o.owner) }
