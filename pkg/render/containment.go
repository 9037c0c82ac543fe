package render

import (
	"github.com/matzehuels/elksvg/pkg/elk"
	"github.com/matzehuels/elksvg/pkg/errors"
)

// Containment indexes the node tree of one document: every node's parent,
// every node by id, and the node each port is attached to.
//
// A Containment is built per render and never mutated afterwards.
type Containment struct {
	root    string
	parents map[string]string
	nodes   map[string]*elk.Node
	ports   map[string]string
	order   []string
}

// IndexContainment walks the tree rooted at root in pre-order and records the
// parent of every descendant. The root has no parent entry.
//
// Every non-root node must carry an id and ids must be unique across the
// document; violations are reported as MALFORMED_GRAPH since they would make
// edge ownership ambiguous.
func IndexContainment(root *elk.Node) (*Containment, error) {
	if root == nil {
		return nil, errors.Malformed("document has no root node")
	}
	c := &Containment{
		root:    root.ID,
		parents: make(map[string]string),
		nodes:   make(map[string]*elk.Node),
		ports:   make(map[string]string),
	}
	c.nodes[root.ID] = root
	c.order = append(c.order, root.ID)
	if err := c.indexPorts(root); err != nil {
		return nil, err
	}
	if err := c.walk(root); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Containment) walk(parent *elk.Node) error {
	for i := range parent.Children {
		child := &parent.Children[i]
		if child.ID == "" {
			return errors.Malformed("child %d of %q has no id", i, parent.ID)
		}
		if _, dup := c.nodes[child.ID]; dup {
			return errors.Malformed("duplicate node id %q", child.ID)
		}
		c.nodes[child.ID] = child
		c.parents[child.ID] = parent.ID
		c.order = append(c.order, child.ID)
		if err := c.indexPorts(child); err != nil {
			return err
		}
		if err := c.walk(child); err != nil {
			return err
		}
	}
	return nil
}

func (c *Containment) indexPorts(n *elk.Node) error {
	for i, p := range n.Ports {
		if p.ID == "" {
			return errors.Malformed("port %d of %q has no id", i, n.ID)
		}
		if owner, dup := c.ports[p.ID]; dup {
			return errors.Malformed("port %q declared on both %q and %q", p.ID, owner, n.ID)
		}
		c.ports[p.ID] = n.ID
	}
	return nil
}

// Root returns the id of the root node.
func (c *Containment) Root() string { return c.root }

// Parent returns the id of the node's immediate parent. It reports false for
// the root and for unknown ids.
func (c *Containment) Parent(id string) (string, bool) {
	p, ok := c.parents[id]
	return p, ok
}

// Node returns the node with the given id.
func (c *Containment) Node(id string) (*elk.Node, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Len returns the number of indexed nodes, root included.
func (c *Containment) Len() int { return len(c.nodes) }

// IDs returns every node id in pre-order, root first.
func (c *Containment) IDs() []string {
	return append([]string(nil), c.order...)
}

// Resolve maps an edge endpoint to a node id. Node ids resolve to
// themselves; port ids resolve to the node the port is attached to.
func (c *Containment) Resolve(id string) (string, bool) {
	if _, ok := c.nodes[id]; ok {
		return id, true
	}
	if owner, ok := c.ports[id]; ok {
		return owner, true
	}
	return "", false
}

// IsDescendant reports whether id lies strictly below ancestor, walking id's
// parent chain upwards.
func (c *Containment) IsDescendant(ancestor, id string) bool {
	current := id
	for {
		p, ok := c.parents[current]
		if !ok {
			return false
		}
		if p == ancestor {
			return true
		}
		current = p
	}
}

// Depth returns the number of ancestors of id; the root has depth 0.
func (c *Containment) Depth(id string) int {
	d := 0
	for {
		p, ok := c.parents[id]
		if !ok {
			return d
		}
		d++
		id = p
	}
}
