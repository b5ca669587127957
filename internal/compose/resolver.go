package compose

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Tags with special meaning during resolution.
const (
	mergeTag = "!!merge"
	resetTag = "!reset"
)

// resetMarker is the internal sentinel produced by the !reset tag.
// The compositor deletes any key whose override value is a reset marker.
type resetMarker struct{}

// IsReset reports whether a resolved value is the key-deletion sentinel.
func IsReset(v any) bool {
	_, ok := v.(resetMarker)
	return ok
}

// Resolve expands all aliases and merge keys in the document and returns
// the fully resolved tree. Anchored subtrees are resolved once and
// memoized; plain alias references share the resolved subtree, while
// merge-key expansion copies at the merge boundary. Anchor cycles fail
// with a CycleError naming the participating anchors.
func (d *Document) Resolve() (map[string]any, error) {
	r := &resolver{doc: d, active: make(map[string]bool)}

	v, err := r.convert(d.root)
	if err != nil {
		return nil, err
	}

	if v == nil {
		return map[string]any{}, nil
	}

	tree, ok := v.(map[string]any)
	if !ok {
		return nil, &ParseError{
			Source: d.Name,
			Err:    fmt.Errorf("top-level value must be a mapping, got %T", v),
		}
	}

	return tree, nil
}

// resolver tracks in-progress anchors for cycle detection during a
// single Resolve call. Memoized results live on the Document so repeated
// references to a shared template resolve once.
type resolver struct {
	doc    *Document
	stack  []string
	active map[string]bool
}

func (r *resolver) convert(n *yaml.Node) (any, error) {
	if n == nil {
		return nil, nil
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return r.convert(n.Content[0])

	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, &ParseError{
				Source: r.doc.Name,
				Err:    fmt.Errorf("alias *%s has no anchor", n.Value),
			}
		}
		return r.anchored(n.Alias)

	default:
		if n.Anchor != "" {
			return r.anchored(n)
		}
		return r.convertPlain(n)
	}
}

// anchored resolves an anchored node with memoization and cycle
// detection. A reference to an anchor whose resolution is still in
// progress is, directly or transitively, a self-reference.
func (r *resolver) anchored(n *yaml.Node) (any, error) {
	name := n.Anchor

	if r.active[name] {
		return nil, &CycleError{
			Kind:  CycleAnchor,
			Names: append(append([]string{}, r.stack...), name),
		}
	}

	if v, ok := r.doc.memo[n]; ok {
		return v, nil
	}

	r.active[name] = true
	r.stack = append(r.stack, name)

	v, err := r.convertPlain(n)

	r.stack = r.stack[:len(r.stack)-1]
	delete(r.active, name)

	if err != nil {
		return nil, err
	}

	r.doc.memo[n] = v
	return v, nil
}

// convertPlain converts a node by kind, ignoring its anchor.
func (r *resolver) convertPlain(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return r.scalar(n)

	case yaml.SequenceNode:
		seq := make([]any, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := r.convert(child)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil

	case yaml.MappingNode:
		return r.mapping(n)

	default:
		return nil, &ParseError{
			Source: r.doc.Name,
			Err:    fmt.Errorf("unsupported node kind %d at line %d", n.Kind, n.Line),
		}
	}
}

func (r *resolver) scalar(n *yaml.Node) (any, error) {
	if n.Tag == resetTag {
		return resetMarker{}, nil
	}

	var v any
	if err := n.Decode(&v); err != nil {
		return nil, &ParseError{Source: r.doc.Name, Err: err}
	}
	return v, nil
}

// mapping converts a mapping node. Merge-key sources are deep-merged in
// order (later entries override earlier ones), and literal sibling keys
// are applied last, overriding anything the merge provided.
func (r *resolver) mapping(n *yaml.Node) (any, error) {
	var merged map[string]any
	type pair struct {
		key string
		val any
	}
	var literals []pair

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode := n.Content[i]
		valNode := n.Content[i+1]

		if keyNode.Tag == mergeTag || keyNode.Value == "<<" {
			sources, err := r.mergeSources(valNode)
			if err != nil {
				return nil, err
			}
			for _, src := range sources {
				if merged == nil {
					merged = make(map[string]any)
				}
				merged = mergeTrees(merged, src)
			}
			continue
		}

		v, err := r.convert(valNode)
		if err != nil {
			return nil, err
		}
		literals = append(literals, pair{key: keyNode.Value, val: v})
	}

	if merged == nil {
		merged = make(map[string]any, len(literals))
	}
	for _, p := range literals {
		merged[p.key] = p.val
	}

	return merged, nil
}

// mergeSources resolves a merge-key value into its ordered list of
// source mappings. The value is either a single alias or a sequence of
// aliases; a sequence lists sources from lowest to highest precedence.
func (r *resolver) mergeSources(n *yaml.Node) ([]map[string]any, error) {
	nodes := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		nodes = n.Content
	}

	sources := make([]map[string]any, 0, len(nodes))
	for _, node := range nodes {
		v, err := r.convert(node)
		if err != nil {
			return nil, err
		}

		m, ok := v.(map[string]any)
		if !ok {
			return nil, &ParseError{
				Source: r.doc.Name,
				Err:    fmt.Errorf("merge key value at line %d is not a mapping", node.Line),
			}
		}
		sources = append(sources, m)
	}

	return sources, nil
}
