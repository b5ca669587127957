package compose

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Source is one raw configuration document to be loaded.
type Source struct {
	// Name identifies the document in error messages (usually a path).
	Name string

	// Data is the raw document text.
	Data []byte
}

// Document is a parsed configuration layer. The node tree is immutable
// after loading; resolution memoizes anchored subtrees per document.
type Document struct {
	// Name identifies the document (usually its file path).
	Name string

	root    *yaml.Node
	anchors map[string]*yaml.Node
	memo    map[*yaml.Node]any
}

// Load parses each source independently into a Document.
// Sources keep their given order; the first is conventionally the base
// layer and the rest are overrides.
func Load(sources ...Source) ([]*Document, error) {
	docs := make([]*Document, 0, len(sources))

	for _, src := range sources {
		doc, err := loadOne(src)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// LoadFiles reads and parses the given paths in order.
func LoadFiles(paths ...string) ([]*Document, error) {
	sources := make([]Source, 0, len(paths))

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ParseError{Source: path, Err: err}
		}
		sources = append(sources, Source{Name: filepath.ToSlash(path), Data: data})
	}

	return Load(sources...)
}

func loadOne(src Source) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(src.Data, &root); err != nil {
		return nil, &ParseError{Source: src.Name, Err: err}
	}

	doc := &Document{
		Name:    src.Name,
		root:    &root,
		anchors: make(map[string]*yaml.Node),
		memo:    make(map[*yaml.Node]any),
	}

	if err := collectAnchors(&root, doc.anchors, src.Name); err != nil {
		return nil, err
	}

	return doc, nil
}

// collectAnchors indexes anchored nodes by name. Anchor names must be
// unique within a single document load.
func collectAnchors(n *yaml.Node, anchors map[string]*yaml.Node, source string) error {
	if n == nil {
		return nil
	}

	if n.Anchor != "" && n.Kind != yaml.AliasNode {
		if _, exists := anchors[n.Anchor]; exists {
			return &ParseError{
				Source: source,
				Err:    fmt.Errorf("anchor %q defined more than once", n.Anchor),
			}
		}
		anchors[n.Anchor] = n
	}

	for _, child := range n.Content {
		if err := collectAnchors(child, anchors, source); err != nil {
			return err
		}
	}

	return nil
}

// topLevelKeys returns the keys of a top-level mapping entry (e.g.
// "services") in declaration order. A << merge key inside the section
// expands in place, so merged-in entries keep a stable position.
func (d *Document) topLevelKeys(section string) []string {
	mapping := documentMapping(d.root)
	if mapping == nil {
		return nil
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value != section {
			continue
		}

		value := mapping.Content[i+1]
		if value.Kind == yaml.AliasNode {
			value = value.Alias
		}
		if value == nil || value.Kind != yaml.MappingNode {
			return nil
		}

		return mappingKeys(value, make(map[*yaml.Node]bool))
	}

	return nil
}

// mappingKeys lists a mapping's keys in declaration order, following
// merge-key aliases. visited guards against anchor cycles; the resolver
// reports those properly.
func mappingKeys(n *yaml.Node, visited map[*yaml.Node]bool) []string {
	if visited[n] {
		return nil
	}
	visited[n] = true

	keys := make([]string, 0, len(n.Content)/2)
	seen := make(map[string]bool, len(n.Content)/2)
	add := func(key string) {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode := n.Content[i]
		valNode := n.Content[i+1]

		if keyNode.Tag != mergeTag && keyNode.Value != "<<" {
			add(keyNode.Value)
			continue
		}

		sources := []*yaml.Node{valNode}
		if valNode.Kind == yaml.SequenceNode {
			sources = valNode.Content
		}
		for _, src := range sources {
			if src.Kind == yaml.AliasNode {
				src = src.Alias
			}
			if src == nil || src.Kind != yaml.MappingNode {
				continue
			}
			for _, key := range mappingKeys(src, visited) {
				add(key)
			}
		}
	}

	return keys
}

// documentMapping unwraps a document node down to its root mapping.
func documentMapping(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil
		}
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil
	}
	return n
}
