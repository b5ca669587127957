package compose

import (
	"errors"
	"fmt"
	"sort"
)

// ComposeFiles runs the full pipeline over a base file plus override
// files in precedence order: load, resolve, compose, graph, render.
// On any error no partial topology is returned.
func ComposeFiles(opts Options, base string, overrides ...string) (*Topology, error) {
	docs, err := LoadFiles(append([]string{base}, overrides...)...)
	if err != nil {
		return nil, err
	}
	return composeDocs(docs, opts)
}

// ComposeSources is ComposeFiles over in-memory sources. The first
// source is the base layer.
func ComposeSources(opts Options, sources ...Source) (*Topology, error) {
	docs, err := Load(sources...)
	if err != nil {
		return nil, err
	}
	return composeDocs(docs, opts)
}

func composeDocs(docs []*Document, opts Options) (*Topology, error) {
	if len(docs) == 0 {
		return nil, errors.New("no documents to compose")
	}

	trees := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		tree, err := doc.Resolve()
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}

	merged, err := Compose(trees[0], trees[1:], opts)
	if err != nil {
		return nil, err
	}

	rawServices, err := servicesSection(merged, docs[0].Name)
	if err != nil {
		return nil, err
	}

	declOrder := declarationOrder(docs, rawServices)

	services := make(map[string]*ServiceDefinition, len(rawServices))
	for _, name := range declOrder {
		svc, err := DecodeService(name, rawServices[name])
		if err != nil {
			return nil, &ParseError{Source: docs[0].Name, Err: err}
		}
		services[name] = svc
	}

	graph, err := BuildGraph(services, declOrder)
	if err != nil {
		return nil, err
	}

	extra := copyMap(merged)
	delete(extra, "services")

	return RenderTopology(graph, services, declOrder, extra), nil
}

// servicesSection extracts the merged services mapping, requiring each
// entry to be a mapping of its own.
func servicesSection(merged map[string]any, source string) (map[string]map[string]any, error) {
	section, ok := merged["services"]
	if !ok || section == nil {
		return map[string]map[string]any{}, nil
	}

	mapping, ok := section.(map[string]any)
	if !ok {
		return nil, &ParseError{
			Source: source,
			Err:    fmt.Errorf("services section must be a mapping, got %T", section),
		}
	}

	services := make(map[string]map[string]any, len(mapping))
	for name, def := range mapping {
		tree, ok := def.(map[string]any)
		if !ok {
			return nil, &ParseError{
				Source: source,
				Err:    fmt.Errorf("service %s must be a mapping, got %T", name, def),
			}
		}
		services[name] = tree
	}

	return services, nil
}

// declarationOrder lists surviving services in the order documents first
// declared them: base order first, then services each override layer
// introduced, in layer order. Any service the raw scan could not place
// is appended by name, so nothing the resolver produced is dropped.
func declarationOrder(docs []*Document, services map[string]map[string]any) []string {
	order := make([]string, 0, len(services))
	seen := make(map[string]bool, len(services))

	for _, doc := range docs {
		for _, name := range doc.topLevelKeys("services") {
			if seen[name] {
				continue
			}
			if _, survives := services[name]; !survives {
				continue
			}
			seen[name] = true
			order = append(order, name)
		}
	}

	if len(order) < len(services) {
		rest := make([]string, 0, len(services)-len(order))
		for name := range services {
			if !seen[name] {
				rest = append(rest, name)
			}
		}
		sort.Strings(rest)
		order = append(order, rest...)
	}

	return order
}
