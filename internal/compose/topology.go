package compose

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Topology is the terminal artifact of composition: the resolved
// service set plus its computed start order and the reverse for
// teardown. It is never mutated after construction.
type Topology struct {
	// Services maps service name to its fully merged definition.
	Services map[string]*ServiceDefinition

	// Extra holds non-service top-level sections (networks, volumes)
	// carried through unchanged.
	Extra map[string]any

	graph *Graph
	order []string
}

// RenderTopology assembles the final topology from the graph and the
// composed service set. It is a pure assembler: definitions pass through
// unchanged from the compositor.
func RenderTopology(graph *Graph, services map[string]*ServiceDefinition, declOrder []string, extra map[string]any) *Topology {
	return &Topology{
		Services: services,
		Extra:    extra,
		graph:    graph,
		order:    append([]string{}, declOrder...),
	}
}

// ServiceNames returns service names in declaration order.
func (t *Topology) ServiceNames() []string {
	return append([]string{}, t.order...)
}

// Service returns a service definition by name, or nil.
func (t *Topology) Service(name string) *ServiceDefinition {
	return t.Services[name]
}

// StartOrder returns the dependency-ordered start sequence.
func (t *Topology) StartOrder() []string {
	return t.graph.StartOrder()
}

// StopOrder returns the teardown sequence, the exact reverse of
// StartOrder.
func (t *Topology) StopOrder() []string {
	return t.graph.StopOrder()
}

// Graph returns the dependency graph.
func (t *Topology) Graph() *Graph {
	return t.graph
}

// MarshalYAML implements yaml.Marshaler, so a topology embeds in larger
// documents with the same deterministic layout as EncodeYAML.
func (t *Topology) MarshalYAML() (any, error) {
	return t.yamlNode()
}

// EncodeYAML serializes the topology back to compose-style YAML.
// Services are emitted in declaration order and mapping keys are
// otherwise sorted, so identical inputs yield byte-identical output.
func (t *Topology) EncodeYAML() ([]byte, error) {
	rootNode, err := t.yamlNode()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(rootNode); err != nil {
		return nil, fmt.Errorf("encode topology: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode topology: %w", err)
	}

	return buf.Bytes(), nil
}

func (t *Topology) yamlNode() (*yaml.Node, error) {
	servicesNode := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, name := range t.order {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}

		var valNode yaml.Node
		if err := valNode.Encode(serviceTree(t.Services[name])); err != nil {
			return nil, fmt.Errorf("encode service %s: %w", name, err)
		}
		servicesNode.Content = append(servicesNode.Content, keyNode, &valNode)
	}

	rootNode := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	rootNode.Content = append(rootNode.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "services"},
		servicesNode,
	)

	extraKeys := make([]string, 0, len(t.Extra))
	for k := range t.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)

	for _, k := range extraKeys {
		var valNode yaml.Node
		if err := valNode.Encode(t.Extra[k]); err != nil {
			return nil, fmt.Errorf("encode section %s: %w", k, err)
		}
		rootNode.Content = append(rootNode.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&valNode,
		)
	}

	return rootNode, nil
}

// serviceTree returns the tree to serialize for a service. A disabled
// health check collapses to the portable no-op probe ["NONE"] so no
// inherited probe command or disable flag leaks into rendered output.
func serviceTree(svc *ServiceDefinition) map[string]any {
	raw := svc.Raw()

	hc := svc.Healthcheck
	if hc == nil || !hc.Disabled() {
		return raw
	}
	if _, present := raw["healthcheck"]; !present {
		return raw
	}

	tree := copyMap(raw)
	tree["healthcheck"] = map[string]any{"test": []string{"NONE"}}
	return tree
}
