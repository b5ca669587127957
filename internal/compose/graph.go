package compose

// Graph is the service dependency DAG together with its deterministic
// topological order. An edge from a dependency to its dependent means
// the dependency must reach readiness first.
type Graph struct {
	deps map[string][]string
	topo []string
}

// BuildGraph validates the depends_on edges of the given services and
// computes the start order. Ties between services with no ordering
// constraint are broken by declaration order, so the output is stable
// across runs with identical input. declOrder must list every service
// exactly once.
func BuildGraph(services map[string]*ServiceDefinition, declOrder []string) (*Graph, error) {
	deps := make(map[string][]string, len(services))

	for _, name := range declOrder {
		svc := services[name]
		for _, dep := range svc.DependsOn.Names {
			if _, ok := services[dep]; !ok {
				return nil, &UnknownDependencyError{Service: name, Dependency: dep}
			}
			deps[name] = append(deps[name], dep)
		}
	}

	topo, err := sortTopological(declOrder, deps)
	if err != nil {
		return nil, err
	}

	return &Graph{
		deps: deps,
		topo: topo,
	}, nil
}

// Dependencies returns the declared dependencies of a service.
func (g *Graph) Dependencies(name string) []string {
	return g.deps[name]
}

// StartOrder returns the topological start order.
func (g *Graph) StartOrder() []string {
	return append([]string{}, g.topo...)
}

// StopOrder returns the exact reverse of the start order.
func (g *Graph) StopOrder() []string {
	stop := make([]string, len(g.topo))
	for i, name := range g.topo {
		stop[len(g.topo)-1-i] = name
	}
	return stop
}

// sortTopological is Kahn's algorithm with declaration-order
// tie-breaking: among the services whose dependencies are all satisfied,
// the one declared first starts first.
func sortTopological(declOrder []string, deps map[string][]string) ([]string, error) {
	remaining := make(map[string]int, len(declOrder))
	for _, name := range declOrder {
		remaining[name] = len(deps[name])
	}

	done := make(map[string]bool, len(declOrder))
	order := make([]string, 0, len(declOrder))

	for len(order) < len(declOrder) {
		progressed := false
		for _, name := range declOrder {
			if done[name] || remaining[name] != 0 {
				continue
			}

			done[name] = true
			order = append(order, name)
			progressed = true

			for _, other := range declOrder {
				if done[other] {
					continue
				}
				for _, dep := range deps[other] {
					if dep == name {
						remaining[other]--
					}
				}
			}
			break
		}

		if !progressed {
			return nil, &CycleError{
				Kind:  CycleDependency,
				Names: findCycle(declOrder, deps, done),
			}
		}
	}

	return order, nil
}

// findCycle walks the unsatisfied remainder of the graph and extracts
// one concrete cycle path as evidence.
func findCycle(declOrder []string, deps map[string][]string, done map[string]bool) []string {
	// Every remaining node has at least one unresolved dependency, so
	// following unresolved edges must eventually revisit a node.
	var start string
	for _, name := range declOrder {
		if !done[name] {
			start = name
			break
		}
	}

	visited := make(map[string]int)
	path := []string{}
	current := start

	for {
		if idx, seen := visited[current]; seen {
			return append(path[idx:], current)
		}
		visited[current] = len(path)
		path = append(path, current)

		for _, dep := range deps[current] {
			if !done[dep] {
				current = dep
				break
			}
		}
	}
}
