package compose

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// StringList decodes a YAML scalar or sequence into a list of strings.
// Volume entries in the long mapping form collapse to "source:target".
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = StringList{value.Value}
		return nil

	case yaml.SequenceNode:
		out := make(StringList, 0, len(value.Content))
		for _, item := range value.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				out = append(out, item.Value)
			case yaml.MappingNode:
				entry, err := mountString(item)
				if err != nil {
					return err
				}
				out = append(out, entry)
			default:
				return fmt.Errorf("line %d: expected scalar list entry", item.Line)
			}
		}
		*l = out
		return nil

	default:
		return fmt.Errorf("line %d: expected scalar or sequence", value.Line)
	}
}

// mountString collapses a long-form mount mapping to source:target.
func mountString(n *yaml.Node) (string, error) {
	var mount struct {
		Source string `yaml:"source"`
		Target string `yaml:"target"`
	}
	if err := n.Decode(&mount); err != nil {
		return "", err
	}
	if mount.Target == "" {
		return "", fmt.Errorf("line %d: mount entry missing target", n.Line)
	}
	if mount.Source == "" {
		return mount.Target, nil
	}
	return mount.Source + ":" + mount.Target, nil
}

// Environment decodes either the map form or the "KEY=VAL" list form
// into a key/value map.
type Environment map[string]string

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *Environment) UnmarshalYAML(value *yaml.Node) error {
	result := make(Environment)

	switch value.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			key := value.Content[i].Value
			val := value.Content[i+1]
			if val.Tag == "!!null" {
				result[key] = ""
				continue
			}
			result[key] = val.Value
		}

	case yaml.SequenceNode:
		for _, item := range value.Content {
			s := item.Value
			if idx := strings.Index(s, "="); idx > 0 {
				result[s[:idx]] = s[idx+1:]
			} else {
				result[s] = ""
			}
		}

	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*e = nil
			return nil
		}
		return fmt.Errorf("line %d: expected mapping or list", value.Line)

	default:
		return fmt.Errorf("line %d: expected mapping or list", value.Line)
	}

	*e = result
	return nil
}

// DependsOn captures declared dependencies, preserving declaration order
// for the short list form. The long form carries per-dependency start
// conditions.
type DependsOn struct {
	// Names lists dependency service names.
	Names []string

	// Conditions maps a dependency to its start condition
	// (e.g. service_healthy); empty for the short form.
	Conditions map[string]string
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *DependsOn) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		for _, item := range value.Content {
			d.Names = append(d.Names, item.Value)
		}
		return nil

	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			name := value.Content[i].Value
			d.Names = append(d.Names, name)

			val := value.Content[i+1]
			if val.Kind != yaml.MappingNode {
				continue
			}
			var entry struct {
				Condition string `yaml:"condition"`
			}
			if err := val.Decode(&entry); err != nil {
				return err
			}
			if entry.Condition != "" {
				if d.Conditions == nil {
					d.Conditions = make(map[string]string)
				}
				d.Conditions[name] = entry.Condition
			}
		}
		return nil

	default:
		return fmt.Errorf("line %d: depends_on must be a list or mapping", value.Line)
	}
}

// BuildSpec carries the build instructions for a service. The engine
// never builds images; the instructions pass through for a build
// collaborator.
type BuildSpec struct {
	Context    string      `yaml:"context"`
	Dockerfile string      `yaml:"dockerfile,omitempty"`
	Target     string      `yaml:"target,omitempty"`
	Args       Environment `yaml:"args,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler. The short form is a bare
// context path.
func (b *BuildSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		b.Context = value.Value
		return nil
	}

	type plain BuildSpec
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*b = BuildSpec(p)
	return nil
}

// Healthcheck describes a service readiness probe. Disable and the probe
// command are mutually exclusive in effect: disable wins.
type Healthcheck struct {
	Test        StringList `yaml:"test,omitempty"`
	Interval    string     `yaml:"interval,omitempty"`
	Timeout     string     `yaml:"timeout,omitempty"`
	StartPeriod string     `yaml:"start_period,omitempty"`
	Retries     int        `yaml:"retries,omitempty"`
	Disable     bool       `yaml:"disable,omitempty"`
}

// Probe returns the effective probe command. A disabled check returns
// the portable no-op probe ["NONE"]; a bare string probe is wrapped as a
// shell command.
func (h *Healthcheck) Probe() []string {
	if h == nil {
		return nil
	}
	if h.Disable || len(h.Test) == 0 {
		return []string{"NONE"}
	}
	if len(h.Test) == 1 {
		switch h.Test[0] {
		case "NONE", "CMD", "CMD-SHELL":
			return []string(h.Test)
		default:
			return []string{"CMD-SHELL", h.Test[0]}
		}
	}
	return []string(h.Test)
}

// Disabled reports whether the effective probe is a no-op.
func (h *Healthcheck) Disabled() bool {
	if h == nil {
		return true
	}
	if h.Disable {
		return true
	}
	probe := h.Probe()
	return len(probe) > 0 && probe[0] == "NONE"
}

// ServiceDefinition is one fully merged service. Its identity is its
// name, unique within the topology. Definitions are immutable once the
// compositor produces them.
type ServiceDefinition struct {
	Name string `yaml:"-"`

	Image       string       `yaml:"image,omitempty"`
	Build       *BuildSpec   `yaml:"build,omitempty"`
	EnvFiles    StringList   `yaml:"env_file,omitempty"`
	Environment Environment  `yaml:"environment,omitempty"`
	Volumes     StringList   `yaml:"volumes,omitempty"`
	Ports       StringList   `yaml:"ports,omitempty"`
	Healthcheck *Healthcheck `yaml:"healthcheck,omitempty"`
	DependsOn   DependsOn    `yaml:"depends_on,omitempty"`
	Entrypoint  StringList   `yaml:"entrypoint,omitempty"`
	Command     StringList   `yaml:"command,omitempty"`
	Restart     string       `yaml:"restart,omitempty"`
	Labels      Environment  `yaml:"labels,omitempty"`
	Networks    StringList   `yaml:"networks,omitempty"`

	raw map[string]any
}

// Raw returns the merged tree this definition was decoded from,
// including keys the typed model does not carry.
func (s *ServiceDefinition) Raw() map[string]any {
	return s.raw
}

// DecodeService decodes a merged service tree into its typed form.
func DecodeService(name string, tree map[string]any) (*ServiceDefinition, error) {
	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode service %s: %w", name, err)
	}

	var svc ServiceDefinition
	if err := yaml.Unmarshal(data, &svc); err != nil {
		return nil, fmt.Errorf("decode service %s: %w", name, err)
	}

	svc.Name = name
	svc.raw = tree
	return &svc, nil
}
