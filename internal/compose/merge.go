package compose

import "fmt"

// Options controls compositor behavior.
type Options struct {
	// Strict makes a scalar merging over a mapping a MergeTypeError.
	// The default (permissive) silently lets the override win.
	Strict bool
}

// Compose merges a base tree with zero or more override trees, later
// overrides taking precedence. Merge semantics, applied key by key:
//   - mapping over mapping: recursive merge
//   - sequence over sequence: override replaces the base wholesale
//   - anything else: override wins
//   - !reset: the key is deleted
//
// Inputs are never mutated; the result is a fresh tree sharing only
// subtrees the merge did not touch.
func Compose(base map[string]any, overrides []map[string]any, opts Options) (map[string]any, error) {
	result := base
	for _, overlay := range overrides {
		merged, err := mergeLayer(result, overlay, "", opts)
		if err != nil {
			return nil, err
		}
		result = merged
	}

	return stripResets(result), nil
}

func mergeLayer(base, overlay map[string]any, path string, opts Options) (map[string]any, error) {
	result := copyMap(base)

	for key, overlayValue := range overlay {
		currentPath := key
		if path != "" {
			currentPath = path + "." + key
		}

		if IsReset(overlayValue) {
			delete(result, key)
			continue
		}

		baseValue, exists := result[key]
		if !exists {
			result[key] = deepCopy(overlayValue)
			continue
		}

		baseMap, baseIsMap := baseValue.(map[string]any)
		overlayMap, overlayIsMap := overlayValue.(map[string]any)
		if baseIsMap && overlayIsMap {
			merged, err := mergeLayer(baseMap, overlayMap, currentPath, opts)
			if err != nil {
				return nil, err
			}
			if key == "healthcheck" {
				reconcileProbe(merged, overlayMap)
			}
			result[key] = merged
			continue
		}

		// Sequences replace wholesale: an override restates the full
		// list (volumes, ports) rather than appending to it.
		if baseIsMap && !overlayIsMap && opts.Strict {
			return nil, &MergeTypeError{
				Path:     currentPath,
				Base:     "mapping",
				Override: kindOf(overlayValue),
			}
		}

		result[key] = deepCopy(overlayValue)
	}

	return result, nil
}

// reconcileProbe keeps disable and probe-command mutually exclusive
// across layers: a layer that restates the probe without disabling
// clears an inherited disable flag, so the later layer wins either way.
func reconcileProbe(merged, overlay map[string]any) {
	_, hasTest := overlay["test"]
	_, hasDisable := overlay["disable"]
	if hasTest && !hasDisable {
		delete(merged, "disable")
	}
}

// mergeTrees is the permissive merge used for merge-key expansion,
// where strictness never applies.
func mergeTrees(base, overlay map[string]any) map[string]any {
	merged, _ := mergeLayer(base, overlay, "", Options{})
	return merged
}

// stripResets removes reset sentinels that no override consumed, so no
// marker ever reaches the rendered topology.
func stripResets(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		if IsReset(v) {
			continue
		}
		result[k] = stripResetValue(v)
	}
	return result
}

func stripResetValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return stripResets(val)
	case []any:
		result := make([]any, 0, len(val))
		for _, item := range val {
			if IsReset(item) {
				continue
			}
			result = append(result, stripResetValue(item))
		}
		return result
	default:
		return v
	}
}

// kindOf names a value's kind for error messages.
func kindOf(v any) string {
	switch v.(type) {
	case map[string]any:
		return "mapping"
	case []any, []string:
		return "sequence"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("scalar (%T)", v)
	}
}

// copyMap creates a shallow copy of a map.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return make(map[string]any)
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

// deepCopy creates a deep copy of any value.
func deepCopy(value any) any {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, val := range v {
			result[k] = deepCopy(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = deepCopy(val)
		}
		return result
	case []string:
		result := make([]string, len(v))
		copy(result, v)
		return result
	default:
		// Primitive types are immutable, return as-is
		return value
	}
}
