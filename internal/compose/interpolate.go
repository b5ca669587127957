package compose

import (
	"fmt"
	"regexp"
	"strings"
)

// varPattern matches ${NAME} and ${NAME:-default} placeholders.
var varPattern = regexp.MustCompile(`\$\{(\w+)(?::-([^}]*))?\}`)

// Interpolate replaces ${VAR} placeholders in raw document text with
// values from the variables map, before any parsing. A placeholder with
// a :-default falls back to the default when the variable is unset.
// Referencing an unset variable with no default is an error listing
// every missing name.
func Interpolate(text string, variables map[string]string) (string, error) {
	var missing []string

	result := varPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := varPattern.FindStringSubmatch(match)
		name := groups[1]

		if value, ok := variables[name]; ok {
			return value
		}
		if strings.Contains(match, ":-") {
			return groups[2]
		}

		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing variables: ${%s}", strings.Join(missing, "}, ${"))
	}

	return result, nil
}

// EnvironMap converts os.Environ-style "KEY=VAL" pairs to a map.
func EnvironMap(environ []string) map[string]string {
	result := make(map[string]string, len(environ))
	for _, kv := range environ {
		if idx := strings.Index(kv, "="); idx > 0 {
			result[kv[:idx]] = kv[idx+1:]
		}
	}
	return result
}
