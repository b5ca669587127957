package compose

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// RenderTemplate renders a .tmpl document with the given values before
// it is handed to the loader. Templates have access to all sprig
// functions plus include and fromJsonFile.
func RenderTemplate(name string, content []byte, values map[string]any) ([]byte, error) {
	tmpl := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Funcs(templateFuncs())

	tmpl, err := tmpl.Parse(string(content))
	if err != nil {
		return nil, &ParseError{Source: name, Err: err}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, values); err != nil {
		return nil, &ParseError{Source: name, Err: err}
	}

	return buf.Bytes(), nil
}

// templateFuncs returns custom functions available to topology templates.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"include": func(path string) (string, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("include %s: %w", path, err)
			}
			return string(data), nil
		},
		"fromJsonFile": func(path string) (any, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("fromJsonFile %s: %w", path, err)
			}
			var result any
			if jsonErr := json.Unmarshal(data, &result); jsonErr != nil {
				return nil, fmt.Errorf("fromJsonFile %s: invalid JSON: %w", path, jsonErr)
			}
			return result, nil
		},
	}
}
