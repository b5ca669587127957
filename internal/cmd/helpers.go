package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/stevedore/internal/compose"
	"github.com/cameronsjo/stevedore/internal/config"
	"github.com/cameronsjo/stevedore/internal/runtime"
	"github.com/cameronsjo/stevedore/internal/ui"
)

// Flags shared by the compose commands (render, graph, lint, env).
var (
	composeStrict bool
	composeValues string
	noInterpolate bool
)

func addComposeFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&composeStrict, "strict", false, "Refuse scalar-over-mapping overrides")
	cmd.Flags().StringVarP(&composeValues, "values", "f", "", "Values file for .tmpl documents")
	cmd.Flags().BoolVar(&noInterpolate, "no-interpolate", false, "Skip ${VAR} substitution")
}

// fail prints the error and exits with its mapped code.
func fail(err error) {
	ui.Error("%v", err)
	os.Exit(compose.ExitCode(err))
}

// composeLayers loads, preprocesses, and composes the given layer files,
// base first.
func composeLayers(paths []string) (*compose.Topology, error) {
	values, err := loadValues(composeValues)
	if err != nil {
		return nil, err
	}

	vars := compose.EnvironMap(os.Environ())

	sources := make([]compose.Source, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &compose.ParseError{Source: path, Err: err}
		}

		if strings.HasSuffix(path, ".tmpl") {
			data, err = compose.RenderTemplate(filepath.Base(path), data, values)
			if err != nil {
				return nil, err
			}
		}

		if !noInterpolate {
			text, err := compose.Interpolate(string(data), vars)
			if err != nil {
				return nil, &compose.ParseError{Source: path, Err: err}
			}
			data = []byte(text)
		}

		sources = append(sources, compose.Source{Name: filepath.Base(path), Data: data})
	}

	return compose.ComposeSources(compose.Options{Strict: composeStrict}, sources...)
}

func loadValues(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse values %s: %w", path, err)
	}
	return values, nil
}

// loadProject discovers the project config and composes its layers.
func loadProject() (*config.Config, *compose.Topology, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, nil, err
	}

	composeStrict = composeStrict || cfg.Strict
	topo, err := composeLayers(cfg.LayerFiles())
	if err != nil {
		return nil, nil, err
	}
	return cfg, topo, nil
}

// withExecutor runs fn with an executor connected to the local daemon,
// handling connection and cleanup.
func withExecutor(project, workDir string, fn func(ctx context.Context, exec *runtime.Executor) error) error {
	client, err := runtime.NewClient()
	if err != nil {
		return fmt.Errorf("connect to docker: %w", err)
	}
	defer client.Close()

	if err := client.Ping(context.Background()); err != nil {
		return err
	}

	return fn(context.Background(), runtime.NewExecutor(client.API(), project, workDir))
}
