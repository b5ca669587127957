package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustResolve(t *testing.T, text string) map[string]any {
	t.Helper()

	docs, err := Load(Source{Name: "test.yml", Data: []byte(text)})
	require.NoError(t, err)

	tree, err := docs[0].Resolve()
	require.NoError(t, err)
	return tree
}

func TestResolveAliases(t *testing.T) {
	tree := mustResolve(t, `
defaults: &defaults
  restart: always
  labels:
    tier: backend
web:
  settings: *defaults
worker:
  settings: *defaults
`)

	web := tree["web"].(map[string]any)["settings"].(map[string]any)
	worker := tree["worker"].(map[string]any)["settings"].(map[string]any)

	assert.Equal(t, "always", web["restart"])
	assert.Equal(t, "always", worker["restart"])
}

func TestResolveSharesAnchoredSubtrees(t *testing.T) {
	docs, err := Load(Source{Name: "test.yml", Data: []byte(`
template: &tpl
  restart: always
a: *tpl
b: *tpl
`)})
	require.NoError(t, err)

	tree, err := docs[0].Resolve()
	require.NoError(t, err)

	// Plain alias references share the memoized resolved subtree.
	a := tree["a"].(map[string]any)
	b := tree["b"].(map[string]any)
	a["restart"] = "changed"
	assert.Equal(t, "changed", b["restart"])
}

func TestResolveMergeKey(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]any
	}{
		{
			name: "single alias merge",
			text: `
base: &base
  image: app
  restart: always
web:
  <<: *base
  image: web
`,
			want: map[string]any{
				"image":   "web",
				"restart": "always",
			},
		},
		{
			name: "sequence merge later entry wins",
			text: `
common: &common
  restart: always
  stop_grace_period: 10s
tuned: &tuned
  stop_grace_period: 60s
web:
  <<: [*common, *tuned]
`,
			want: map[string]any{
				"restart":           "always",
				"stop_grace_period": "60s",
			},
		},
		{
			name: "literal sibling beats merge sources",
			text: `
common: &common
  restart: always
tuned: &tuned
  restart: on-failure
web:
  <<: [*common, *tuned]
  restart: "no"
`,
			want: map[string]any{
				"restart": "no",
			},
		},
		{
			name: "merge sources deep merge mappings",
			text: `
base: &base
  deploy:
    replicas: 1
    placement: any
scaled: &scaled
  deploy:
    replicas: 3
web:
  <<: [*base, *scaled]
`,
			want: map[string]any{
				"deploy": map[string]any{
					"replicas":  3,
					"placement": "any",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustResolve(t, tt.text)
			assert.Equal(t, tt.want, tree["web"])
		})
	}
}

func TestResolveMergeKeyDoesNotMutateAnchor(t *testing.T) {
	tree := mustResolve(t, `
base: &base
  labels:
    tier: backend
web:
  <<: *base
  labels:
    app: web
`)

	// Merge-key expansion copies at the merge boundary, so the shared
	// template keeps its own labels.
	base := tree["base"].(map[string]any)["labels"].(map[string]any)
	assert.Equal(t, map[string]any{"tier": "backend"}, base)

	web := tree["web"].(map[string]any)["labels"].(map[string]any)
	assert.Equal(t, map[string]any{"app": "web"}, web)
}

func TestResolveAnchorCycle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "self reference",
			text: "a: &tpl\n  self: *tpl\n",
			want: []string{"tpl", "tpl"},
		},
		{
			name: "transitive reference",
			text: "a: &outer\n  b: &inner\n    c: *outer\n",
			want: []string{"outer", "inner", "outer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := Load(Source{Name: "test.yml", Data: []byte(tt.text)})
			require.NoError(t, err)

			_, err = docs[0].Resolve()
			require.Error(t, err)

			var cycleErr *CycleError
			require.ErrorAs(t, err, &cycleErr)
			assert.Equal(t, CycleAnchor, cycleErr.Kind)
			assert.Equal(t, tt.want, cycleErr.Names)
			assert.Equal(t, ExitCycle, ExitCode(err))
		})
	}
}

func TestResolveDuplicateAnchor(t *testing.T) {
	_, err := Load(Source{Name: "test.yml", Data: []byte(`
a: &tpl
  x: 1
b: &tpl
  x: 2
`)})
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Error(), "tpl")
}

func TestResolveIdempotent(t *testing.T) {
	text := `
services:
  base: &base
    image: app
    restart: always
  web:
    <<: *base
    image: web
`
	first := mustResolve(t, text)

	topo, err := ComposeSources(Options{}, Source{Name: "a.yml", Data: []byte(text)})
	require.NoError(t, err)

	// Re-resolving the already-resolved output yields the same tree.
	encoded, err := topo.EncodeYAML()
	require.NoError(t, err)

	second := mustResolve(t, string(encoded))
	assert.Equal(t, first["services"].(map[string]any)["web"], second["services"].(map[string]any)["web"])
}

func TestResolveResetTag(t *testing.T) {
	tree := mustResolve(t, `
web:
  ports: !reset null
`)

	ports := tree["web"].(map[string]any)["ports"]
	assert.True(t, IsReset(ports))
}

func TestLoadParseError(t *testing.T) {
	_, err := Load(Source{Name: "bad.yml", Data: []byte("a: [unterminated\n")})
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "bad.yml", parseErr.Source)
	assert.Equal(t, ExitParse, ExitCode(err))
}
