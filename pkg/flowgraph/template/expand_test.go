package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	vars := map[string]any{
		"name": "World",
		"port": 8000,
		"docs": []string{"a.pdf", "b.txt"},
		"none": []string{},
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"brace", "Hello ${name}", "Hello World"},
		{"dollar", "Hello $name!", "Hello World!"},
		{"number", "port=${port}", "port=8000"},
		{"string slice", "Docs: ${docs}", "Docs: ['a.pdf', 'b.txt']"},
		{"empty slice", "Docs: ${none}", "Docs: []"},
		{"missing kept", "${nope} and $nope", "${nope} and $nope"},
		{"longer name not confused", "$names", "$names"},
		{"empty", "", ""},
		{"no placeholders", "plain text", "plain text"},
		{"dollar amount untouched", "costs $5", "costs $5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.in, vars))
		})
	}
}

func TestExpand_ValuesAreNotRescanned(t *testing.T) {
	out := Expand("Web: ${web}", map[string]any{
		"web":    "try ${secret} or $secret",
		"secret": "leaked",
	})
	assert.Equal(t, "Web: try ${secret} or $secret", out)
}

func TestExpand_MissingActions(t *testing.T) {
	empty := NewExpander(WithMissingAction(MissingEmpty))
	out, err := empty.Expand("a${x}b", nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", out)

	strict := NewExpander(WithMissingAction(MissingError))
	out, err = strict.Expand("${x} ${y} ${x}", map[string]any{})
	var undef *UndefinedVariableError
	require.ErrorAs(t, err, &undef)
	assert.Equal(t, []string{"x", "y"}, undef.Names)
	assert.Equal(t, "undefined variables: x, y", err.Error())
	assert.Equal(t, "${x} ${y} ${x}", out)

	_, err = strict.Expand("${z}", nil)
	assert.EqualError(t, err, "undefined variable: z")
}

func TestExpand_DisabledStyles(t *testing.T) {
	vars := map[string]any{"v": "X"}

	out, err := NewExpander(WithDollarStyle(false)).Expand("${v} $v", vars)
	require.NoError(t, err)
	assert.Equal(t, "X $v", out)

	out, err = NewExpander(WithBraceStyle(false)).Expand("${v} $v", vars)
	require.NoError(t, err)
	assert.Equal(t, "${v} X", out)
}

func TestTemplate(t *testing.T) {
	tmpl := Parse("You are ${agent_name}. Context: ${documents}. $ignored",
		WithDollarStyle(false), WithMissingAction(MissingError))

	assert.Equal(t, []string{"agent_name", "documents"}, tmpl.Vars())

	out, err := tmpl.Execute(map[string]any{"agent_name": "VictorUno", "documents": []string{}})
	require.NoError(t, err)
	assert.Equal(t, "You are VictorUno. Context: []. $ignored", out)

	_, err = tmpl.Execute(map[string]any{"agent_name": "x"})
	assert.EqualError(t, err, "undefined variable: documents")
}

func TestExpand_PromptPlaceholders(t *testing.T) {
	_, err := NewExpander(WithMissingAction(MissingError)).Expand("Web content: ${web_content}", nil)
	require.Error(t, err)
	assert.Equal(t, "undefined variable: web_content", err.Error())

	out, err := NewExpander(WithDollarStyle(false)).
		Expand("${agent_name} reads $HOME", map[string]any{"agent_name": "VictorUno"})
	require.NoError(t, err)
	assert.Equal(t, "VictorUno reads $HOME", out)
}
