package template

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// placeholder matches ${name} (group 1) or $name (group 2).
var placeholder = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}|\$([a-zA-Z_][a-zA-Z0-9_]*)`)

// Expander expands placeholders. Safe for concurrent use after construction.
type Expander struct {
	missingAction MissingAction
	braceStyle    bool
	dollarStyle   bool
}

// NewExpander creates an Expander. Defaults: MissingKeep, both styles on.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		missingAction: MissingKeep,
		braceStyle:    true,
		dollarStyle:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand substitutes vars into s. An error is returned only under
// MissingError, alongside the partially expanded text.
func (e *Expander) Expand(s string, vars map[string]any) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	out := placeholder.ReplaceAllStringFunc(s, func(match string) string {
		name, ok := e.nameOf(match)
		if !ok {
			return match
		}
		if val, found := vars[name]; found {
			return render(val)
		}
		switch e.missingAction {
		case MissingEmpty:
			return ""
		case MissingError:
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
		}
		return match
	})

	if len(missing) > 0 {
		return out, &UndefinedVariableError{Names: missing}
	}
	return out, nil
}

// nameOf extracts the variable name when the match's style is enabled.
func (e *Expander) nameOf(match string) (string, bool) {
	if strings.HasPrefix(match, "${") {
		return match[2 : len(match)-1], e.braceStyle
	}
	return match[1:], e.dollarStyle
}

// Vars lists the distinct variable names referenced by s, in order of first
// appearance, honoring the enabled styles.
func (e *Expander) Vars(s string) []string {
	var names []string
	for _, m := range placeholder.FindAllString(s, -1) {
		if name, ok := e.nameOf(m); ok && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

// render formats a value for substitution. String slices render as a
// bracketed, quoted list so prompts can show "no documents" as [].
func render(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		quoted := make([]string, len(val))
		for i, s := range val {
			quoted[i] = "'" + s + "'"
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// UndefinedVariableError lists the variables MissingError could not resolve.
type UndefinedVariableError struct {
	Names []string
}

func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

// Template is a parsed text with its own Expander.
type Template struct {
	text string
	exp  *Expander
	vars []string
}

// Parse prepares text for repeated expansion.
func Parse(text string, opts ...Option) *Template {
	exp := NewExpander(opts...)
	return &Template{text: text, exp: exp, vars: exp.Vars(text)}
}

// Execute expands the template with vars.
func (t *Template) Execute(vars map[string]any) (string, error) {
	return t.exp.Expand(t.text, vars)
}

// Vars returns the variable names the template references.
func (t *Template) Vars() []string {
	return slices.Clone(t.vars)
}

var defaultExpander = NewExpander()

// Expand expands s with the default expander (MissingKeep, both styles).
func Expand(s string, vars map[string]any) string {
	out, _ := defaultExpander.Expand(s, vars)
	return out
}
