package template

// MissingAction specifies how to handle missing variables.
type MissingAction int

const (
	// MissingKeep leaves the placeholder in place. Default.
	MissingKeep MissingAction = iota

	// MissingEmpty replaces the placeholder with "".
	MissingEmpty

	// MissingError fails the expansion with UndefinedVariableError.
	MissingError
)

// Option configures an Expander.
type Option func(*Expander)

// WithMissingAction sets how missing variables are handled.
//
// Default: MissingKeep
//
// Example:
//
//	exp := NewExpander(WithMissingAction(MissingError))
//	_, err := exp.Expand("Web content: ${web_content}", nil)
//	// err: "undefined variable: web_content"
func WithMissingAction(action MissingAction) Option {
	return func(e *Expander) {
		e.missingAction = action
	}
}

// WithBraceStyle toggles ${var} expansion.
//
// Default: true
func WithBraceStyle(enabled bool) Option {
	return func(e *Expander) {
		e.braceStyle = enabled
	}
}

// WithDollarStyle toggles $var expansion. Prompts that may quote shell
// snippets turn it off and keep only ${var}.
//
// Default: true
//
// Example:
//
//	exp := NewExpander(WithDollarStyle(false))
//	out, _ := exp.Expand("${agent_name} reads $HOME", map[string]any{"agent_name": "VictorUno"})
//	// out: "VictorUno reads $HOME"
func WithDollarStyle(enabled bool) Option {
	return func(e *Expander) {
		e.dollarStyle = enabled
	}
}
