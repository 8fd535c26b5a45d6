/*
Package template expands ${var} and $var placeholders in text.

Expansion is a single left-to-right pass: substituted values are never
scanned again, so user content that happens to contain "${x}" is copied
verbatim. This matters for prompts that embed document or web text.

	result := template.Expand("Hello ${name}", map[string]any{"name": "World"})

Templates that are rendered many times can be parsed once:

	tmpl := template.Parse("You are ${agent_name}.",
	    template.WithDollarStyle(false),
	    template.WithMissingAction(template.MissingError))
	prompt, err := tmpl.Execute(map[string]any{"agent_name": "VictorUno"})
*/
package template
