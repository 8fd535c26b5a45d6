/*
Package config loads assistant settings.

Two layers live here. Config is a forgiving accessor over a decoded YAML or
JSON document: every getter takes a default and dotted keys walk nested
maps, so "ollama.host" reads

	ollama:
	  host: http://gpu-box:11434

Settings is the typed view the rest of the program uses. Load builds it from
defaults, then an optional file, then environment variables, later layers
winning:

	settings, err := config.Load("~/.victoruno/config.yaml")

Recognized environment variables are listed in EnvOverrides. Both the
historical names (OLLAMA_HOST, AGENT_NAME, WEB_PORT, ...) and VICTORUNO_
prefixed names are honored; the prefixed form wins when both are set.
*/
package config
