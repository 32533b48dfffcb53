// Package configs provides the embedded configuration template.
//
// The template is embedded at build time with go:embed so it ships in every
// distribution of the binary. `baheth config init` writes it out as a starting
// point; internal/config.Load applies the same defaults when no file exists.
package configs

import _ "embed"

// ExampleYAML is the annotated configuration template written by
// `baheth config init`.
//
//go:embed baheth.example.yaml
var ExampleYAML string
