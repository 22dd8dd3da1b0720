// Package configs provides embedded configuration templates for vaultindex.
//
// Templates are embedded at build time using Go's //go:embed directive so
// they ship with every distribution (source build or binary release).
//
//   - user-config.example.yaml: machine-specific settings (embedding provider, Ollama host)
//   - project-config.example.yaml: vault-specific settings (paths, chunking, similarity)
//
// See internal/config/config.go Load() for the precedence these templates
// feed into: defaults, then user config, then project config, then
// VAULTINDEX_* environment variables.
package configs

import _ "embed"

// UserConfigTemplate is written by `vaultindex config init` to
// ~/.config/vaultindex/config.yaml.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is written to .vaultindex.yaml at a vault root.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
