// Package configs provides embedded configuration templates for docsage.
//
// Templates are embedded at build time using Go's //go:embed directive so
// they are available in every distribution (go install, binary releases).
//
// The templates are used by:
//   - cmd/docsage/cmd/config.go → `docsage config init` creates the user
//     config at ~/.config/docsage/config.yaml
//   - cmd/docsage/cmd/config.go → `docsage config init --project` creates
//     .docsage.yaml in the project root
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/docsage/config.yaml)
//  3. Project config (.docsage.yaml)
//  4. Environment variables (DOCSAGE_*)
//
// To modify templates, edit the .yaml files in this directory and rebuild.
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
// Contains machine-specific settings: backend endpoint and credentials,
// telemetry location, log level.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration.
// Contains project-specific settings: which docs to index, search tuning,
// the system context sent to the answering backend. Meant to be checked
// into the project repository.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
