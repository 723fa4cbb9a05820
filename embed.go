// Package phonebook holds resources embedded in the binary.
package phonebook

import _ "embed"

// DefaultConfig is the commented default config written by "phonebook config init".
//
//go:embed templates/config.yaml
var DefaultConfig []byte
