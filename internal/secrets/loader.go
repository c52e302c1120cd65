// Package secrets resolves API credentials from files or inline config.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes where a secret comes from. File takes precedence over
// Value so containerized deployments can mount credentials instead of
// passing them through the environment.
type Source struct {
	// Name appears in error messages.
	Name string
	// Value is an inline secret from configuration or a flag.
	Value string
	// File points to a file holding the secret.
	File string
}

// Load resolves and trims the secret. It returns an error when no usable
// value is available, naming the source so the operator knows which
// credential is missing.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		return "", fmt.Errorf("%s is not configured", name)
	}
	return secret, nil
}
