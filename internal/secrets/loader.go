package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Load resolves a secret from an inline value or a file path. The file
// takes precedence over the inline value so configs can avoid embedding
// keys. The result is always trimmed. Name is only used in error messages.
func Load(name, value, file string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "secret"
	}

	file = strings.TrimSpace(file)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		value = string(data)
	}

	secret := strings.TrimSpace(value)
	if secret == "" {
		if file != "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}
