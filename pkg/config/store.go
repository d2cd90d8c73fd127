package config

import (
	"fmt"
	"strings"
)

const (
	StoreBackendFile   = "file"
	StoreBackendMemory = "memory"
)

// StoreConfig configures the product collection storage.
type StoreConfig struct {
	Backend     string `koanf:"backend"`
	Path        string `koanf:"path"`
	ReadPolicy  string `koanf:"readpolicy"`
	Placeholder string `koanf:"placeholder"`
}

// String returns a string representation of the store configuration.
func (c *StoreConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Store ---\n")
	b.WriteString(fmt.Sprintf("  backend: %s\n", c.Backend))
	b.WriteString(fmt.Sprintf("  path: %s\n", c.Path))
	b.WriteString(fmt.Sprintf("  readpolicy: %s\n", c.ReadPolicy))
	b.WriteString(fmt.Sprintf("  placeholder: %s\n", c.Placeholder))
	return b.String()
}

func (c *StoreConfig) Validate() error {
	switch c.Backend {
	case StoreBackendFile:
		if c.Path == "" {
			return fmt.Errorf("store path is not configured")
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Backend)
	}
	switch c.ReadPolicy {
	case "", "lenient", "strict":
	default:
		return fmt.Errorf("store read policy must be 'lenient' or 'strict': %q", c.ReadPolicy)
	}
	return nil
}
