package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kiranshivaraju/healthradar/pkg/models"
	"gopkg.in/yaml.v3"
)

// Contact is one municipality's SMS recipient.
type Contact struct {
	Municipality string `yaml:"municipality"`
	Phone        string `yaml:"phone"`
}

// Key returns the gateway contact key for the municipality (e.g. LACION).
func (c Contact) Key() string {
	return models.ContactKey(c.Municipality)
}

type contactsFile struct {
	Contacts []Contact `yaml:"contacts"`
}

// LoadContacts reads the municipality contact table from a YAML file.
// A missing file yields an empty table so SMS can stay disabled in development.
func LoadContacts(path string) ([]Contact, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []Contact{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read contacts file: %w", err)
	}
	return ParseContacts(data)
}

// ParseContacts decodes and validates a YAML contact table. Duplicate
// municipalities (after mapping to contact keys) are rejected.
func ParseContacts(data []byte) ([]Contact, error) {
	var f contactsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse contacts file: %w", err)
	}

	seen := make(map[string]bool, len(f.Contacts))
	out := make([]Contact, 0, len(f.Contacts))
	for i, c := range f.Contacts {
		c.Municipality = strings.TrimSpace(c.Municipality)
		c.Phone = strings.TrimSpace(c.Phone)
		if c.Municipality == "" || c.Phone == "" {
			return nil, fmt.Errorf("contacts[%d]: municipality and phone are required", i)
		}
		if seen[c.Key()] {
			return nil, fmt.Errorf("contacts[%d]: duplicate municipality %q", i, c.Municipality)
		}
		seen[c.Key()] = true
		out = append(out, c)
	}
	return out, nil
}
