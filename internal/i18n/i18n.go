// Package i18n holds the read-only translation dictionary consulted for every
// user-facing label.
package i18n

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed en.yml
var defaultYAML []byte

// Translator resolves a logical key to a display string.
type Translator interface {
	T(key string) string
}

// Dict is a nested key → string mapping flattened to dotted keys.
type Dict struct {
	entries map[string]string
}

// Default returns the built-in English dictionary.
func Default() *Dict {
	d, err := FromYAML(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("i18n: embedded dictionary: %v", err))
	}
	return d
}

// FromYAML parses a nested YAML mapping.
func FromYAML(data []byte) (*Dict, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid dictionary yaml: %w", err)
	}
	d := &Dict{entries: map[string]string{}}
	flatten("", raw, d.entries)
	return d, nil
}

// Load returns the default dictionary overlaid with the file at path, if any.
func Load(path string) (*Dict, error) {
	d := Default()
	if path == "" {
		return d, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return nil, err
	}
	override, err := FromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for k, v := range override.entries {
		d.entries[k] = v
	}
	return d, nil
}

// T returns the string for key, or the key itself when it is unknown.
func (d *Dict) T(key string) string {
	if d == nil {
		return key
	}
	if v, ok := d.entries[key]; ok {
		return v
	}
	return key
}

// Tf formats the string for key with args.
func (d *Dict) Tf(key string, args ...any) string {
	return fmt.Sprintf(d.T(key), args...)
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		case nil:
		default:
			out[key] = strings.TrimSpace(fmt.Sprint(val))
		}
	}
}
