package main

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
)

// parseAssignments turns path=value arguments into a form data patch.
// Values are kept as strings; path:=value decodes the value as YAML so
// numbers, booleans and lists can be entered. An empty value deletes the
// path.
func parseAssignments(args []string) (map[string]any, error) {
	patch := make(map[string]any, len(args))
	for _, arg := range args {
		idx := strings.Index(arg, "=")
		if idx <= 0 {
			return nil, fmt.Errorf("invalid assignment %q: expected path=value", arg)
		}

		path := arg[:idx]
		raw := arg[idx+1:]
		typed := strings.HasSuffix(path, ":")
		if typed {
			path = strings.TrimSuffix(path, ":")
		}
		path = strings.TrimSpace(path)
		if err := domain.ParsePath(path); err != nil {
			return nil, fmt.Errorf("invalid assignment %q: %w", arg, err)
		}

		if strings.TrimSpace(raw) == "" {
			patch[path] = nil
			continue
		}
		if !typed {
			patch[path] = raw
			continue
		}

		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", path, err)
		}
		patch[path] = value
	}
	return patch, nil
}
