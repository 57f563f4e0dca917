package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	stepwiseerrors "github.com/alexisbeaulieu97/stepwise/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParseFlow loads a flow file from disk, validates it, and returns the resulting model.
func ParseFlow(path string) (*Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stepwiseerrors.NewParseError(path, 0, err)
	}
	return ParseFlowData(path, data)
}

// ParseFlowData decodes and validates a flow held in memory. path is only
// used in error messages.
func ParseFlowData(path string, data []byte) (*Flow, error) {
	var flow Flow
	if err := yaml.Unmarshal(data, &flow); err != nil {
		return nil, stepwiseerrors.NewParseError(path, extractLine(err), err)
	}

	if err := ValidateFlow(&flow); err != nil {
		return nil, err
	}

	return &flow, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
