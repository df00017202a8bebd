package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// jobsFile is the expected shape of the jobs input file:
// {"jobs": ["url1", ...]} as JSON, or the same as YAML.
type jobsFile struct {
	Jobs []string `json:"jobs" yaml:"jobs"`
}

func loadJobURLs(path string, maxJobs int) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading jobs file: %w", err)
	}

	var parsed jobsFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
		}
	}

	if len(parsed.Jobs) == 0 {
		return nil, fmt.Errorf("%s must contain a non-empty \"jobs\" list", path)
	}
	if len(parsed.Jobs) > maxJobs {
		return nil, fmt.Errorf("%s lists %d jobs, maximum is %d", path, len(parsed.Jobs), maxJobs)
	}

	for i, url := range parsed.Jobs {
		url = strings.TrimSpace(url)
		if url == "" {
			return nil, fmt.Errorf("%s: job %d is empty", path, i+1)
		}
		parsed.Jobs[i] = url
	}

	return parsed.Jobs, nil
}
