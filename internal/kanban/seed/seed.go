// Package seed embeds the default pipeline definition applied to tenants
// that have no stages yet.
package seed

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed stages.yaml
var stagesYAML []byte

// Stage is one column of the default pipeline.
type Stage struct {
	Key       string `yaml:"key"`
	Label     string `yaml:"label"`
	SortOrder int    `yaml:"sort_order"`
	WipLimit  *int   `yaml:"wip_limit"`
	IsClosed  bool   `yaml:"is_closed"`
}

type stageFile struct {
	Stages []Stage `yaml:"stages"`
}

// DefaultStages returns the embedded pipeline definition.
func DefaultStages() ([]Stage, error) {
	var f stageFile
	if err := yaml.Unmarshal(stagesYAML, &f); err != nil {
		return nil, fmt.Errorf("parse embedded stages: %w", err)
	}
	if len(f.Stages) == 0 {
		return nil, fmt.Errorf("embedded stages file is empty")
	}
	return f.Stages, nil
}
