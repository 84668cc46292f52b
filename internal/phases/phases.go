// Package phases supplies phase lists for collaboration sessions: a built-in
// four-phase default and a YAML loader for custom lists. The coordinator
// accepts any ordered list; nothing here is mandatory beyond validation.
package phases

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quorumlabs/roundtable/pkg/models"
)

// Default returns the standard Planning/Implementation/Testing/Review list.
func Default() []models.Phase {
	return []models.Phase{
		{
			Name:        "Planning",
			Description: "Break the objective into tasks and agree on an approach",
			Owner:       models.RolePlanner,
			MaxDuration: 30 * time.Minute,
			Deliverables: []string{
				"task breakdown",
				"approach outline",
			},
			AcceptanceCriteria: []string{
				"every task has an owner",
				"open questions are recorded as decisions",
			},
		},
		{
			Name:        "Implementation",
			Description: "Build the agreed tasks",
			Owner:       models.RoleImplementer,
			MaxDuration: 2 * time.Hour,
			Deliverables: []string{
				"working code for each task",
			},
			AcceptanceCriteria: []string{
				"changes recorded as created or modified artifacts",
			},
		},
		{
			Name:        "Testing",
			Description: "Verify the implementation against the objective",
			Owner:       models.RoleTester,
			MaxDuration: time.Hour,
			Deliverables: []string{
				"test results",
			},
			AcceptanceCriteria: []string{
				"failures filed as decisions with affected agents",
			},
		},
		{
			Name:        "Review",
			Description: "Walk through outcomes and close out the session",
			Owner:       models.PhaseOwnerAll,
			MaxDuration: 30 * time.Minute,
			Deliverables: []string{
				"meeting minutes",
			},
		},
	}
}

// phaseFile is the YAML shape. Durations are parsed with time.ParseDuration
// ("30m", "2h"), since yaml.v3 does not decode time.Duration from strings.
type phaseFile struct {
	Phases []struct {
		Name               string   `yaml:"name"`
		Description        string   `yaml:"description"`
		Owner              string   `yaml:"owner"`
		MaxDuration        string   `yaml:"max_duration"`
		Deliverables       []string `yaml:"deliverables"`
		AcceptanceCriteria []string `yaml:"acceptance_criteria"`
	} `yaml:"phases"`
}

// Parse decodes and validates a YAML phase list.
func Parse(data []byte) ([]models.Phase, error) {
	var f phaseFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse phase list: %w", err)
	}
	if len(f.Phases) == 0 {
		return nil, fmt.Errorf("phase list is empty")
	}

	out := make([]models.Phase, 0, len(f.Phases))
	for i, p := range f.Phases {
		if p.Name == "" {
			return nil, fmt.Errorf("phase %d: name required", i)
		}
		switch p.Owner {
		case models.RolePlanner, models.RoleImplementer, models.RoleTester, models.PhaseOwnerAll:
		default:
			return nil, fmt.Errorf("phase %s: unknown owner role %q", p.Name, p.Owner)
		}
		var d time.Duration
		if p.MaxDuration != "" {
			var err error
			d, err = time.ParseDuration(p.MaxDuration)
			if err != nil {
				return nil, fmt.Errorf("phase %s: bad max_duration: %w", p.Name, err)
			}
			if d <= 0 {
				return nil, fmt.Errorf("phase %s: max_duration must be positive", p.Name)
			}
		}
		out = append(out, models.Phase{
			Name:               p.Name,
			Description:        p.Description,
			Owner:              p.Owner,
			MaxDuration:        d,
			Deliverables:       p.Deliverables,
			AcceptanceCriteria: p.AcceptanceCriteria,
		})
	}
	return out, nil
}

// Load reads and parses a YAML phase list file.
func Load(path string) ([]models.Phase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phase list: %w", err)
	}
	return Parse(data)
}
