package simulator

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/cityguard/core/model"
)

// ObserverTemplate overrides generated values for one observer. Nil fields
// keep the generated value.
type ObserverTemplate struct {
	X       *int     `yaml:"x"`
	Y       *int     `yaml:"y"`
	Speed   *float64 `yaml:"speed"`
	Heading *float64 `yaml:"heading"`
}

func (t ObserverTemplate) apply(pos model.Position, speed, heading float64) (model.Position, float64, float64) {
	if t.X != nil {
		pos.X = *t.X
	}
	if t.Y != nil {
		pos.Y = *t.Y
	}
	if t.Speed != nil {
		speed = *t.Speed
	}
	if t.Heading != nil {
		heading = *t.Heading
	}
	return pos, speed, heading
}

type layoutFile struct {
	Observers []struct {
		ID               string `yaml:"id"`
		ObserverTemplate `yaml:",inline"`
	} `yaml:"observers"`
}

// LoadLayout parses a YAML fleet layout:
//
//	observers:
//	  - id: obs0001
//	    x: 3
//	    y: 4
//	    speed: 42
func LoadLayout(data []byte) (map[string]ObserverTemplate, error) {
	var f layoutFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	out := make(map[string]ObserverTemplate, len(f.Observers))
	for i, o := range f.Observers {
		if o.ID == "" {
			return nil, fmt.Errorf("layout entry %d has no id", i)
		}
		if _, dup := out[o.ID]; dup {
			return nil, fmt.Errorf("layout lists %s twice", o.ID)
		}
		out[o.ID] = o.ObserverTemplate
	}
	return out, nil
}

// LoadLayoutFile reads and parses the layout at path.
func LoadLayoutFile(path string) (map[string]ObserverTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadLayout(data)
}

func sortedTemplateIDs(m map[string]ObserverTemplate) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
