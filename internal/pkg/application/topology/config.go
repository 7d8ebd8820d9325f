package topology

import (
	"fmt"
	"io"
	"time"

	"github.com/diwise/osm-topology/pkg/client"
	"github.com/diwise/osm-topology/pkg/osm/geojson"
	yaml "gopkg.in/yaml.v2"
)

type Area struct {
	ID              string        `yaml:"id"`
	Name            string        `yaml:"name"`
	BBox            client.BBox   `yaml:"bbox"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

type Config struct {
	Areas []Area        `yaml:"areas"`
	Style geojson.Style `yaml:"style"`
}

func (cfg *Config) Area(id string) (Area, bool) {
	for _, a := range cfg.Areas {
		if a.ID == id {
			return a, true
		}
	}
	return Area{}, false
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}

	for _, area := range cfg.Areas {
		if area.ID == "" {
			return nil, fmt.Errorf("area %q has no id", area.Name)
		}
		if seen[area.ID] {
			return nil, fmt.Errorf("area %q is configured more than once", area.ID)
		}
		seen[area.ID] = true

		if err := area.BBox.Validate(); err != nil {
			return nil, fmt.Errorf("area %q: %w", area.ID, err)
		}
		if area.RefreshInterval < 0 {
			return nil, fmt.Errorf("area %q has a negative refresh interval", area.ID)
		}
	}

	return cfg, nil
}
