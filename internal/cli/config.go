package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/atlastales/storygraph/internal/util"
)

// Config holds the conversion options a run starts from. Values come from
// the environment first and an optional YAML file second.
type Config struct {
	Portal              string `yaml:"portal"`
	Token               string `yaml:"token"`
	Engine              string `yaml:"engine"`
	SuppressMetadata    bool   `yaml:"suppressMetadata"`
	ParallelEnrichments int    `yaml:"parallelEnrichments"`
	Retries             int    `yaml:"retries"`
}

func loadConfig(path string) (*Config, error) {
	cfg := &Config{
		Portal:              util.GetEnvString("STORYGRAPH_PORTAL", "https://www.arcgis.com"),
		Token:               util.GetEnvString("STORYGRAPH_TOKEN", ""),
		Engine:              util.GetEnvString("STORYGRAPH_ENGINE", "dom"),
		ParallelEnrichments: util.GetEnvInt("STORYGRAPH_PARALLEL_ENRICHMENTS", 4),
		Retries:             util.GetEnvInt("STORYGRAPH_RETRIES", 1),
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
