// Simulator configuration.

// The configuration is loaded from a YAML file, with the following structure:
//
//  simulator_config:
//    scheduling_time_sec: 0
//    min_scheduling_interval_sec: 0
//    trace: false
//    network_config:
//      kind: simple
//      bandwidth: 100e6
//    log_config:
//      ...
//
// A driver (out of scope for this module) may load a YAML document of this
// shape, turn the resulting *SimulatorConfig into *SimulatorOptions with
// SimulatorOptionsFromConfig and pass those to NewSimulator; in-process
// callers, notably tests, construct SimulatorOptions directly and never touch
// YAML at all.

package simcore

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	SIMULATOR_CONFIG_SECTION_NAME = "simulator_config"

	NETMODEL_KIND_INSTANT = "instant"
	NETMODEL_KIND_SIMPLE  = "simple"

	NETMODEL_KIND_DEFAULT      = NETMODEL_KIND_INSTANT
	NETMODEL_BANDWIDTH_DEFAULT = 0.
)

// NetworkConfig selects and parameterizes the network model (component B).
type NetworkConfig struct {
	// "instant" or "simple":
	Kind string `yaml:"kind"`
	// Bytes/second, only meaningful for "simple":
	Bandwidth float64 `yaml:"bandwidth"`
}

func DefaultNetworkConfig() *NetworkConfig {
	return &NetworkConfig{
		Kind:      NETMODEL_KIND_DEFAULT,
		Bandwidth: NETMODEL_BANDWIDTH_DEFAULT,
	}
}

// SimulatorConfig carries every knob the Simulator constructor in spec.md
// §6 takes, so a driver can hand the simulator a single YAML document
// instead of positional arguments.
type SimulatorConfig struct {
	// Simulated seconds consumed by the scheduler after each scheduling
	// point before assignments take effect. Zero means no overhead.
	SchedulingTime float64 `yaml:"scheduling_time_sec"`

	// If >0, the simulator additionally wakes the scheduler every this many
	// simulated seconds, even absent any other triggering event.
	MinSchedulingInterval float64 `yaml:"min_scheduling_interval_sec"`

	// Whether to keep a full event trace for post-mortem inspection.
	Trace bool `yaml:"trace"`

	NetworkConfig *NetworkConfig `yaml:"network_config"`
	LoggerConfig  *LoggerConfig  `yaml:"log_config"`
}

func DefaultSimulatorConfig() *SimulatorConfig {
	return &SimulatorConfig{
		SchedulingTime:        0,
		MinSchedulingInterval: 0,
		Trace:                 false,
		NetworkConfig:         DefaultNetworkConfig(),
		LoggerConfig:          DefaultLoggerConfig(),
	}
}

// LoadConfig loads the configuration from the specified YAML file (or buf,
// for testing), returning a *SimulatorConfig primed with defaults for any
// field the document does not set.
func LoadConfig(cfgFile string, buf []byte) (*SimulatorConfig, error) {
	if buf == nil {
		f, err := os.Open(cfgFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		buf, err = io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
		}
	}

	docNode := yaml.Node{}
	if err := yaml.Unmarshal(buf, &docNode); err != nil {
		return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
	}

	simCfg := DefaultSimulatorConfig()
	if docNode.Kind == yaml.DocumentNode && len(docNode.Content) > 0 {
		rootNode := docNode.Content[0]
		if rootNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("file: %q: invalid YAML root node %q", cfgFile, rootNode.Tag)
		}
		for i := 0; i+1 < len(rootNode.Content); i += 2 {
			keyNode, valNode := rootNode.Content[i], rootNode.Content[i+1]
			if keyNode.Value != SIMULATOR_CONFIG_SECTION_NAME {
				continue
			}
			if valNode.Kind == yaml.MappingNode {
				if err := valNode.Decode(simCfg); err != nil {
					return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
				}
			}
		}
	}

	return simCfg, nil
}
