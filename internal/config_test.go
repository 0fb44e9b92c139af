package simcore

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type LoadConfigTestCase struct {
	Name    string
	Data    string
	Want    *SimulatorConfig
	WantErr bool
}

func testLoadConfig(t *testing.T, tc *LoadConfigTestCase) {
	got, err := LoadConfig("", []byte(strings.ReplaceAll(tc.Data, "\t", "  ")))
	if tc.WantErr {
		if err == nil {
			t.Fatalf("want error, got nil")
		}
		return
	}
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(tc.Want, got); diff != "" {
		t.Fatalf("SimulatorConfig mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg1 := DefaultSimulatorConfig()
	cfg1.SchedulingTime = 2
	cfg1.MinSchedulingInterval = 10

	cfg2 := DefaultSimulatorConfig()
	cfg2.NetworkConfig.Kind = NETMODEL_KIND_SIMPLE
	cfg2.NetworkConfig.Bandwidth = 2e6

	cfg3 := DefaultSimulatorConfig()
	cfg3.LoggerConfig.Level = "debug"
	cfg3.Trace = true

	for _, tc := range []*LoadConfigTestCase{
		{
			Name: "default",
			Want: DefaultSimulatorConfig(),
		},
		{
			Name: "empty_section",
			Data: `
				simulator_config:
			`,
			Want: DefaultSimulatorConfig(),
		},
		{
			Name: "scheduling_timing",
			Data: `
				simulator_config:
					scheduling_time_sec: 2
					min_scheduling_interval_sec: 10
			`,
			Want: cfg1,
		},
		{
			Name: "network_config",
			Data: `
				simulator_config:
					network_config:
						kind: simple
						bandwidth: 2000000
			`,
			Want: cfg2,
		},
		{
			Name: "log_and_trace",
			Data: `
				simulator_config:
					trace: true
					log_config:
						level: debug
			`,
			Want: cfg3,
		},
		{
			Name: "unrelated_section_ignored",
			Data: `
				other_config:
					foo: bar
			`,
			Want: DefaultSimulatorConfig(),
		},
		{
			Name:    "invalid_root",
			Data:    "- not a mapping",
			WantErr: true,
		},
	} {
		t.Run(tc.Name, func(t *testing.T) { testLoadConfig(t, tc) })
	}
}
