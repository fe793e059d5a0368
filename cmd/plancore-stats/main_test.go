package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"plancore/internal/core"
)

func TestRunPrintsStatisticsJSON(t *testing.T) {
	t.Setenv("PLANCORE_STORAGE_DRIVER", "memory")

	var buf bytes.Buffer
	if err := run(&buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	var stats core.Statistics
	if err := json.Unmarshal(buf.Bytes(), &stats); err != nil {
		t.Fatalf("decode output: %v\n%s", err, buf.String())
	}
	if stats.Plans != 0 {
		t.Fatalf("fresh memory store must report zero plans: %+v", stats)
	}
}

func TestRunFailsOnUnknownDriver(t *testing.T) {
	t.Setenv("PLANCORE_STORAGE_DRIVER", "bogus")
	var buf bytes.Buffer
	if err := run(&buf); err == nil {
		t.Fatalf("unknown driver must error")
	}
}
