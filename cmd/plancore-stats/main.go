// Command plancore-stats prints aggregate action-plan statistics for the
// configured storage backend as JSON. The backend is selected through the
// PLANCORE_STORAGE_* environment variables.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"plancore/internal/core"
)

func main() {
	if err := run(os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "plancore-stats:", err)
		os.Exit(1)
	}
}

func run(w io.Writer) error {
	store, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	svc := core.NewService(store)
	stats, err := svc.PlanStatistics(context.Background())
	if err != nil {
		return fmt.Errorf("collect statistics: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
