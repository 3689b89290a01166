package application

import (
	"context"
	"strings"
	"testing"
)

// FuzzConfigLoader_LoadFromReader feeds arbitrary YAML to the loader. It
// must never panic, and anything it accepts must compile to a snapshot
// whose tournament ID is set.
func FuzzConfigLoader_LoadFromReader(f *testing.F) {
	seeds := []string{
		minimalYAML,
		minimalYAML + "options:\n  panel_size: 4\n",
		minimalYAML + "break_categories:\n  - {id: open, name: Open, break_size: 4, institution_cap: 1}\n",
		minimalYAML + "roster:\n  teams:\n    - {id: a, name: A, institution: nowhere}\n",
		"version: \"1.0.0\ntournament:\n",
		"tournament: [1, 2, 3]",
		"",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	loader, err := NewConfigLoader()
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, data string) {
		tour, err := loader.LoadFromReader(context.Background(), strings.NewReader(data))
		if err != nil {
			return
		}
		if tour.Snapshot.TournamentID == "" {
			t.Fatalf("accepted config without a tournament ID: %q", data)
		}
	})
}
