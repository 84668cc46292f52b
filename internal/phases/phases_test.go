package phases

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quorumlabs/roundtable/pkg/models"
)

func TestDefault(t *testing.T) {
	t.Parallel()
	got := Default()
	if len(got) != 4 {
		t.Fatalf("default phase count: %d", len(got))
	}
	wantOwners := []string{models.RolePlanner, models.RoleImplementer, models.RoleTester, models.PhaseOwnerAll}
	for i, p := range got {
		if p.Owner != wantOwners[i] {
			t.Fatalf("phase %d owner: got %s, want %s", i, p.Owner, wantOwners[i])
		}
		if p.MaxDuration <= 0 {
			t.Fatalf("phase %s has no duration budget", p.Name)
		}
	}
}

func TestParse(t *testing.T) {
	t.Parallel()
	src := []byte(`
phases:
  - name: Spike
    description: Prototype the risky part first
    owner: implementer
    max_duration: 45m
    deliverables:
      - throwaway prototype
  - name: Wrap-up
    owner: all
    max_duration: 15m
`)
	got, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("phase count: %d", len(got))
	}
	if got[0].MaxDuration != 45*time.Minute || got[0].Owner != models.RoleImplementer {
		t.Fatalf("first phase: %+v", got[0])
	}
	if len(got[0].Deliverables) != 1 {
		t.Fatalf("deliverables: %v", got[0].Deliverables)
	}
}

func TestParse_errors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		src  string
	}{
		{"empty", "phases: []"},
		{"missing name", "phases:\n  - owner: planner\n"},
		{"bad owner", "phases:\n  - name: X\n    owner: manager\n"},
		{"bad duration", "phases:\n  - name: X\n    owner: all\n    max_duration: soon\n"},
		{"negative duration", "phases:\n  - name: X\n    owner: all\n    max_duration: -5m\n"},
		{"not yaml", "{{{"},
	}
	for _, tc := range cases {
		if _, err := Parse([]byte(tc.src)); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "phases.yaml")
	src := "phases:\n  - name: Only\n    owner: all\n    max_duration: 10m\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Only" {
		t.Fatalf("loaded: %+v", got)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
