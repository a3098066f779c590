package probes

import "testing"

func TestGetAllDescriptions(t *testing.T) {
	descs := GetAllDescriptions()
	if len(descs) != 3 {
		t.Fatalf("expected 3 probes, got %d", len(descs))
	}

	seen := make(map[string]bool)
	for _, d := range descs {
		if d.Name == "" || d.Description == "" || d.Version == "" {
			t.Errorf("incomplete description: %+v", d)
		}
		if seen[d.Subcommand] {
			t.Errorf("duplicate subcommand %q", d.Subcommand)
		}
		seen[d.Subcommand] = true
	}
}

func TestNames(t *testing.T) {
	want := []string{"file-relocation", "health-upload", "patient-summary"}
	got := Names()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
