package types

import "testing"

func TestCounts(t *testing.T) {
	r := &RunReport{Files: []FileReport{
		{Elements: []ElementReport{{Status: StatusInserted}, {Status: StatusTODO}, {Status: StatusInserted}}},
		{Error: "boom"},
		{Elements: []ElementReport{{Status: StatusFiltered}}},
	}}

	c := r.Counts()
	if c[StatusInserted] != 2 || c[StatusTODO] != 1 || c[StatusFiltered] != 1 {
		t.Errorf("Counts() = %v", c)
	}
	if got := r.Files[0].Count(StatusInserted); got != 2 {
		t.Errorf("Count(inserted) = %d, want 2", got)
	}
	if failed := r.Failed(); len(failed) != 1 || failed[0].Error != "boom" {
		t.Errorf("Failed() = %v", failed)
	}
}

func TestStatusesComplete(t *testing.T) {
	seen := make(map[Status]bool)
	for _, s := range Statuses {
		if seen[s] {
			t.Errorf("duplicate status %q", s)
		}
		seen[s] = true
	}
	if len(seen) != 7 {
		t.Errorf("got %d statuses, want 7", len(seen))
	}
}
