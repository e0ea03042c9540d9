package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLimitFlag(t *testing.T) {
	if limitFlag(0) != nil {
		t.Error("Expected 0 to mean unbounded")
	}
	if limitFlag(-5) != nil {
		t.Error("Expected negative to mean unbounded")
	}
	if got := limitFlag(3600); got == nil || *got != 3600 {
		t.Errorf("Expected 3600, got %v", got)
	}
}

func TestSnapshotGroupsFromFlags(t *testing.T) {
	snapFromFile = ""
	snapGroup, snapRunning, snapPending, snapFailed = "web", 3, 1, 0
	t.Cleanup(func() { snapGroup, snapRunning, snapPending, snapFailed = "default", 0, 0, 0 })

	groups, err := snapshotGroups()
	if err != nil {
		t.Fatalf("snapshotGroups failed: %v", err)
	}
	if len(groups) != 1 || groups[0].GroupID != "web" || groups[0].Running != 3 || groups[0].Pending != 1 {
		t.Errorf("Unexpected groups: %+v", groups)
	}
}

func TestSnapshotGroupsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.json")
	data := `[{"group_id":"a","running":2},{"group_id":"b","failed":1}]`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	snapFromFile = path
	t.Cleanup(func() { snapFromFile = "" })

	groups, err := snapshotGroups()
	if err != nil {
		t.Fatalf("snapshotGroups failed: %v", err)
	}
	if len(groups) != 2 || groups[1].GroupID != "b" || groups[1].Failed != 1 {
		t.Errorf("Unexpected groups: %+v", groups)
	}
}

func TestSnapshotGroupsFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.json")
	if err := os.WriteFile(path, []byte(`[{"group_id":"a","running":-1}]`), 0644); err != nil {
		t.Fatal(err)
	}
	snapFromFile = path
	t.Cleanup(func() { snapFromFile = "" })

	if _, err := snapshotGroups(); err == nil {
		t.Error("Expected negative counts to be rejected")
	}
}
