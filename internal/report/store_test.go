package report

import (
	"testing"
	"time"
)

func testRecord(id string) *Record {
	return &Record{
		ID:     id,
		When:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Status: Pass,
		Files: []FileCoverage{
			{File: "src/lib.rs", Lines: 100, MissedLines: 10, LineCover: 90.0},
			{File: "src/iter.rs", Lines: 50, MissedLines: 50, LineCover: 0.0},
		},
	}
}

func TestDiskStore_RoundTrip(t *testing.T) {
	s := NewDiskStore()
	rec := testRecord("run-1")
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load("run-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != rec.ID || got.Status != rec.Status {
		t.Errorf("Load = %+v, want %+v", got, rec)
	}
	if len(got.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(got.Files))
	}
	if got.Files[0].LineCover != 90.0 {
		t.Errorf("Files[0].LineCover = %v, want 90.0", got.Files[0].LineCover)
	}
}

func TestDiskStore_LoadMissing(t *testing.T) {
	s := NewDiskStore()
	if _, err := s.Load("no-such-run"); err == nil {
		t.Fatal("expected error for missing record")
	}
}

func TestLRUStore_EvictsToBackingStore(t *testing.T) {
	back := NewDiskStore()
	s := NewLRUStore(2, back)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Save(testRecord(id)); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}

	// "a" was evicted from the cache but survives on disk.
	got, err := s.Load("a")
	if err != nil {
		t.Fatalf("Load(a): %v", err)
	}
	if got.ID != "a" {
		t.Errorf("ID = %q, want a", got.ID)
	}
}

func TestDiskStore_List(t *testing.T) {
	s := NewDiskStore()

	if recs, err := s.List(); err != nil || len(recs) != 0 {
		t.Fatalf("List on empty store = %v, %v, want none", recs, err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		rec := testRecord(id)
		rec.When = base.Add(time.Duration(i) * time.Hour)
		if err := s.Save(rec); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}

	recs, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len(List()) = %d, want 3", len(recs))
	}
	// Newest first.
	for i, want := range []string{"new", "mid", "old"} {
		if recs[i].ID != want {
			t.Errorf("recs[%d].ID = %q, want %q", i, recs[i].ID, want)
		}
	}
}

func TestLRUStore_ListIncludesEvicted(t *testing.T) {
	s := NewLRUStore(1, NewDiskStore())

	for _, id := range []string{"a", "b"} {
		if err := s.Save(testRecord(id)); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}

	// "a" was evicted from the cache; List still sees it via the
	// backing store.
	recs, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("len(List()) = %d, want 2", len(recs))
	}
}

func TestFilesMatching(t *testing.T) {
	rec := testRecord("run-1")

	if got := rec.FilesMatching(""); len(got) != 2 {
		t.Errorf("FilesMatching(\"\") = %d rows, want 2", len(got))
	}
	got := rec.FilesMatching("lib")
	if len(got) != 1 || got[0].File != "src/lib.rs" {
		t.Errorf("FilesMatching(lib) = %v, want the lib.rs row", got)
	}
	if got := rec.FilesMatching("zzz"); len(got) != 0 {
		t.Errorf("FilesMatching(zzz) = %v, want none", got)
	}
}
