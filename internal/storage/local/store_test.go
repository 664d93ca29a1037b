package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type progressRecord struct {
	XP     int      `json:"xp"`
	Level  int      `json:"level"`
	Badges []string `json:"badges"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "nested")

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store.BasePath() != dir {
		t.Errorf("BasePath() = %q; want %q", store.BasePath(), dir)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory, got file")
	}
}

func TestStore_SaveLoad_EmailID(t *testing.T) {
	store := newTestStore(t)

	want := progressRecord{XP: 40, Level: 3, Badges: []string{"marathoner"}}
	if err := store.Save("progress", "asha@example.com", want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var got progressRecord
	if err := store.Load("progress", "asha@example.com", &got); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.XP != 40 || got.Level != 3 || len(got.Badges) != 1 {
		t.Errorf("Load() = %+v; want %+v", got, want)
	}
}

func TestStore_Save_LeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		if err := store.Save("progress", "ravi@example.com", progressRecord{XP: i}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(store.BasePath(), "progress"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("collection has %v; want only the record file", names)
	}

	var got progressRecord
	store.Load("progress", "ravi@example.com", &got)
	if got.XP != 2 {
		t.Errorf("XP = %d; want 2 (last write wins)", got.XP)
	}
}

func TestStore_Load_NotFound(t *testing.T) {
	store := newTestStore(t)

	var rec progressRecord
	if err := store.Load("progress", "nobody@example.com", &rec); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v; want ErrNotFound", err)
	}
}

func TestStore_Load_CorruptFile(t *testing.T) {
	store := newTestStore(t)

	dir := filepath.Join(store.BasePath(), "progress")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644)

	var rec progressRecord
	err := store.Load("progress", "broken", &rec)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v; want decode error", err)
	}
}

func TestStore_InvalidIDs(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"", ".", "..", "../escape", `a\b`, "a/b", ".hidden"} {
		t.Run(fmt.Sprintf("id=%q", id), func(t *testing.T) {
			if err := store.Save("progress", id, progressRecord{}); !errors.Is(err, ErrInvalidID) {
				t.Errorf("Save() error = %v; want ErrInvalidID", err)
			}
			if store.Exists("progress", id) {
				t.Error("Exists() = true for invalid id")
			}
		})
	}

	if _, err := store.List("../outside"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("List() error = %v; want ErrInvalidID", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)

	store.Save("mistakes", "asha@example.com", []string{"q1"})

	if err := store.Delete("mistakes", "asha@example.com"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.Exists("mistakes", "asha@example.com") {
		t.Error("Exists() = true after Delete()")
	}
	if err := store.Delete("mistakes", "asha@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v; want ErrNotFound", err)
	}
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"c@x.io", "a@x.io", "b@x.io"} {
		store.Save("progress", id, progressRecord{})
	}

	ids, err := store.List("progress")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"a@x.io", "b@x.io", "c@x.io"}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Errorf("List() = %v; want %v", ids, want)
	}

	empty, err := store.List("never-written")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("List() on empty collection = %v", empty)
	}
}

func TestStore_Concurrency(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(3)
		id := fmt.Sprintf("user%d@example.com", i)
		go func(n int) {
			defer wg.Done()
			store.Save("progress", id, progressRecord{XP: n})
		}(i)
		go func() {
			defer wg.Done()
			store.List("progress")
		}()
		go func() {
			defer wg.Done()
			store.Exists("progress", id)
		}()
	}
	wg.Wait()

	ids, _ := store.List("progress")
	if len(ids) != 10 {
		t.Errorf("List() returned %d ids; want 10", len(ids))
	}
}
