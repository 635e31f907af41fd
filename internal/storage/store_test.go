package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pixil98/go-testutil"
)

type mockStoreSpec struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func (s *mockStoreSpec) Validate() error {
	return nil
}

func writeAsset(t *testing.T, path string, asset Asset[*mockStoreSpec]) {
	t.Helper()
	data, err := json.Marshal(asset)
	if err != nil {
		t.Fatalf("failed to marshal test asset: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
}

func TestNewFileStore(t *testing.T) {
	tests := map[string]struct {
		setup    func(t *testing.T, dir string)
		expCount int
		expErr   string
	}{
		"empty directory": {
			setup: func(*testing.T, string) {},
		},
		"existing assets": {
			setup: func(t *testing.T, dir string) {
				writeAsset(t, filepath.Join(dir, "item-1.json"), Asset[*mockStoreSpec]{Version: 1, Identifier: "item-1", Spec: &mockStoreSpec{Name: "First", Value: 1}})
				writeAsset(t, filepath.Join(dir, "item-2.json"), Asset[*mockStoreSpec]{Version: 1, Identifier: "item-2", Spec: &mockStoreSpec{Name: "Second", Value: 2}})
			},
			expCount: 2,
		},
		"ignores other files": {
			setup: func(t *testing.T, dir string) {
				writeAsset(t, filepath.Join(dir, "valid.json"), Asset[*mockStoreSpec]{Version: 1, Identifier: "valid", Spec: &mockStoreSpec{}})
				_ = os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignore me"), 0644)
				_ = os.WriteFile(filepath.Join(dir, "valid.json.tmp"), []byte("{half"), 0644)
			},
			expCount: 1,
		},
		"invalid json": {
			setup: func(t *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{invalid json`), 0644)
			},
			expErr: "unmarshalling asset",
		},
		"validation error": {
			setup: func(t *testing.T, dir string) {
				writeAsset(t, filepath.Join(dir, "test.json"), Asset[*mockStoreSpec]{Identifier: "test", Spec: &mockStoreSpec{}})
			},
			expErr: "version must be set",
		},
		"duplicate key": {
			setup: func(t *testing.T, dir string) {
				asset := Asset[*mockStoreSpec]{Version: 1, Identifier: "dup", Spec: &mockStoreSpec{}}
				writeAsset(t, filepath.Join(dir, "file1.json"), asset)
				writeAsset(t, filepath.Join(dir, "file2.json"), asset)
			},
			expErr: "duplicate key detected: dup",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)

			store, err := NewFileStore[*mockStoreSpec](dir)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "record count", len(store.GetAll()), tt.expCount)
		})
	}
}

func TestNewFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "bans")

	_, err := NewFileStore[*mockStoreSpec](dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("expected directory to exist: %v", err)
	}
	testutil.AssertEqual(t, "is dir", info.IsDir(), true)
}

func TestFileStore_SaveAndGet(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore[*mockStoreSpec](dir)
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}

	if err := store.Save("test_id", &mockStoreSpec{Name: "Initial", Value: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Save("test_id", &mockStoreSpec{Name: "Updated", Value: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cached, ok := store.Get("test_id")
	testutil.AssertEqual(t, "found", ok, true)
	testutil.AssertEqual(t, "name", cached.Name, "Updated")
	testutil.AssertEqual(t, "value", cached.Value, 2)

	_, ok = store.Get("missing")
	testutil.AssertEqual(t, "missing found", ok, false)

	reloaded, err := NewFileStore[*mockStoreSpec](dir)
	if err != nil {
		t.Fatalf("reloading store: %v", err)
	}
	persisted, ok := reloaded.Get("test_id")
	testutil.AssertEqual(t, "persisted", ok, true)
	testutil.AssertEqual(t, "persisted name", persisted.Name, "Updated")
}

func TestFileStore_SaveInvalidId(t *testing.T) {
	store, err := NewFileStore[*mockStoreSpec](t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}

	for _, id := range []string{"", "../escape", "with space"} {
		err := store.Save(id, &mockStoreSpec{})
		testutil.AssertErrorContains(t, err, "invalid record id")
	}
	testutil.AssertEqual(t, "records", len(store.GetAll()), 0)
}

func TestFileStore_GetAllReturnsCopy(t *testing.T) {
	store, err := NewFileStore[*mockStoreSpec](t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}
	_ = store.Save("one", &mockStoreSpec{Name: "One"})
	_ = store.Save("two", &mockStoreSpec{Name: "Two"})

	all := store.GetAll()
	delete(all, "one")

	testutil.AssertEqual(t, "store unchanged", len(store.GetAll()), 2)
}

func TestFileStore_Delete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore[*mockStoreSpec](dir)
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}
	_ = store.Save("gone", &mockStoreSpec{})

	if err := store.Delete("gone"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, ok := store.Get("gone")
	testutil.AssertEqual(t, "cached", ok, false)

	_, err = os.Stat(filepath.Join(dir, "gone.json"))
	if !os.IsNotExist(err) {
		t.Errorf("expected file to be removed, got %v", err)
	}

	if err := store.Delete("never-existed"); err != nil {
		t.Errorf("deleting a missing record: %v", err)
	}
}
