package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/smileynet/phonebook/internal/contact"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	// Given a store in a directory that does not exist yet
	path := filepath.Join(t.TempDir(), "data", "phonebook.bin")
	store := NewFileStore(path)
	want := sampleContacts()

	// When Save is called
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Then a fresh store on the same path loads the same contacts
	got := NewFileStore(path).Load()
	assertSameContacts(t, got, want)
}

func TestFileStore_SaveInvalidUTF8KeepsPreviousFile(t *testing.T) {
	// Given a saved collection
	path := filepath.Join(t.TempDir(), "phonebook.bin")
	store := NewFileStore(path)
	want := sampleContacts()
	if err := store.Save(want); err != nil {
		t.Fatal(err)
	}

	// When a collection with an unreadable name is saved
	err := store.Save(append(sampleContacts(), contact.New("Bad\xffName")))

	// Then the save fails and the earlier contacts still load
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Save() error = %v, want ErrCorrupt", err)
	}
	assertSameContacts(t, NewFileStore(path).Load(), want)
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phonebook.bin")
	store := NewFileStore(path)

	if err := store.Save(sampleContacts()); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(sampleContacts()[:1]); err != nil {
		t.Fatal(err)
	}

	if got := store.Load(); len(got) != 1 {
		t.Errorf("Load() len = %d, want 1", len(got))
	}
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "phonebook.bin"))

	for i := 0; i < 3; i++ {
		if err := store.Save(sampleContacts()); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "phonebook.bin" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("directory entries = %v, want [phonebook.bin]", names)
	}
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	// Given a path with no file
	logger, logs := observedLogger()
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.bin"), WithLogger(logger))

	// When Load is called
	got := store.Load()

	// Then an empty, non-nil collection is returned and a warning logged
	if got == nil || len(got) != 0 {
		t.Errorf("Load() = %v, want empty collection", got)
	}
	if n := logs.FilterLevelExact(zapcore.WarnLevel).Len(); n != 1 {
		t.Errorf("warn logs = %d, want 1", n)
	}
}

func TestFileStore_LoadCorruptFile(t *testing.T) {
	// Given a file that is not in the phonebook format
	path := filepath.Join(t.TempDir(), "phonebook.bin")
	if err := os.WriteFile(path, []byte("\xac\xed\x00\x05sr\x00java.util.ArrayList"), 0o644); err != nil {
		t.Fatal(err)
	}
	logger, logs := observedLogger()
	store := NewFileStore(path, WithLogger(logger))

	// When Load is called
	got := store.Load()

	// Then the collection is empty and the failure is logged
	if len(got) != 0 {
		t.Errorf("Load() len = %d, want 0", len(got))
	}
	if n := logs.FilterMessage("loading contacts failed").Len(); n != 1 {
		t.Errorf("error logs = %d, want 1", n)
	}
}

func TestFileStore_ReadReportsErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileStore(filepath.Join(dir, "missing.bin")).Read()
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Read(missing) error = %v, want os.ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.bin")
	if err := os.WriteFile(bad, []byte("PHBK\x07"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = NewFileStore(bad).Read()
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("Read(bad) error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestFileStore_SaveFailureIsReportedAndLogged(t *testing.T) {
	// Given a data path whose parent is a regular file
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	logger, logs := observedLogger()
	store := NewFileStore(filepath.Join(blocker, "phonebook.bin"), WithLogger(logger))

	// When Save is called
	err := store.Save(sampleContacts())

	// Then the error is returned and logged
	if err == nil {
		t.Fatal("Save() error = nil, want error")
	}
	if n := logs.FilterMessage("saving contacts failed").Len(); n != 1 {
		t.Errorf("error logs = %d, want 1", n)
	}
}

func TestFileStore_Path(t *testing.T) {
	store := NewFileStore("data/phonebook.bin")
	if store.Path() != "data/phonebook.bin" {
		t.Errorf("Path() = %q, want %q", store.Path(), "data/phonebook.bin")
	}
}
