package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

type failingStore struct{ MemoryStore }

func (f *failingStore) Save(context.Context, Preferences) error {
	return errors.New("disk full")
}

func TestNewUsesDefaults(t *testing.T) {
	s, err := New(context.Background(), &MemoryStore{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.Current(); got != Defaults() {
		t.Errorf("Current = %+v, want defaults", got)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	store := &MemoryStore{}
	s, _ := New(ctx, store)

	got, err := s.Update(ctx, func(p *Preferences) {
		p.RowHeight = RowHeightCompact
		p.PageSize = 100
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.RowHeight != RowHeightCompact || got.PageSize != 100 {
		t.Errorf("Update returned %+v", got)
	}

	saved, ok, _ := store.Load(ctx)
	if !ok || saved != got {
		t.Errorf("saved = %+v, %v", saved, ok)
	}
}

func TestUpdateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s, _ := New(ctx, &MemoryStore{})

	_, err := s.Update(ctx, func(p *Preferences) {
		p.RowHeight = "huge"
		p.PageSize = 1
	})
	if !errors.Is(err, ErrInvalidPreferences) {
		t.Fatalf("err = %v, want ErrInvalidPreferences", err)
	}
	if s.Current() != Defaults() {
		t.Errorf("invalid update leaked: %+v", s.Current())
	}
}

func TestUpdateRollsBackOnSaveError(t *testing.T) {
	ctx := context.Background()
	s, _ := New(ctx, &failingStore{})

	got, err := s.Update(ctx, func(p *Preferences) { p.Deduplicate = false })
	if err == nil {
		t.Fatal("expected save error")
	}
	if !got.Deduplicate || !s.Current().Deduplicate {
		t.Errorf("preferences not rolled back: %+v", s.Current())
	}
}

func TestBoltStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")

	store, err := OpenBoltStore(path)
	if err != nil {
		t.Fatalf("OpenBoltStore: %v", err)
	}
	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("Load on empty store = %v, %v", ok, err)
	}

	want := Preferences{RowHeight: RowHeightExpanded, PageSize: 25, HasHeader: false, Deduplicate: true}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenBoltStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	s, err := New(ctx, reopened)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Current() != want {
		t.Errorf("Current = %+v, want %+v", s.Current(), want)
	}
	hasHeader, dedupe := s.ImportDefaults()
	if hasHeader || !dedupe {
		t.Errorf("ImportDefaults = %v, %v", hasHeader, dedupe)
	}
}
