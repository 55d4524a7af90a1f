package deck

import (
	"path/filepath"
	"testing"

	"github.com/conorfennell/decksched/internal/domain"
	"github.com/conorfennell/decksched/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.DB) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "col.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	s, err := NewService(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return s, store
}

func TestCreateBuildsMissingAncestors(t *testing.T) {
	s, _ := newTestService(t)
	leaf, err := s.Create("Go::Stdlib::Context")
	if err != nil {
		t.Fatal(err)
	}
	if leaf.Name != "Go::Stdlib::Context" {
		t.Fatalf("leaf name = %q", leaf.Name)
	}
	for _, name := range []string{"Go", "Go::Stdlib"} {
		if _, ok := s.ByName(name); !ok {
			t.Fatalf("ancestor %q not created", name)
		}
	}

	parents, err := s.Parents(leaf.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(parents) != 2 || parents[0].Name != "Go" || parents[1].Name != "Go::Stdlib" {
		t.Fatalf("parents = %v, want root-first [Go, Go::Stdlib]", parents)
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	s, _ := newTestService(t)
	a, err := s.Create("Go")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Create("Go")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Fatalf("duplicate create returned a second deck: %d and %d", a.ID, b.ID)
	}
}

func TestCreateRejectsBadNames(t *testing.T) {
	s, _ := newTestService(t)
	for _, name := range []string{"", "Go:: ::Sub", "::Go"} {
		if _, err := s.Create(name); err == nil {
			t.Errorf("Create(%q) accepted", name)
		}
	}
}

func TestChildrenExcludeUnrelatedPrefixes(t *testing.T) {
	s, _ := newTestService(t)
	root, err := s.Create("Go")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create("Go::Sub"); err != nil {
		t.Fatal(err)
	}
	// Shares a name prefix but is not a descendant.
	if _, err := s.Create("Golang"); err != nil {
		t.Fatal(err)
	}

	children, err := s.Children(root.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 1 || children[0].Name != "Go::Sub" {
		t.Fatalf("children = %v, want only Go::Sub", children)
	}
}

func TestConfForFilteredFallsBackToDefault(t *testing.T) {
	s, _ := newTestService(t)
	fd, err := s.CreateFiltered("Cram", []domain.FilterTerm{{Search: "Default"}})
	if err != nil {
		t.Fatal(err)
	}
	conf, err := s.ConfFor(fd.ID)
	if err != nil {
		t.Fatal(err)
	}
	if conf.ID != 1 {
		t.Fatalf("config id = %d, want default group 1", conf.ID)
	}
}

func TestSelectPersistsAcrossReload(t *testing.T) {
	s, store := newTestService(t)
	d, err := s.Create("Go")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Select(d.ID); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewService(store)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Current() != d.ID {
		t.Fatalf("current after reload = %d, want %d", reloaded.Current(), d.ID)
	}
}

func TestDeleteFallsBackToDefault(t *testing.T) {
	s, _ := newTestService(t)
	d, err := s.Create("Go")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Select(d.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(d.ID); err != nil {
		t.Fatal(err)
	}
	if s.Current() != 1 {
		t.Fatalf("current after delete = %d, want 1", s.Current())
	}
	if _, ok := s.ByName("Go"); ok {
		t.Fatal("deleted deck still resolvable by name")
	}
}
