package catalog_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/suminhong/diribon2gg/internal/catalog"
	"github.com/suminhong/diribon2gg/pkg/record"
)

const (
	digimonsCSV = "name_en,name_kr,stage,element,attribute,species\n" +
		"Agumon,아구몬,Child,Fire,Vaccine,Reptile\n" +
		"Gabumon,파피몬,Child,Ice,Data,Beast\n" +
		"Agumon,가짜 아구몬,Adult,Fire,Virus,Reptile\n"
	stagesCSV = "name_en,name_kr,color\nBaby,유년기,#ffcc00\nChild,성장기,lightblue\n"
)

func newStore() *catalog.Store {
	return catalog.New(map[string][]record.Record{
		catalog.TableDigimons: record.Parse(digimonsCSV),
		catalog.TableStages:   record.Parse(stagesCSV),
	})
}

func TestStore_FindFirstMatchWins(t *testing.T) {
	t.Parallel()

	s := newStore()
	r, ok := s.Find(catalog.TableDigimons, "Agumon")
	if !ok {
		t.Fatal("Find(Agumon): ok = false")
	}
	if got := r.Get("name_kr"); got != "아구몬" {
		t.Errorf("Find(Agumon) name_kr = %q, want first row", got)
	}
}

func TestStore_FindMissing(t *testing.T) {
	t.Parallel()

	s := newStore()
	if _, ok := s.Find(catalog.TableDigimons, "Greymon"); ok {
		t.Error("Find(Greymon): ok = true, want false")
	}
	if _, ok := s.Find("no-such-table", "Agumon"); ok {
		t.Error("Find on unknown table: ok = true, want false")
	}

	var nilStore *catalog.Store
	if _, ok := nilStore.Find(catalog.TableDigimons, "Agumon"); ok {
		t.Error("nil Store Find: ok = true")
	}
	if got := nilStore.All(catalog.TableDigimons); len(got) != 0 {
		t.Errorf("nil Store All: len = %d", len(got))
	}
}

func TestStore_AllIsOrderedCopy(t *testing.T) {
	t.Parallel()

	s := newStore()
	all := s.All(catalog.TableDigimons)
	if len(all) != 3 {
		t.Fatalf("All: len = %d, want 3", len(all))
	}
	all[0] = record.Record{}
	if s.All(catalog.TableDigimons)[0].IsZero() {
		t.Error("All returned a slice aliasing store contents")
	}
	if got := s.All("unknown"); got == nil || len(got) != 0 {
		t.Errorf("All(unknown) = %v, want empty non-nil", got)
	}
}

func TestStore_NewCopiesInput(t *testing.T) {
	t.Parallel()

	recs := record.Parse(stagesCSV)
	s := catalog.New(map[string][]record.Record{catalog.TableStages: recs})
	recs[0] = record.Record{}
	if l, ok := s.Lookup(catalog.CategoryStage, "Baby"); !ok || l.Name() != "유년기" {
		t.Errorf("Lookup(Baby) = %v, %v after caller mutation", l.Name(), ok)
	}
}

func TestStore_TypedViews(t *testing.T) {
	t.Parallel()

	s := newStore()

	d, ok := s.Digimon("Gabumon")
	if !ok {
		t.Fatal("Digimon(Gabumon): ok = false")
	}
	if d.NameKR() != "파피몬" || d.Value(catalog.CategoryElement) != "Ice" {
		t.Errorf("Digimon(Gabumon) = %q/%q", d.NameKR(), d.Value(catalog.CategoryElement))
	}

	l, ok := s.Lookup(catalog.CategoryStage, "Child")
	if !ok {
		t.Fatal("Lookup(stage, Child): ok = false")
	}
	if l.Color() != "lightblue" || l.Name() != "성장기" {
		t.Errorf("Lookup(stage, Child) = %q/%q", l.Name(), l.Color())
	}

	if diff := cmp.Diff([]string{"Baby", "Child"}, s.Keys(catalog.CategoryStage)); diff != "" {
		t.Errorf("Keys(stage) mismatch (-want +got):\n%s", diff)
	}
	if got := s.Lookups(catalog.CategorySpecies); len(got) != 0 {
		t.Errorf("Lookups(species) with no table: len = %d", len(got))
	}
}

func TestCategory(t *testing.T) {
	t.Parallel()

	for _, c := range catalog.Categories() {
		if !c.IsValid() {
			t.Errorf("%q.IsValid() = false", c)
		}
		if c.Table() == "" {
			t.Errorf("%q.Table() is empty", c)
		}
	}
	if catalog.Category("rank").IsValid() {
		t.Error("unknown category reported valid")
	}
}

func TestSnapshot_Records(t *testing.T) {
	t.Parallel()

	snap := &catalog.Snapshot{Store: newStore()}
	if got := snap.Records(); got != 5 {
		t.Errorf("Records() = %d, want 5", got)
	}
	var nilSnap *catalog.Snapshot
	if got := nilSnap.Records(); got != 0 {
		t.Errorf("nil Records() = %d", got)
	}
}
