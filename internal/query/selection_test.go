package query_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/suminhong/diribon2gg/internal/catalog"
	"github.com/suminhong/diribon2gg/internal/query"
	"github.com/suminhong/diribon2gg/pkg/record"
)

func stageLookups() []catalog.Lookup {
	store := catalog.New(map[string][]record.Record{catalog.TableStages: record.Parse(stagesCSV)})
	return store.Lookups(catalog.CategoryStage)
}

func TestSelection_Toggle(t *testing.T) {
	t.Parallel()

	s := query.NewSelection("Child")
	added := s.Toggle("Adult")
	removed := added.Toggle("Child")

	if diff := cmp.Diff([]string{"Child"}, s.Values()); diff != "" {
		t.Errorf("original selection changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Child", "Adult"}, added.Values()); diff != "" {
		t.Errorf("after add (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Adult"}, removed.Values()); diff != "" {
		t.Errorf("after remove (-want +got):\n%s", diff)
	}
}

func TestSelection_Dedup(t *testing.T) {
	t.Parallel()

	s := query.NewSelection("a", "b", "a")
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestSelection_ZeroValue(t *testing.T) {
	t.Parallel()

	var s query.Selection
	if !s.IsEmpty() || s.Has("anything") {
		t.Error("zero Selection is not empty")
	}
	if got := s.Toggle("x"); !got.Has("x") {
		t.Error("Toggle on zero Selection did not add")
	}
}

func TestSelection_BulkToggle(t *testing.T) {
	t.Parallel()

	lookups := stageLookups()

	all := query.ClearAll().BulkToggle(lookups)
	if diff := cmp.Diff([]string{"Baby", "Child", "Adult"}, all.Values()); diff != "" {
		t.Errorf("select all (-want +got):\n%s", diff)
	}
	if !all.IsComplete(lookups) {
		t.Error("IsComplete after select all = false")
	}

	partial := query.NewSelection("Child").BulkToggle(lookups)
	if partial.Len() != 3 {
		t.Errorf("bulk toggle of partial selection: Len = %d, want 3", partial.Len())
	}

	cleared := all.BulkToggle(lookups)
	if !cleared.IsEmpty() {
		t.Errorf("bulk toggle of full selection = %v, want empty", cleared.Values())
	}
	if query.ClearAll().IsComplete(nil) {
		t.Error("empty selection complete against empty lookup")
	}
}

func TestSelection_IsComplete(t *testing.T) {
	t.Parallel()

	lookups := stageLookups()

	tests := []struct {
		name string
		sel  query.Selection
		want bool
	}{
		{name: "every key", sel: query.NewSelection("Adult", "Baby", "Child"), want: true},
		{name: "every key plus extra", sel: query.NewSelection("Baby", "Child", "Adult", "Perfect"), want: true},
		{name: "same size with foreign value", sel: query.NewSelection("Baby", "Child", "Perfect"), want: false},
		{name: "missing key", sel: query.NewSelection("Baby", "Child"), want: false},
		{name: "empty", sel: query.ClearAll(), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.sel.IsComplete(lookups); got != tt.want {
				t.Errorf("IsComplete(%v) = %v, want %v", tt.sel.Values(), got, tt.want)
			}
		})
	}
}

func TestSelection_BulkToggle_ForeignValues(t *testing.T) {
	t.Parallel()

	lookups := stageLookups()

	// Same size as the table but not covering it: select all, not clear.
	got := query.NewSelection("Baby", "Child", "Perfect").BulkToggle(lookups)
	if diff := cmp.Diff([]string{"Baby", "Child", "Adult"}, got.Values()); diff != "" {
		t.Errorf("bulk toggle (-want +got):\n%s", diff)
	}
}

func TestSelection_IsComplete_DuplicateKeys(t *testing.T) {
	t.Parallel()

	lookups := append(stageLookups(), stageLookups()[0])
	s := query.SelectAll(lookups)
	if s.Len() != 3 {
		t.Fatalf("SelectAll Len = %d, want 3", s.Len())
	}
	if !s.IsComplete(lookups) {
		t.Error("IsComplete with a repeated lookup key = false")
	}
	if !s.BulkToggle(lookups).IsEmpty() {
		t.Error("bulk toggle of complete selection with repeated key did not clear")
	}
}

func TestSelectAll(t *testing.T) {
	t.Parallel()

	s := query.SelectAll(stageLookups())
	for _, k := range []string{"Baby", "Child", "Adult"} {
		if !s.Has(k) {
			t.Errorf("SelectAll missing %q", k)
		}
	}
}
