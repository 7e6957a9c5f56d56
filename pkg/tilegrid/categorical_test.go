package tilegrid

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCategoricalDefaults(t *testing.T) {
	g, err := NewCategoricalTileGrid(2, 1, 1, 2, 2, map[uint8]string{1: "forest", 2: "water"})
	if err != nil {
		t.Fatalf("NewCategoricalTileGrid() error = %v", err)
	}

	if got := g.Get(1, 1); got != NoDataCode {
		t.Errorf("Get(1, 1) = %d on fresh grid, want NoDataCode", got)
	}
	if got := g.Get(0, 0); got != NoDataCode {
		t.Errorf("Get(0, 0) = %d outside extent, want NoDataCode", got)
	}

	if err := g.Set(2, 2, 1); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	if got := g.Get(2, 2); got != 1 {
		t.Errorf("Get(2, 2) = %d, want 1", got)
	}
	if err := g.Set(0, 0, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Set(0, 0) error = %v, want ErrOutOfBounds", err)
	}
}

func TestCategoricalLabels(t *testing.T) {
	g, err := NewCategoricalTileGrid(1, 0, 0, 2, 2, map[uint8]string{3: "urban", 1: "forest"})
	if err != nil {
		t.Fatalf("NewCategoricalTileGrid() error = %v", err)
	}

	// Lookup returns the label exactly when the code is in the table.
	if label, ok := g.LabelFor(1); !ok || label != "forest" {
		t.Errorf("LabelFor(1) = (%q, %v), want (forest, true)", label, ok)
	}
	if _, ok := g.LabelFor(2); ok {
		t.Error("LabelFor(2) = present, want absent")
	}

	g.SetLabel(2, "water")
	if label, ok := g.LabelFor(2); !ok || label != "water" {
		t.Errorf("LabelFor(2) after SetLabel = (%q, %v), want (water, true)", label, ok)
	}

	want := []LabelEntry{{1, "forest"}, {2, "water"}, {3, "urban"}}
	if diff := cmp.Diff(want, g.Labels()); diff != "" {
		t.Errorf("Labels() mismatch (-want +got):\n%s", diff)
	}

	stats := g.Stats()
	if stats.Min != 0 || stats.Max != 3 {
		t.Errorf("Stats() range = (%v, %v), want (0, 3)", stats.Min, stats.Max)
	}
	if diff := cmp.Diff(want, stats.Labels); diff != "" {
		t.Errorf("Stats().Labels mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyCategory(t *testing.T) {
	grid, err := NewCategoricalTileGrid(2, 0, 0, 2, 2, map[uint8]string{2: "water"})
	if err != nil {
		t.Fatalf("NewCategoricalTileGrid() error = %v", err)
	}
	// Pre-existing category codes survive where the mask is false.
	if err := grid.Set(0, 1, 7); err != nil {
		t.Fatalf("Set error = %v", err)
	}

	mask, err := NewBooleanTileGrid(2, 0, 0, 2, 2)
	if err != nil {
		t.Fatalf("NewBooleanTileGrid() error = %v", err)
	}
	if err := mask.Set(0, 0, true); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	if err := mask.Set(1, 1, true); err != nil {
		t.Fatalf("Set error = %v", err)
	}

	if err := grid.ApplyCategory(mask, 2); err != nil {
		t.Fatalf("ApplyCategory() error = %v", err)
	}

	want := map[[2]int]uint8{
		{0, 0}: 2,
		{1, 1}: 2,
		{0, 1}: 7,
		{1, 0}: NoDataCode,
	}
	for coord, code := range want {
		if got := grid.Get(coord[0], coord[1]); got != code {
			t.Errorf("Get(%d, %d) = %d, want %d", coord[0], coord[1], got, code)
		}
	}
}

func TestApplyCategoryCoarserMask(t *testing.T) {
	// One mask cell at zoom 1 covers four cells of a zoom 2 grid.
	grid, err := NewCategoricalTileGrid(2, 0, 0, 4, 4, nil)
	if err != nil {
		t.Fatalf("NewCategoricalTileGrid() error = %v", err)
	}
	mask, err := NewBooleanTileGrid(1, 0, 0, 2, 2)
	if err != nil {
		t.Fatalf("NewBooleanTileGrid() error = %v", err)
	}
	if err := mask.Set(1, 0, true); err != nil {
		t.Fatalf("Set error = %v", err)
	}

	if err := grid.ApplyCategory(mask, 5); err != nil {
		t.Fatalf("ApplyCategory() error = %v", err)
	}

	for cx := 0; cx < 4; cx++ {
		for cy := 0; cy < 4; cy++ {
			want := NoDataCode
			if cx >= 2 && cy < 2 {
				want = 5
			}
			if got := grid.Get(cx, cy); got != want {
				t.Errorf("Get(%d, %d) = %d, want %d", cx, cy, got, want)
			}
		}
	}
}

func TestApplyCategoryFinerMask(t *testing.T) {
	grid, err := NewCategoricalTileGrid(1, 0, 0, 2, 2, nil)
	if err != nil {
		t.Fatalf("NewCategoricalTileGrid() error = %v", err)
	}
	mask, err := NewBooleanTileGrid(2, 0, 0, 4, 4)
	if err != nil {
		t.Fatalf("NewBooleanTileGrid() error = %v", err)
	}
	if err := grid.ApplyCategory(mask, 1); !errors.Is(err, ErrZoomTooFine) {
		t.Errorf("ApplyCategory() error = %v, want ErrZoomTooFine", err)
	}
}
