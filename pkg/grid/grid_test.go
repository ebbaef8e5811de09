package grid

import (
	"fmt"
	"testing"

	"github.com/pvidal/gopgrid/pkg/models"
	"github.com/pvidal/gopgrid/pkg/planner"
)

// TestEnumerate_Cardinality tests that the grid is the full cross product
func TestEnumerate_Cardinality(t *testing.T) {
	segments, err := planner.Plan(300, 0, 60)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	jobs := Enumerate([]string{"A", "B"}, []float64{0.01, 0.02}, segments)
	if len(jobs) != 20 {
		t.Fatalf("Expected 20 jobs (2 scenes x 2 rates x 5 segments), got %d", len(jobs))
	}

	seen := make(map[string]bool)
	for _, job := range jobs {
		key := job.Key()
		if seen[key] {
			t.Errorf("Duplicate job key %s", key)
		}
		seen[key] = true
	}
}

// TestEnumerate_NestedOrder tests the scene-outer, rate-middle, GOP-inner
// ordering that places GOP 0 before every later GOP of the same pair
func TestEnumerate_NestedOrder(t *testing.T) {
	segments, err := planner.Plan(180, 0, 60)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	jobs := Enumerate([]string{"A", "B"}, []float64{0.01, 0.02}, segments)

	for i, job := range jobs {
		if job.Seq != i {
			t.Errorf("Job %d: expected seq %d, got %d", i, i, job.Seq)
		}
	}

	// GOP 0 of each (scene, rate) must come before its GOP>0 jobs.
	baseSeq := make(map[string]int)
	for _, job := range jobs {
		if job.GOP.ID == 0 {
			baseSeq[fmt.Sprintf("%s/%d", job.Scene.Name, job.Rate.Index)] = job.Seq
		}
	}
	for _, job := range jobs {
		if job.GOP.ID == 0 {
			continue
		}
		base, ok := baseSeq[fmt.Sprintf("%s/%d", job.Scene.Name, job.Rate.Index)]
		if !ok {
			t.Fatalf("Job %s has no GOP-0 counterpart", job.Key())
		}
		if base >= job.Seq {
			t.Errorf("Job %s (seq %d) ordered before its GOP-0 (seq %d)",
				job.Key(), job.Seq, base)
		}
	}

	// First four jobs are scene A, rate 0, GOPs 0..2 then rate 1 GOP 0.
	if jobs[0].GOP.ID != 0 || jobs[1].GOP.ID != 1 || jobs[2].GOP.ID != 2 {
		t.Errorf("Expected GOPs [0 1 2] first, got [%d %d %d]",
			jobs[0].GOP.ID, jobs[1].GOP.ID, jobs[2].GOP.ID)
	}
	if jobs[3].Rate.Index != 1 || jobs[3].GOP.ID != 0 {
		t.Errorf("Expected rate 1 GOP 0 at position 3, got rate %d GOP %d",
			jobs[3].Rate.Index, jobs[3].GOP.ID)
	}
	if jobs[6].Scene.Name != "B" {
		t.Errorf("Expected scene B at position 6, got %s", jobs[6].Scene.Name)
	}
}

// TestVariantFor tests the fixed variant table and the permissive default
func TestVariantFor(t *testing.T) {
	cases := map[string]string{
		"coffee_martini": "dense",
		"flame_salmon_1": "large_motion",
		"sear_steak":     "specular",
		"cook_spinach":   DefaultVariant,
		"anything_else":  DefaultVariant,
		"":               DefaultVariant,
	}

	for scene, want := range cases {
		if got := VariantFor(scene); got != want {
			t.Errorf("VariantFor(%q) = %q, want %q", scene, got, want)
		}
	}

	// The three named variants must be pairwise distinct.
	if variantTable["coffee_martini"] == variantTable["flame_salmon_1"] ||
		variantTable["coffee_martini"] == variantTable["sear_steak"] ||
		variantTable["flame_salmon_1"] == variantTable["sear_steak"] {
		t.Error("Named scene variants must be distinct")
	}
}

// TestEnumerate_AnnotatesVariant tests that jobs carry the resolved variant
func TestEnumerate_AnnotatesVariant(t *testing.T) {
	segments := []models.GOPSegment{{ID: 0, StartFrame: 0, Length: 60}}
	jobs := Enumerate([]string{"sear_steak", "unknown"}, []float64{0.01}, segments)

	if jobs[0].Scene.Variant != "specular" {
		t.Errorf("Expected specular variant, got %s", jobs[0].Scene.Variant)
	}
	if jobs[1].Scene.Variant != DefaultVariant {
		t.Errorf("Expected default variant, got %s", jobs[1].Scene.Variant)
	}
}
