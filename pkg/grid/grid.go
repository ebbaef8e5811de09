// Package grid builds the full set of (scene, rate, GOP) jobs.
package grid

import (
	"time"

	"github.com/pvidal/gopgrid/pkg/models"
)

// DefaultVariant is the model variant used for any scene without a
// dedicated entry in the variant table.
const DefaultVariant = "base"

// variantTable maps scene names to specialized model variants. Scenes not
// listed here train the base variant; an unknown name is never an error.
var variantTable = map[string]string{
	"coffee_martini": "dense",
	"flame_salmon_1": "large_motion",
	"sear_steak":     "specular",
}

// VariantFor resolves the model variant for a scene name.
func VariantFor(scene string) string {
	if v, ok := variantTable[scene]; ok {
		return v
	}
	return DefaultVariant
}

// Enumerate produces one job per (scene, rate point, GOP segment), in the
// fixed nested order scenes outer, rates middle, segments inner. The order
// is part of the contract: GOP 0 of a (scene, rate) pair always precedes
// every later GOP of the same pair, which is what the sequential baseline
// relies on for checkpoint availability.
func Enumerate(scenes []string, lambdas []float64, segments []models.GOPSegment) []*models.Job {
	jobs := make([]*models.Job, 0, len(scenes)*len(lambdas)*len(segments))
	now := time.Now()

	seq := 0
	for _, name := range scenes {
		scene := models.Scene{Name: name, Variant: VariantFor(name)}
		for ri, lambda := range lambdas {
			rate := models.RatePoint{Index: ri, Lambda: lambda}
			for _, seg := range segments {
				jobs = append(jobs, &models.Job{
					Scene:     scene,
					Rate:      rate,
					GOP:       seg,
					Seq:       seq,
					Status:    models.JobStatusPending,
					CreatedAt: now,
				})
				seq++
			}
		}
	}

	return jobs
}
