// Package paths derives deterministic artifact locations for grid jobs.
//
// The layout is the collision guard: the directory key is the full
// (scene, GOP, rate) triple in fixed order, so distinct jobs can never map
// to the same location. No runtime locking is needed on top of this.
package paths

import (
	"fmt"
	"path/filepath"

	"github.com/pvidal/gopgrid/pkg/models"
)

// JobDir returns the output directory of a job under the results root:
//
//	<root>/<scene>/gop_<id>/rate_<idx>
func JobDir(root string, job *models.Job) models.ResultLocation {
	return models.ResultLocation{
		Dir: filepath.Join(root,
			job.Scene.Name,
			fmt.Sprintf("gop_%d", job.GOP.ID),
			fmt.Sprintf("rate_%d", job.Rate.Index)),
	}
}

// RefDir returns the output directory a checkpoint ref resolves to. It
// follows the same layout as JobDir so later jobs can locate earlier
// jobs' artifacts without any lookup table.
func RefDir(root string, ref *models.CheckpointRef) string {
	return filepath.Join(root,
		ref.Scene,
		fmt.Sprintf("gop_%d", ref.GOPIndex),
		fmt.Sprintf("rate_%d", ref.RateIndex))
}

// CheckpointPath returns the file a train phase writes for a given step:
//
//	<job dir>/ckpts/ckpt_<step>_rank<rank>.pt
//
// Rank is constant 0 in the single-device baseline but kept in the name so
// multi-device runs shard cleanly.
func CheckpointPath(root string, ref *models.CheckpointRef) string {
	return filepath.Join(RefDir(root, ref), "ckpts",
		fmt.Sprintf("ckpt_%d_rank%d.pt", ref.Step, ref.Rank))
}
