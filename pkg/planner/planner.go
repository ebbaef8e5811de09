// Package planner partitions a frame range into GOP segments.
package planner

import (
	"fmt"

	"github.com/pvidal/gopgrid/pkg/models"
)

// Plan splits totalFrames frames starting at firstFrame into segments of
// nominalSize frames. The last segment is shrunk so the plan never overruns
// totalFrames; every other segment is exactly nominalSize long.
//
// Plan is pure and deterministic: calling it twice with the same arguments
// yields identical plans.
func Plan(totalFrames, firstFrame, nominalSize int) ([]models.GOPSegment, error) {
	if totalFrames <= 0 {
		return nil, fmt.Errorf("%w: total frames must be positive, got %d",
			models.ErrInvalidConfiguration, totalFrames)
	}
	if nominalSize <= 0 {
		return nil, fmt.Errorf("%w: GOP size must be positive, got %d",
			models.ErrInvalidConfiguration, nominalSize)
	}
	if firstFrame < 0 {
		return nil, fmt.Errorf("%w: first frame must not be negative, got %d",
			models.ErrInvalidConfiguration, firstFrame)
	}

	count := (totalFrames + nominalSize - 1) / nominalSize
	segments := make([]models.GOPSegment, 0, count)

	for i := 0; i < count; i++ {
		length := nominalSize
		if remaining := totalFrames - i*nominalSize; remaining < nominalSize {
			length = remaining
		}
		segments = append(segments, models.GOPSegment{
			ID:         i,
			StartFrame: firstFrame + i*nominalSize,
			Length:     length,
		})
	}

	return segments, nil
}
