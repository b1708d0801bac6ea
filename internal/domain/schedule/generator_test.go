package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridFullDay(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday

	// 09:00 to 17:00 at 30 minutes yields 16 slots.
	grid := Grid(day, 9*60, 17*60, 30*time.Minute)
	require.Len(t, grid, 16)

	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), grid[0].Start)
	assert.Equal(t, time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC), grid[len(grid)-1].End)

	// Contiguous and non-overlapping.
	for i := 1; i < len(grid); i++ {
		assert.Equal(t, grid[i-1].End, grid[i].Start)
		assert.False(t, Overlaps(grid[i-1], grid[i]))
	}
}

func TestGridDropsPartialTail(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// 09:00 to 10:10 at 30 minutes: the 10:00-10:30 slot does not fit.
	grid := Grid(day, 9*60, 10*60+10, 30*time.Minute)
	require.Len(t, grid, 2)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), grid[1].End)
}

func TestGridNothingFits(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	assert.Nil(t, Grid(day, 9*60, 9*60+20, 30*time.Minute))
	assert.Nil(t, Grid(day, 10*60, 9*60, 30*time.Minute))
	assert.Nil(t, Grid(day, 9*60, 17*60, 0))
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	slot := func(startMin, endMin int) Interval {
		return Interval{
			Start: base.Add(time.Duration(startMin) * time.Minute),
			End:   base.Add(time.Duration(endMin) * time.Minute),
		}
	}

	assert.True(t, Overlaps(slot(0, 30), slot(15, 45)))
	assert.True(t, Overlaps(slot(15, 45), slot(0, 30)))
	assert.True(t, Overlaps(slot(0, 60), slot(15, 30)))

	// Back-to-back half-open intervals do not overlap.
	assert.False(t, Overlaps(slot(0, 30), slot(30, 60)))
	assert.False(t, Overlaps(slot(0, 30), slot(45, 60)))
}
