package analysis

import (
	"sort"
)

// TimeSeriesResampler handles time-based resampling calculations.
type TimeSeriesResampler struct{}

// -----------------------------------------------------------------------------

// ResampleIndices returns window groupings for timestamps.
// Windows are aligned to the epoch so candle boundaries stay stable across
// refreshes; empty windows are skipped.
func (r *TimeSeriesResampler) ResampleIndices(timestamps []int64, windowSeconds int64) []struct {
	Indices   []int
	StartTime int64
	EndTime   int64
} {
	if len(timestamps) == 0 {
		return []struct {
			Indices   []int
			StartTime int64
			EndTime   int64
		}{}
	}

	// Ensure timestamps are sorted
	sortedTimestamps := make([]int64, len(timestamps))
	copy(sortedTimestamps, timestamps)
	sort.Slice(sortedTimestamps, func(i, j int) bool {
		return sortedTimestamps[i] < sortedTimestamps[j]
	})

	minTs := sortedTimestamps[0]
	maxTs := sortedTimestamps[len(sortedTimestamps)-1]

	// Create window boundaries, aligned to the epoch
	firstStart, _ := CalculateWindowBoundaries(minTs, windowSeconds)
	var windowStarts []int64
	for start := firstStart; start <= maxTs+windowSeconds; start += windowSeconds {
		windowStarts = append(windowStarts, start)
	}

	var results []struct {
		Indices   []int
		StartTime int64
		EndTime   int64
	}

	// For each window, find the covered index range by binary search
	for i := 0; i < len(windowStarts)-1; i++ {
		windowStart := windowStarts[i]
		windowEnd := windowStarts[i+1]

		startIdx := sort.Search(len(sortedTimestamps), func(j int) bool {
			return sortedTimestamps[j] >= windowStart
		})

		endIdx := sort.Search(len(sortedTimestamps), func(j int) bool {
			return sortedTimestamps[j] >= windowEnd
		})

		if startIdx < endIdx {
			indices := make([]int, endIdx-startIdx)
			for idx := startIdx; idx < endIdx; idx++ {
				indices[idx-startIdx] = idx
			}

			results = append(results, struct {
				Indices   []int
				StartTime int64
				EndTime   int64
			}{
				Indices:   indices,
				StartTime: windowStart,
				EndTime:   windowEnd,
			})
		}
	}

	return results
}

// -----------------------------------------------------------------------------

// ResampleData returns actual data groupings (convenience function).
// The data slice must be sorted by timestamp in the same order as timestamps.
func ResampleData[T any](
	r *TimeSeriesResampler,
	timestamps []int64,
	data []T,
	windowSeconds int64,
) []struct {
	Data      []T
	StartTime int64
	EndTime   int64
} {
	indicesList := r.ResampleIndices(timestamps, windowSeconds)

	var results []struct {
		Data      []T
		StartTime int64
		EndTime   int64
	}

	for _, indicesGroup := range indicesList {
		// Extract data using indices
		dataSlice := make([]T, len(indicesGroup.Indices))
		for i, idx := range indicesGroup.Indices {
			if idx < len(data) {
				dataSlice[i] = data[idx]
			}
		}

		results = append(results, struct {
			Data      []T
			StartTime int64
			EndTime   int64
		}{
			Data:      dataSlice,
			StartTime: indicesGroup.StartTime,
			EndTime:   indicesGroup.EndTime,
		})
	}

	return results
}

// -----------------------------------------------------------------------------

// CalculateWindowBoundaries returns the aligned window containing ts.
func CalculateWindowBoundaries(ts int64, window int64) (int64, int64) {
	start := ts - (ts % window)
	return start, start + window
}
