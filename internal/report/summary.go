package report

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the real areas of a report.
type Summary struct {
	Count          int     `json:"count"`
	TotalPixelArea float64 `json:"total_pixel_area"`
	TotalRealArea  float64 `json:"total_real_area"`
	MeanRealArea   float64 `json:"mean_real_area"`
	MedianRealArea float64 `json:"median_real_area"`
	StdDevRealArea float64 `json:"stddev_real_area"`
	MinRealArea    float64 `json:"min_real_area"`
	MaxRealArea    float64 `json:"max_real_area"`
}

// Summarize computes area statistics over records. An empty report gives a
// zero Summary; the standard deviation of a single object is 0.
func Summarize(records []Record) Summary {
	if len(records) == 0 {
		return Summary{}
	}

	areas := make([]float64, len(records))
	pixel := make([]float64, len(records))
	for i, r := range records {
		areas[i] = r.RealArea
		pixel[i] = r.PixelArea
	}

	s := Summary{
		Count:          len(records),
		TotalPixelArea: floats.Sum(pixel),
		TotalRealArea:  floats.Sum(areas),
		MeanRealArea:   stat.Mean(areas, nil),
		MinRealArea:    floats.Min(areas),
		MaxRealArea:    floats.Max(areas),
	}
	if len(areas) > 1 {
		s.StdDevRealArea = stat.StdDev(areas, nil)
	}

	sort.Float64s(areas)
	s.MedianRealArea = stat.Quantile(0.5, stat.Empirical, areas, nil)

	return s
}
