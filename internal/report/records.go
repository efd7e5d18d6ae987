package report

import (
	"encoding/csv"
	"fmt"
	"image"
	"io"
	"strconv"

	"github.com/ironsheep/mosaic-geo/internal/detection"
)

// Record is one labeled row of the measurement report.
type Record struct {
	Label      int             `json:"label"`
	PixelArea  float64         `json:"pixel_area"`
	RealArea   float64         `json:"real_area"`
	CenterX    int             `json:"center_x"`
	CenterY    int             `json:"center_y"`
	CenterLat  float64         `json:"center_lat"`
	CenterLong float64         `json:"center_long"`
	Bounds     image.Rectangle `json:"bounds"`

	// Contour is the object outline in pixel coordinates.
	Contour []image.Point `json:"-"`
}

// Records labels objects 1..N in order.
func Records(objects []detection.DetectedObject) []Record {
	out := make([]Record, len(objects))
	for i, o := range objects {
		out[i] = Record{
			Label:      i + 1,
			PixelArea:  o.PixelArea,
			RealArea:   o.RealArea,
			CenterX:    o.PixelCentroid.X,
			CenterY:    o.PixelCentroid.Y,
			CenterLat:  o.Centroid.Lat,
			CenterLong: o.Centroid.Lon,
			Bounds:     o.Bounds,
			Contour:    o.Contour,
		}
	}
	return out
}

// CSVHeader is the first row written by WriteCSV.
var CSVHeader = []string{"label", "pixel_area", "real_area", "center_x", "center_y", "center_lat", "center_long"}

// WriteCSV writes records as CSV with a header row. Floats are written with
// the shortest representation that round-trips.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Label),
			formatFloat(r.PixelArea),
			formatFloat(r.RealArea),
			strconv.Itoa(r.CenterX),
			strconv.Itoa(r.CenterY),
			formatFloat(r.CenterLat),
			formatFloat(r.CenterLong),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", r.Label, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
