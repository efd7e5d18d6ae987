package geo

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"
)

// WGS84WKT is the .prj content written for geographic WGS84 rasters.
const WGS84WKT = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]]`

// Georeferenced is a raster together with its placement.
type Georeferenced struct {
	Image     image.Image
	Transform GeoTransform

	// CRS is the descriptor read from the .prj file ("EPSG:4326" if absent).
	CRS string

	// Paths of the files making up the artifact.
	ImagePath     string
	WorldFilePath string
	PRJPath       string
}

// WriteGeoreferenced writes img as dir/base.tif with a world file
// (dir/base.tfw) and projection file (dir/base.prj).
//
// The .prj describes crs: WGS84 WKT when crs is nil, otherwise a projected
// WKT stub carrying the EPSG authority, which ReadGeoreferenced and most GIS
// tools resolve by code.
func WriteGeoreferenced(dir, base string, img image.Image, t GeoTransform, crs *CRSTransform) (*Georeferenced, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	out := &Georeferenced{
		Image:         img,
		Transform:     t,
		CRS:           "EPSG:" + strconv.Itoa(crs.EPSG()),
		ImagePath:     filepath.Join(dir, base+".tif"),
		WorldFilePath: filepath.Join(dir, base+".tfw"),
		PRJPath:       filepath.Join(dir, base+".prj"),
	}

	f, err := os.Create(out.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create raster file: %w", err)
	}
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to encode raster: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close raster file: %w", err)
	}

	if err := os.WriteFile(out.WorldFilePath, []byte(WorldFile(t)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write world file: %w", err)
	}
	if err := os.WriteFile(out.PRJPath, []byte(projectionWKT(crs)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write projection file: %w", err)
	}

	return out, nil
}

func projectionWKT(crs *CRSTransform) string {
	code := crs.EPSG()
	if code == EPSGWGS84 {
		return WGS84WKT
	}
	return fmt.Sprintf(`PROJCS["EPSG:%d",AUTHORITY["EPSG","%d"]]`, code, code)
}

// WorldFile formats t as the six lines of an ESRI world file.
//
// World files locate the centre of the top-left pixel, not its corner, so the
// translation terms are shifted by half a pixel.
func WorldFile(t GeoTransform) string {
	c := t[2] + t[0]/2 + t[1]/2
	f := t[5] + t[3]/2 + t[4]/2
	var b strings.Builder
	for _, v := range []float64{t[0], t[3], t[1], t[4], c, f} {
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseWorldFile is the inverse of WorldFile.
func ParseWorldFile(content string) (GeoTransform, error) {
	var v []float64
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		x, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return GeoTransform{}, fmt.Errorf("invalid world file line %q: %w", line, err)
		}
		v = append(v, x)
	}
	if len(v) != 6 {
		return GeoTransform{}, fmt.Errorf("world file has %d values, want 6", len(v))
	}

	a, d, b, e, c, f := v[0], v[1], v[2], v[3], v[4], v[5]
	return GeoTransform{
		a, b, c - a/2 - b/2,
		d, e, f - d/2 - e/2,
	}, nil
}

// ReadGeoreferenced loads a raster written by WriteGeoreferenced (or any TIFF
// with a .tfw world file). The .prj sidecar is optional.
func ReadGeoreferenced(path string) (*Georeferenced, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster: %w", err)
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode raster: %w", err)
	}

	stem := strings.TrimSuffix(path, filepath.Ext(path))
	out := &Georeferenced{
		Image:         img,
		CRS:           "EPSG:4326",
		ImagePath:     path,
		WorldFilePath: stem + ".tfw",
	}

	wf, err := os.ReadFile(out.WorldFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	if out.Transform, err = ParseWorldFile(string(wf)); err != nil {
		return nil, err
	}

	prj, err := os.ReadFile(stem + ".prj")
	switch {
	case err == nil:
		out.PRJPath = stem + ".prj"
		code, perr := ParseEPSG(string(prj))
		if perr != nil {
			return nil, fmt.Errorf("failed to read projection: %w", perr)
		}
		out.CRS = "EPSG:" + strconv.Itoa(code)
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read projection file: %w", err)
	}

	return out, nil
}
