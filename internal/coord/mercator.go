package coord

import "math"

const (
	// EarthCircumference is the equatorial circumference in meters at zoom 0.
	EarthCircumference = 40075016.685578488
	// DefaultTileSize is the standard web map tile dimension.
	DefaultTileSize = 256
)

// Bounds represents a geographic bounding box in WGS84 degrees.
type Bounds struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// CenterLat returns the center latitude.
func (b Bounds) CenterLat() float64 {
	return (b.MinLat + b.MaxLat) / 2
}

// IsEmpty reports whether the bounds enclose no area.
func (b Bounds) IsEmpty() bool {
	return b.MinLon >= b.MaxLon || b.MinLat >= b.MaxLat
}

// Intersect returns the overlap of two bounds. The result may be empty.
func (b Bounds) Intersect(o Bounds) Bounds {
	return Bounds{
		MinLon: math.Max(b.MinLon, o.MinLon),
		MaxLon: math.Min(b.MaxLon, o.MaxLon),
		MinLat: math.Max(b.MinLat, o.MinLat),
		MaxLat: math.Min(b.MaxLat, o.MaxLat),
	}
}

// LonLatToTile converts WGS84 lon/lat to XYZ tile coordinates at the given
// zoom level. Coordinates are not clamped: positions outside the web
// mercator domain yield out-of-range tile indices, which callers clamp
// after applying their own margins.
func LonLatToTile(lon, lat float64, zoom int) (x, y int) {
	n := math.Pow(2, float64(zoom))
	x = int(math.Floor((lon + 180.0) / 360.0 * n))
	latRad := lat * math.Pi / 180.0
	y = int(math.Floor((1.0 - math.Asinh(math.Tan(latRad))/math.Pi) / 2.0 * n))
	return
}

// TileNW returns the WGS84 lon/lat of the north-west corner of a tile.
func TileNW(z, x, y int) (lon, lat float64) {
	n := math.Pow(2, float64(z))
	lon = float64(x)/n*360.0 - 180.0
	lat = math.Atan(math.Sinh(math.Pi*(1.0-2.0*float64(y)/n))) * 180.0 / math.Pi
	return
}

// TileBounds returns the WGS84 bounding box of a tile at the given zoom level.
func TileBounds(z, x, y int) Bounds {
	minLon, maxLat := TileNW(z, x, y)
	maxLon, minLat := TileNW(z, x+1, y+1)
	return Bounds{MinLon: minLon, MaxLon: maxLon, MinLat: minLat, MaxLat: maxLat}
}

// TileRange returns the corner tile indices covering the given bounds at a
// zoom level. minY comes from the northern edge and maxY from the southern
// edge, since tile rows grow southward. The range is not clamped.
func TileRange(b Bounds, zoom int) (minX, minY, maxX, maxY int) {
	minX, maxY = LonLatToTile(b.MinLon, b.MinLat, zoom)
	maxX, minY = LonLatToTile(b.MaxLon, b.MaxLat, zoom)
	return
}

// ResolutionAtLat returns the ground resolution in meters/pixel at the given
// latitude and zoom level, assuming the default tile size.
func ResolutionAtLat(lat float64, zoom int) float64 {
	return EarthCircumference * math.Cos(lat*math.Pi/180.0) / math.Pow(2, float64(zoom)) / float64(DefaultTileSize)
}

// PixelSizeInGroundMeters converts a source pixel size in CRS units to
// ground meters at the given latitude. Geographic CRS pixel sizes are in
// degrees, web mercator pixel sizes in projected meters.
func PixelSizeInGroundMeters(pixelSize float64, epsg int, lat float64) float64 {
	switch epsg {
	case 3857:
		return pixelSize * math.Cos(lat*math.Pi/180.0)
	default:
		return pixelSize * EarthCircumference / 360.0 * math.Cos(lat*math.Pi/180.0)
	}
}

// MaxZoomForResolution calculates the deepest zoom level whose tiles still
// oversample a source of the given ground resolution in meters/pixel.
func MaxZoomForResolution(pixelSize float64, centerLat float64, tileSize int) int {
	if pixelSize <= 0 {
		return 0
	}
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	for z := 30; z >= 0; z-- {
		res := EarthCircumference * math.Cos(centerLat*math.Pi/180.0) / math.Pow(2, float64(z)) / float64(tileSize)
		if res >= pixelSize {
			return z
		}
	}
	return 0
}
