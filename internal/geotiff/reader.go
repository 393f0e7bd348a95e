// Package geotiff reads single-band GeoTIFF rasters through a memory map.
// Pixel values are normalized to float32 with nodata mapped to NaN, which is
// what the rendering pipeline consumes. Files may be stripped or tiled,
// classic or BigTIFF, in either byte order.
package geotiff

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/image/tiff/lzw"

	"github.com/wangchao9240/CLISAPP-fullstack/internal/coord"
)

// Reader provides windowed float access to a GeoTIFF file. The file is
// memory-mapped read-only, so a Reader is safe for concurrent use; decoded
// blocks can additionally be shared across Readers through a BlockCache.
type Reader struct {
	data  []byte
	bo    binary.ByteOrder
	ifds  []IFD
	geo   GeoInfo
	path  string
	cache *BlockCache

	nodata    float64
	hasNodata bool
}

// Option configures a Reader during Open.
type Option func(*Reader)

// WithBlockCache attaches a shared decoded-block cache. Readers opened on
// the same path reuse each other's decoded blocks.
func WithBlockCache(c *BlockCache) Option {
	return func(r *Reader) { r.cache = c }
}

// Open memory-maps a GeoTIFF and parses its structure. Georeferencing comes
// from GeoTIFF tags, falling back to a world-file sidecar; files with
// neither are rejected, as are multi-band files and unsupported sample or
// compression layouts.
func Open(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	size := fi.Size()
	if size == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	data, err := mmapFile(f.Fd(), int(size))
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	r, err := newReader(data, path)
	if err != nil {
		munmapFile(data)
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func newReader(data []byte, path string) (*Reader, error) {
	ifds, bo, err := parseTIFF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(ifds) == 0 {
		return nil, fmt.Errorf("no IFDs found")
	}

	first := &ifds[0]
	if first.Width == 0 || first.Height == 0 {
		return nil, fmt.Errorf("zero-sized image (%dx%d)", first.Width, first.Height)
	}
	if first.SamplesPerPixel != 1 {
		return nil, fmt.Errorf("multi-band rasters are not supported (%d samples per pixel)", first.SamplesPerPixel)
	}
	if first.PlanarConfig != 1 {
		return nil, fmt.Errorf("unsupported planar configuration %d", first.PlanarConfig)
	}
	if !first.Tiled() && len(first.StripOffsets) == 0 {
		return nil, fmt.Errorf("no strip or tile data")
	}
	if _, err := bytesPerSample(first); err != nil {
		return nil, err
	}
	switch first.Compression {
	case compressionNone, compressionLZW, compressionDeflate, compressionOldFlate,
		compressionPackBits, compressionZstd:
	default:
		return nil, fmt.Errorf("unsupported compression: %d", first.Compression)
	}

	geo := parseGeoInfo(first)
	if !geo.valid() {
		if sidecar := findTFW(path); sidecar != "" {
			tfw, err := parseTFW(sidecar)
			if err != nil {
				return nil, err
			}
			epsg := geo.EPSG
			geo = tfw.toGeoInfo()
			geo.EPSG = epsg
		}
	}
	if !geo.valid() {
		return nil, fmt.Errorf("no georeferencing (GeoTIFF tags or world file required)")
	}
	if geo.EPSG == 0 {
		geo.EPSG = inferEPSG(geo, first.Width, first.Height)
	}

	r := &Reader{
		data: data,
		bo:   bo,
		ifds: ifds,
		geo:  geo,
		path: path,
	}

	if s := strings.TrimSpace(first.NoData); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			r.nodata = v
			r.hasNodata = true
		}
	}

	return r, nil
}

// Close unmaps the memory-mapped file.
func (r *Reader) Close() error {
	if r.data != nil {
		err := munmapFile(r.data)
		r.data = nil
		return err
	}
	return nil
}

// Path returns the file path.
func (r *Reader) Path() string {
	return r.path
}

// GeoInfo returns the parsed georeferencing.
func (r *Reader) GeoInfo() GeoInfo {
	return r.geo
}

// Width returns the full-resolution image width.
func (r *Reader) Width() int {
	return int(r.ifds[0].Width)
}

// Height returns the full-resolution image height.
func (r *Reader) Height() int {
	return int(r.ifds[0].Height)
}

// EPSG returns the detected EPSG code.
func (r *Reader) EPSG() int {
	return r.geo.EPSG
}

// NoData returns the nodata sentinel, if the file declares one. Sentinel
// values are already mapped to NaN in all reads; this is informational.
func (r *Reader) NoData() (float64, bool) {
	return r.nodata, r.hasNodata
}

// NumOverviews returns the number of overview levels beyond the first IFD.
// Reads always target the full-resolution IFD.
func (r *Reader) NumOverviews() int {
	return len(r.ifds) - 1
}

// BoundsInCRS returns the bounding box in source CRS units.
func (r *Reader) BoundsInCRS() (minX, minY, maxX, maxY float64) {
	ifd := &r.ifds[0]
	minX = r.geo.OriginX
	maxY = r.geo.OriginY
	maxX = minX + float64(ifd.Width)*r.geo.PixelSizeX
	minY = maxY - float64(ifd.Height)*r.geo.PixelSizeY
	return
}

// Bounds returns the raster's bounding box in WGS84 degrees. Only
// meaningful for geographic rasters, which is what rendering requires.
func (r *Reader) Bounds() coord.Bounds {
	minX, minY, maxX, maxY := r.BoundsInCRS()
	return coord.Bounds{MinLon: minX, MaxLon: maxX, MinLat: minY, MaxLat: maxY}
}

// CompressionName returns the compression scheme as a display string.
func (r *Reader) CompressionName() string {
	switch r.ifds[0].Compression {
	case compressionNone:
		return "none"
	case compressionLZW:
		return "lzw"
	case compressionDeflate, compressionOldFlate:
		return "deflate"
	case compressionPackBits:
		return "packbits"
	case compressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", r.ifds[0].Compression)
	}
}

// SampleTypeName returns the pixel sample type as a display string.
func (r *Reader) SampleTypeName() string {
	ifd := &r.ifds[0]
	switch ifd.SampleFormat {
	case sampleFormatFloat:
		return fmt.Sprintf("float%d", ifd.BitsPerSample)
	case sampleFormatInt:
		return fmt.Sprintf("int%d", ifd.BitsPerSample)
	default:
		return fmt.Sprintf("uint%d", ifd.BitsPerSample)
	}
}

// BlockLayout returns the pixel block layout as a display string.
func (r *Reader) BlockLayout() string {
	ifd := &r.ifds[0]
	if ifd.Tiled() {
		return fmt.Sprintf("tiles %dx%d", ifd.TileWidth, ifd.TileHeight)
	}
	rps := ifd.RowsPerStrip
	if rps == 0 {
		rps = ifd.Height
	}
	return fmt.Sprintf("strips of %d rows", rps)
}

// ReadWindow reads a rectangular pixel window from the full-resolution IFD
// as row-major float32 samples. Nodata pixels come back as NaN. The window
// must lie within the raster.
func (r *Reader) ReadWindow(col, row, w, h int) ([]float32, error) {
	ifd := &r.ifds[0]
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid window %dx%d", w, h)
	}
	if col < 0 || row < 0 || col+w > int(ifd.Width) || row+h > int(ifd.Height) {
		return nil, fmt.Errorf("window [%d,%d %dx%d] outside raster %dx%d",
			col, row, w, h, ifd.Width, ifd.Height)
	}

	out := make([]float32, w*h)

	first, last := r.blockRange(ifd, col, row, w, h)
	for idx := first; idx <= last; idx++ {
		bx0, by0, bw, bh, storageW, _ := ifd.blockRegion(idx)
		if bx0+bw <= col || bx0 >= col+w || by0+bh <= row || by0 >= row+h {
			continue
		}
		data, err := r.readBlock(idx)
		if err != nil {
			return nil, err
		}

		srcMinX := max(col, bx0) - bx0
		srcMinY := max(row, by0) - by0
		srcMaxX := min(col+w, bx0+bw) - bx0
		srcMaxY := min(row+h, by0+bh) - by0
		dstX := max(col, bx0) - col
		dstY := max(row, by0) - row

		for yy := srcMinY; yy < srcMaxY; yy++ {
			srcOff := yy*storageW + srcMinX
			dstOff := (dstY+yy-srcMinY)*w + dstX
			copy(out[dstOff:dstOff+srcMaxX-srcMinX], data[srcOff:srcOff+srcMaxX-srcMinX])
		}
	}

	return out, nil
}

// blockRange returns the inclusive block index range overlapping a window.
// For tiled files indices between first and last may not all overlap; the
// caller skips those.
func (r *Reader) blockRange(ifd *IFD, col, row, w, h int) (first, last int) {
	if ifd.Tiled() {
		tw, th := int(ifd.TileWidth), int(ifd.TileHeight)
		across := ifd.BlocksAcross()
		first = (row/th)*across + col/tw
		last = ((row+h-1)/th)*across + (col+w-1)/tw
		return
	}
	rps := int(ifd.RowsPerStrip)
	if rps == 0 {
		rps = int(ifd.Height)
	}
	return row / rps, (row + h - 1) / rps
}

// ValueRange scans every pixel and returns the minimum and maximum finite
// values. ok is false when the raster holds no finite samples.
func (r *Reader) ValueRange() (minV, maxV float64, ok bool) {
	ifd := &r.ifds[0]
	minV, maxV = math.Inf(1), math.Inf(-1)

	for idx := 0; idx < ifd.BlockCount(); idx++ {
		data, err := r.readBlock(idx)
		if err != nil {
			continue
		}
		_, _, w, h, storageW, _ := ifd.blockRegion(idx)
		for y := 0; y < h; y++ {
			rowData := data[y*storageW : y*storageW+w]
			for _, v := range rowData {
				f := float64(v)
				if math.IsNaN(f) {
					continue
				}
				if f < minV {
					minV = f
				}
				if f > maxV {
					maxV = f
				}
				ok = true
			}
		}
	}

	if !ok {
		return 0, 0, false
	}
	return minV, maxV, true
}

// readBlock returns the decoded samples of one block, through the shared
// cache when one is attached.
func (r *Reader) readBlock(index int) ([]float32, error) {
	if r.cache == nil {
		return r.decodeBlock(index)
	}
	key := blockKey{path: r.path, index: index}
	return r.cache.get(context.Background(), key, func(context.Context, blockKey) ([]float32, error) {
		return r.decodeBlock(index)
	})
}

func (r *Reader) decodeBlock(index int) ([]float32, error) {
	ifd := &r.ifds[0]
	_, _, _, _, storageW, storageH := ifd.blockRegion(index)
	n := storageW * storageH

	offset, size, err := ifd.blockLocation(index)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		// Sparse block: every pixel is nodata.
		out := make([]float32, n)
		nan := float32(math.NaN())
		for i := range out {
			out[i] = nan
		}
		return out, nil
	}

	end := offset + size
	if end > uint64(len(r.data)) {
		return nil, fmt.Errorf("block %d data [%d:%d] exceeds file size %d", index, offset, end, len(r.data))
	}

	buf, err := decompress(r.data[offset:end], ifd.Compression)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", index, err)
	}

	bps, err := bytesPerSample(ifd)
	if err != nil {
		return nil, err
	}
	if len(buf) < n*bps {
		return nil, fmt.Errorf("block %d: truncated data (%d bytes, need %d)", index, len(buf), n*bps)
	}
	buf = buf[:n*bps]

	if ifd.Predictor != 1 && ifd.Compression == compressionNone {
		// The uncompressed path hands back a window into the read-only
		// mapping; predictor undo writes in place.
		buf = append([]byte(nil), buf...)
	}

	bo := r.bo
	switch ifd.Predictor {
	case 1:
	case 2:
		if ifd.SampleFormat == sampleFormatFloat {
			return nil, fmt.Errorf("block %d: horizontal predictor is invalid for float samples", index)
		}
		undoPredictor2(buf, bo, storageW, storageH, bps)
	case 3:
		undoPredictor3(buf, storageW, storageH, bps)
		// Byte planes reassemble in big-endian order regardless of the
		// file's byte order.
		bo = binary.BigEndian
	default:
		return nil, fmt.Errorf("block %d: unsupported predictor %d", index, ifd.Predictor)
	}

	out, err := samplesToFloat32(buf, bo, ifd, n)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", index, err)
	}

	if r.hasNodata && !math.IsNaN(r.nodata) {
		// Samples are float32 by this point, so the float64 sentinel from
		// the tag must round through float32 too or non-representable
		// sentinels like -3.4e+38 never match.
		nd := float32(r.nodata)
		nan := float32(math.NaN())
		for i, v := range out {
			if v == nd {
				out[i] = nan
			}
		}
	}

	return out, nil
}

func bytesPerSample(ifd *IFD) (int, error) {
	switch ifd.SampleFormat {
	case sampleFormatUint:
		switch ifd.BitsPerSample {
		case 8, 16, 32:
			return int(ifd.BitsPerSample) / 8, nil
		}
	case sampleFormatInt:
		switch ifd.BitsPerSample {
		case 16, 32:
			return int(ifd.BitsPerSample) / 8, nil
		}
	case sampleFormatFloat:
		switch ifd.BitsPerSample {
		case 32, 64:
			return int(ifd.BitsPerSample) / 8, nil
		}
	}
	return 0, fmt.Errorf("unsupported sample layout: format %d, %d bits", ifd.SampleFormat, ifd.BitsPerSample)
}

func samplesToFloat32(buf []byte, bo binary.ByteOrder, ifd *IFD, n int) ([]float32, error) {
	out := make([]float32, n)
	switch {
	case ifd.SampleFormat == sampleFormatFloat && ifd.BitsPerSample == 32:
		for i := 0; i < n; i++ {
			out[i] = math.Float32frombits(bo.Uint32(buf[i*4 : i*4+4]))
		}
	case ifd.SampleFormat == sampleFormatFloat && ifd.BitsPerSample == 64:
		for i := 0; i < n; i++ {
			out[i] = float32(math.Float64frombits(bo.Uint64(buf[i*8 : i*8+8])))
		}
	case ifd.SampleFormat == sampleFormatInt && ifd.BitsPerSample == 16:
		for i := 0; i < n; i++ {
			out[i] = float32(int16(bo.Uint16(buf[i*2 : i*2+2])))
		}
	case ifd.SampleFormat == sampleFormatInt && ifd.BitsPerSample == 32:
		for i := 0; i < n; i++ {
			out[i] = float32(int32(bo.Uint32(buf[i*4 : i*4+4])))
		}
	case ifd.SampleFormat == sampleFormatUint && ifd.BitsPerSample == 8:
		for i := 0; i < n; i++ {
			out[i] = float32(buf[i])
		}
	case ifd.SampleFormat == sampleFormatUint && ifd.BitsPerSample == 16:
		for i := 0; i < n; i++ {
			out[i] = float32(bo.Uint16(buf[i*2 : i*2+2]))
		}
	case ifd.SampleFormat == sampleFormatUint && ifd.BitsPerSample == 32:
		for i := 0; i < n; i++ {
			out[i] = float32(bo.Uint32(buf[i*4 : i*4+4]))
		}
	default:
		return nil, fmt.Errorf("unsupported sample layout: format %d, %d bits", ifd.SampleFormat, ifd.BitsPerSample)
	}
	return out, nil
}

var zstdDecoder = func() *zstd.Decoder {
	d, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	return d
}()

func decompress(data []byte, compression uint16) ([]byte, error) {
	switch compression {
	case compressionNone:
		return data, nil
	case compressionLZW:
		rd := lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
		defer rd.Close()
		out, err := io.ReadAll(rd)
		if err != nil {
			return nil, fmt.Errorf("lzw: %w", err)
		}
		return out, nil
	case compressionDeflate, compressionOldFlate:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			// Some writers store raw deflate streams without the zlib
			// wrapper.
			fr := flate.NewReader(bytes.NewReader(data))
			defer fr.Close()
			out, ferr := io.ReadAll(fr)
			if ferr != nil {
				return nil, fmt.Errorf("deflate: %w", ferr)
			}
			return out, nil
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		return out, nil
	case compressionPackBits:
		return unpackBits(data)
	case compressionZstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %d", compression)
	}
}

// unpackBits expands PackBits run-length encoding (TIFF 6.0 section 9).
func unpackBits(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src)*2)
	for i := 0; i < len(src); {
		n := int(int8(src[i]))
		i++
		switch {
		case n >= 0:
			count := n + 1
			if i+count > len(src) {
				return nil, fmt.Errorf("packbits: truncated literal run")
			}
			out = append(out, src[i:i+count]...)
			i += count
		case n == -128:
			// no-op
		default:
			if i >= len(src) {
				return nil, fmt.Errorf("packbits: truncated repeat run")
			}
			count := 1 - n
			b := src[i]
			i++
			for j := 0; j < count; j++ {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

// undoPredictor2 reverses horizontal differencing of integer samples.
func undoPredictor2(buf []byte, bo binary.ByteOrder, width, height, bytesPerSample int) {
	switch bytesPerSample {
	case 1:
		for y := 0; y < height; y++ {
			row := buf[y*width : (y+1)*width]
			for i := 1; i < len(row); i++ {
				row[i] += row[i-1]
			}
		}
	case 2:
		for y := 0; y < height; y++ {
			off := y * width * 2
			for i := 1; i < width; i++ {
				p := bo.Uint16(buf[off+(i-1)*2:])
				v := bo.Uint16(buf[off+i*2:])
				bo.PutUint16(buf[off+i*2:], v+p)
			}
		}
	case 4:
		for y := 0; y < height; y++ {
			off := y * width * 4
			for i := 1; i < width; i++ {
				p := bo.Uint32(buf[off+(i-1)*4:])
				v := bo.Uint32(buf[off+i*4:])
				bo.PutUint32(buf[off+i*4:], v+p)
			}
		}
	}
}

// undoPredictor3 reverses the TIFF floating-point predictor: byte-wise
// horizontal differencing over each row followed by a split of samples into
// byte planes, most significant plane first.
func undoPredictor3(buf []byte, width, height, bytesPerSample int) {
	rowBytes := width * bytesPerSample
	tmp := make([]byte, rowBytes)
	for y := 0; y < height; y++ {
		row := buf[y*rowBytes : (y+1)*rowBytes]
		for i := 1; i < len(row); i++ {
			row[i] += row[i-1]
		}
		copy(tmp, row)
		for j := 0; j < width; j++ {
			for k := 0; k < bytesPerSample; k++ {
				row[j*bytesPerSample+k] = tmp[k*width+j]
			}
		}
	}
}
