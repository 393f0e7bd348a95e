// Package tifftest builds small GeoTIFF files in memory for tests. It
// supports the strip and tile layouts, compressions, and predictors the
// reader handles, which keeps reader and renderer tests free of binary
// fixtures.
package tifftest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Raster describes a synthetic single-band GeoTIFF. Zero values select a
// plain little-endian float32 raster in one uncompressed strip.
type Raster struct {
	Width, Height int
	Values        []float32 // row-major, Width*Height samples

	OriginX    float64 // upper-left corner X in CRS units
	OriginY    float64 // upper-left corner Y in CRS units
	PixelSize  float64 // pixel width in CRS units
	PixelSizeY float64 // pixel height in CRS units, 0 = same as PixelSize

	RowsPerStrip int    // 0 = single strip covering the image
	TileSize     int    // >0 = square tiles instead of strips
	Compression  uint16 // 0/1 none, 8 deflate, 32773 packbits, 50000 zstd
	Predictor    uint16 // 0/1 none, 2 horizontal int, 3 float planes
	Int16        bool   // store samples as int16 instead of float32
	NoData       string // value of the GDAL nodata tag, "" omits it
	EPSG         int    // geographic CS code for GeoKeys, 0 omits them
	BigEndian    bool
	OmitGeo      bool  // drop pixel scale and tiepoint tags
	SparseBlocks []int // block indices stored with offset and size zero

	// TagOverrides forces SHORT tag values after the standard tags are
	// built, overwriting an existing tag or appending a new one. Used to
	// produce layouts the builder otherwise refuses, such as multi-band
	// or unsupported-compression headers.
	TagOverrides map[uint16]uint16
}

// Write builds the raster and writes it to path.
func Write(path string, r Raster) error {
	data, err := Bytes(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Bytes builds the raster and returns the encoded file.
func Bytes(r Raster) ([]byte, error) {
	if len(r.Values) != r.Width*r.Height {
		return nil, fmt.Errorf("tifftest: %d values for %dx%d raster", len(r.Values), r.Width, r.Height)
	}
	if r.Compression == 0 {
		r.Compression = 1
	}
	if r.Predictor == 0 {
		r.Predictor = 1
	}
	if r.PixelSize == 0 {
		r.PixelSize = 1
	}
	if r.PixelSizeY == 0 {
		r.PixelSizeY = r.PixelSize
	}

	var bo binary.ByteOrder = binary.LittleEndian
	if r.BigEndian {
		bo = binary.BigEndian
	}

	blocks, err := encodeBlocks(r, bo)
	if err != nil {
		return nil, err
	}
	for _, i := range r.SparseBlocks {
		if i >= 0 && i < len(blocks) {
			blocks[i] = nil
		}
	}

	// Layout: header, block data, IFD, external tag data.
	offset := uint32(8)
	blockOffsets := make([]uint32, len(blocks))
	for i, b := range blocks {
		if b == nil {
			continue
		}
		blockOffsets[i] = offset
		offset += uint32(len(b))
		if offset%2 == 1 {
			offset++
		}
	}
	ifdOffset := offset

	entries := buildEntries(r, bo, blockOffsets, blocks)
	externalStart := ifdOffset + 2 + 12*uint32(len(entries)) + 4
	extOff := externalStart
	for i := range entries {
		if entries[i].external != nil {
			entries[i].externalOffset = extOff
			extOff += uint32(len(entries[i].external))
			if extOff%2 == 1 {
				extOff++
			}
		}
	}

	var buf bytes.Buffer
	if r.BigEndian {
		buf.WriteString("MM")
	} else {
		buf.WriteString("II")
	}
	writeU16(&buf, bo, 42)
	writeU32(&buf, bo, ifdOffset)

	for i, b := range blocks {
		if b == nil {
			continue
		}
		pad(&buf, blockOffsets[i])
		buf.Write(b)
	}
	pad(&buf, ifdOffset)

	writeU16(&buf, bo, uint16(len(entries)))
	for _, e := range entries {
		writeU16(&buf, bo, e.tag)
		writeU16(&buf, bo, e.typ)
		writeU32(&buf, bo, e.count)
		if e.external != nil {
			writeU32(&buf, bo, e.externalOffset)
		} else {
			inline := make([]byte, 4)
			copy(inline, e.inline)
			buf.Write(inline)
		}
	}
	writeU32(&buf, bo, 0) // no next IFD

	for _, e := range entries {
		if e.external != nil {
			pad(&buf, e.externalOffset)
			buf.Write(e.external)
		}
	}

	return buf.Bytes(), nil
}

type entry struct {
	tag            uint16
	typ            uint16
	count          uint32
	inline         []byte
	external       []byte
	externalOffset uint32
}

const (
	typShort  = 3
	typLong   = 4
	typASCII  = 2
	typDouble = 12
)

func buildEntries(r Raster, bo binary.ByteOrder, blockOffsets []uint32, blocks [][]byte) []entry {
	bits := uint16(32)
	sampleFormat := uint16(3)
	if r.Int16 {
		bits = 16
		sampleFormat = 2
	}

	var es []entry
	addShort := func(tag, v uint16) {
		b := make([]byte, 2)
		bo.PutUint16(b, v)
		es = append(es, entry{tag: tag, typ: typShort, count: 1, inline: b})
	}
	addLong := func(tag uint16, v uint32) {
		b := make([]byte, 4)
		bo.PutUint32(b, v)
		es = append(es, entry{tag: tag, typ: typLong, count: 1, inline: b})
	}
	addLongs := func(tag uint16, vs []uint32) {
		b := make([]byte, 4*len(vs))
		for i, v := range vs {
			bo.PutUint32(b[i*4:], v)
		}
		if len(vs) == 1 {
			es = append(es, entry{tag: tag, typ: typLong, count: 1, inline: b})
		} else {
			es = append(es, entry{tag: tag, typ: typLong, count: uint32(len(vs)), external: b})
		}
	}
	addShorts := func(tag uint16, vs []uint16) {
		b := make([]byte, 2*len(vs))
		for i, v := range vs {
			bo.PutUint16(b[i*2:], v)
		}
		if len(vs) <= 2 {
			es = append(es, entry{tag: tag, typ: typShort, count: uint32(len(vs)), inline: b})
		} else {
			es = append(es, entry{tag: tag, typ: typShort, count: uint32(len(vs)), external: b})
		}
	}
	addDoubles := func(tag uint16, vs []float64) {
		b := make([]byte, 8*len(vs))
		for i, v := range vs {
			bo.PutUint64(b[i*8:], math.Float64bits(v))
		}
		es = append(es, entry{tag: tag, typ: typDouble, count: uint32(len(vs)), external: b})
	}
	addASCII := func(tag uint16, s string) {
		b := append([]byte(s), 0)
		e := entry{tag: tag, typ: typASCII, count: uint32(len(b))}
		if len(b) <= 4 {
			e.inline = b
		} else {
			e.external = b
		}
		es = append(es, e)
	}

	counts := make([]uint32, len(blocks))
	for i, b := range blocks {
		counts[i] = uint32(len(b))
	}

	addLong(256, uint32(r.Width))
	addLong(257, uint32(r.Height))
	addShort(258, bits)
	addShort(259, r.Compression)
	addShort(262, 1)
	if r.TileSize == 0 {
		addLongs(273, blockOffsets)
	}
	addShort(277, 1)
	if r.TileSize == 0 {
		rps := r.RowsPerStrip
		if rps == 0 {
			rps = r.Height
		}
		addLong(278, uint32(rps))
		addLongs(279, counts)
	}
	if r.Predictor > 1 {
		addShort(317, r.Predictor)
	}
	if r.TileSize > 0 {
		addLong(322, uint32(r.TileSize))
		addLong(323, uint32(r.TileSize))
		addLongs(324, blockOffsets)
		addLongs(325, counts)
	}
	addShort(339, sampleFormat)
	if !r.OmitGeo {
		addDoubles(33550, []float64{r.PixelSize, r.PixelSizeY, 0})
		addDoubles(33922, []float64{0, 0, 0, r.OriginX, r.OriginY, 0})
	}
	if r.EPSG != 0 {
		addShorts(34735, []uint16{
			1, 1, 0, 2,
			1024, 0, 1, 2,
			2048, 0, 1, uint16(r.EPSG),
		})
	}
	if r.NoData != "" {
		addASCII(42113, r.NoData)
	}

	for tag, v := range r.TagOverrides {
		b := make([]byte, 2)
		bo.PutUint16(b, v)
		replaced := false
		for i := range es {
			if es[i].tag == tag {
				es[i] = entry{tag: tag, typ: typShort, count: 1, inline: b}
				replaced = true
				break
			}
		}
		if !replaced {
			es = append(es, entry{tag: tag, typ: typShort, count: 1, inline: b})
		}
	}

	return es
}

func encodeBlocks(r Raster, bo binary.ByteOrder) ([][]byte, error) {
	bps := 4
	if r.Int16 {
		bps = 2
	}

	var regions [][4]int // x0, y0, w, h with padded storage size
	if r.TileSize > 0 {
		ts := r.TileSize
		across := (r.Width + ts - 1) / ts
		down := (r.Height + ts - 1) / ts
		for row := 0; row < down; row++ {
			for col := 0; col < across; col++ {
				regions = append(regions, [4]int{col * ts, row * ts, ts, ts})
			}
		}
	} else {
		rps := r.RowsPerStrip
		if rps == 0 {
			rps = r.Height
		}
		for y := 0; y < r.Height; y += rps {
			h := rps
			if y+h > r.Height {
				h = r.Height - y
			}
			regions = append(regions, [4]int{0, y, r.Width, h})
		}
	}

	// Predictor 3 plane-splits sample bytes most significant first, so
	// the pre-split serialization is big-endian no matter the file order.
	sbo := bo
	if r.Predictor == 3 {
		sbo = binary.BigEndian
	}

	blocks := make([][]byte, 0, len(regions))
	for _, reg := range regions {
		x0, y0, w, h := reg[0], reg[1], reg[2], reg[3]
		raw := make([]byte, w*h*bps)
		for yy := 0; yy < h; yy++ {
			for xx := 0; xx < w; xx++ {
				var v float32
				sx, sy := x0+xx, y0+yy
				if sx < r.Width && sy < r.Height {
					v = r.Values[sy*r.Width+sx]
				}
				off := (yy*w + xx) * bps
				if r.Int16 {
					sbo.PutUint16(raw[off:], uint16(int16(v)))
				} else {
					sbo.PutUint32(raw[off:], math.Float32bits(v))
				}
			}
		}

		switch r.Predictor {
		case 1:
		case 2:
			if r.Int16 {
				applyPredictor2Int16(raw, bo, w, h)
			} else {
				return nil, fmt.Errorf("tifftest: predictor 2 requires int16 samples")
			}
		case 3:
			applyPredictor3(raw, w, h, bps)
		default:
			return nil, fmt.Errorf("tifftest: unsupported predictor %d", r.Predictor)
		}

		enc, err := compressBlock(raw, r.Compression)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, enc)
	}
	return blocks, nil
}

func compressBlock(raw []byte, compression uint16) ([]byte, error) {
	switch compression {
	case 1:
		return raw, nil
	case 8:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case 32773:
		var out []byte
		src := raw
		for len(src) > 0 {
			n := len(src)
			if n > 128 {
				n = 128
			}
			out = append(out, byte(n-1))
			out = append(out, src[:n]...)
			src = src[n:]
		}
		return out, nil
	case 50000:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(raw, nil), nil
	default:
		return nil, fmt.Errorf("tifftest: unsupported compression %d", compression)
	}
}

// applyPredictor2Int16 horizontally differences int16 samples in place.
func applyPredictor2Int16(buf []byte, bo binary.ByteOrder, width, height int) {
	for y := 0; y < height; y++ {
		off := y * width * 2
		for i := width - 1; i >= 1; i-- {
			v := bo.Uint16(buf[off+i*2:])
			p := bo.Uint16(buf[off+(i-1)*2:])
			bo.PutUint16(buf[off+i*2:], v-p)
		}
	}
}

// applyPredictor3 splits samples into byte planes, most significant plane
// first, then byte-differences each row in place.
func applyPredictor3(buf []byte, width, height, bytesPerSample int) {
	rowBytes := width * bytesPerSample
	tmp := make([]byte, rowBytes)
	for y := 0; y < height; y++ {
		row := buf[y*rowBytes : (y+1)*rowBytes]
		copy(tmp, row)
		for j := 0; j < width; j++ {
			for k := 0; k < bytesPerSample; k++ {
				row[k*width+j] = tmp[j*bytesPerSample+k]
			}
		}
		for i := len(row) - 1; i >= 1; i-- {
			row[i] -= row[i-1]
		}
	}
}

func writeU16(buf *bytes.Buffer, bo binary.ByteOrder, v uint16) {
	b := make([]byte, 2)
	bo.PutUint16(b, v)
	buf.Write(b)
}

func writeU32(buf *bytes.Buffer, bo binary.ByteOrder, v uint32) {
	b := make([]byte, 4)
	bo.PutUint32(b, v)
	buf.Write(b)
}

func pad(buf *bytes.Buffer, target uint32) {
	for uint32(buf.Len()) < target {
		buf.WriteByte(0)
	}
}
