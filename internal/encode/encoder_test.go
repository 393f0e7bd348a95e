package encode

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// testTile creates a size x size tile with a gradient pattern and the
// straight alpha the renderer produces.
func testTile(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x % 256),
				G: uint8(y % 256),
				B: uint8((x + y) % 256),
				A: 200,
			})
		}
	}
	return img
}

func TestNewEncoder(t *testing.T) {
	tests := []struct {
		format  string
		wantFmt string
		wantExt string
		wantErr bool
	}{
		{"png", "png", ".png", false},
		{"webp", "webp", ".webp", false},
		{"jpeg", "", "", true},
		{"bmp", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			enc, err := NewEncoder(tt.format, 85)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if enc.Format() != tt.wantFmt {
				t.Errorf("Format() = %q, want %q", enc.Format(), tt.wantFmt)
			}
			if enc.FileExtension() != tt.wantExt {
				t.Errorf("FileExtension() = %q, want %q", enc.FileExtension(), tt.wantExt)
			}
		})
	}
}

func TestNewEncoder_WebPQualityDefault(t *testing.T) {
	enc, err := NewEncoder("webp", 0)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if w := enc.(*WebPEncoder); w.Quality != 85 {
		t.Errorf("default quality = %d, want 85", w.Quality)
	}
}

func TestPNGEncoder_RoundTrip(t *testing.T) {
	enc := &PNGEncoder{}
	img := testTile(256)

	data, err := enc.Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Encode produced empty data")
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dx() != 256 || bounds.Dy() != 256 {
		t.Errorf("decoded size = %dx%d, want 256x256", bounds.Dx(), bounds.Dy())
	}

	// PNG stores straight alpha, so the semi-transparent channel values
	// must survive byte for byte.
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			want := img.NRGBAAt(x, y)
			got := color.NRGBAModel.Convert(decoded.At(x, y)).(color.NRGBA)
			if got != want {
				t.Fatalf("pixel mismatch at (%d,%d): got %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestPNGEncoder_TransparentImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if x < 32 {
				img.SetNRGBA(x, y, color.NRGBA{255, 0, 0, 200})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 0})
			}
		}
	}

	enc := &PNGEncoder{}
	data, err := enc.Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}

	got := color.NRGBAModel.Convert(decoded.At(10, 10)).(color.NRGBA)
	if got != (color.NRGBA{255, 0, 0, 200}) {
		t.Errorf("painted pixel = %v, want {255 0 0 200}", got)
	}

	_, _, _, a := decoded.At(50, 10).RGBA()
	if a != 0 {
		t.Errorf("transparent pixel alpha = %d, want 0", a)
	}
}

func TestWebPEncoder_Lossy(t *testing.T) {
	enc := newWebPEncoder(85)
	img := testTile(256)

	data, err := enc.Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Encode produced empty data")
	}

	decoded, err := DecodeImage(data, "webp")
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != 256 || bounds.Dy() != 256 {
		t.Errorf("decoded size = %dx%d, want 256x256", bounds.Dx(), bounds.Dy())
	}

	// Lossy compression may shift values slightly but not wildly.
	maxDiff := 0
	for y := 0; y < 256; y += 8 {
		for x := 0; x < 256; x += 8 {
			want := img.NRGBAAt(x, y)
			got := color.NRGBAModel.Convert(decoded.At(x, y)).(color.NRGBA)
			for _, d := range []int{
				int(want.R) - int(got.R),
				int(want.G) - int(got.G),
				int(want.B) - int(got.B),
			} {
				if d < 0 {
					d = -d
				}
				if d > maxDiff {
					maxDiff = d
				}
			}
		}
	}
	if maxDiff > 40 {
		t.Errorf("webp max channel diff = %d, want <= 40 at quality 85", maxDiff)
	}
}

func TestWebPEncoder_Lossless(t *testing.T) {
	enc := newWebPEncoder(100)
	img := testTile(64)

	data, err := enc.Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := DecodeImage(data, "webp")
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}

	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			want := img.NRGBAAt(x, y)
			got := color.NRGBAModel.Convert(decoded.At(x, y)).(color.NRGBA)
			if got != want {
				t.Fatalf("pixel mismatch at (%d,%d): got %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestDecodeImage_UnsupportedFormat(t *testing.T) {
	if _, err := DecodeImage([]byte{1, 2, 3}, "gif"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestFormatForExtension(t *testing.T) {
	tests := []struct {
		ext    string
		want   string
		wantOK bool
	}{
		{".png", "png", true},
		{".webp", "webp", true},
		{".jpg", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := FormatForExtension(tt.ext)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("FormatForExtension(%q) = %q, %v; want %q, %v", tt.ext, got, ok, tt.want, tt.wantOK)
		}
	}
}
