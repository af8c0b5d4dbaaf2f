package imageio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"

	"golang.org/x/image/bmp"
)

var (
	// ErrNotFound indicates the input image does not exist.
	ErrNotFound = errors.New("imageio: input image not found")

	// ErrDecode indicates the input is not a readable bitmap.
	ErrDecode = errors.New("imageio: cannot decode bitmap")

	// ErrEmpty indicates an image with no pixels.
	ErrEmpty = errors.New("imageio: image has no pixels")
)

// LoadBMP reads a bitmap and returns it as non-premultiplied RGBA anchored
// at the origin.
func LoadBMP(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	img, err := bmp.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	out := ToNRGBA(img)
	if out.Rect.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	return out, nil
}

// SaveBMP writes img as a 32-bit bitmap with a V4 header, whether or not it
// is opaque, so the output has the same format as a 32-bit input.
func SaveBMP(path string, img *image.NRGBA) error {
	if img.Rect.Empty() {
		return fmt.Errorf("%w: %s", ErrEmpty, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if err := encode32(w, img); err != nil {
		f.Close()
		return fmt.Errorf("imageio: encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

const (
	fileHeaderLen   = 14
	v4InfoHeaderLen = 108
	biBitfields     = 3
	lcsSRGB         = 0x73524742
)

// v4Header is the file header followed by a BITMAPV4HEADER. The channel
// masks are the BGRA defaults, which bmp.Decode reads back with alpha.
type v4Header struct {
	sigBM           [2]byte
	fileSize        uint32
	reserved        [2]uint16
	pixOffset       uint32
	dibHeaderSize   uint32
	width           int32
	height          int32
	colorPlane      uint16
	bpp             uint16
	compression     uint32
	imageSize       uint32
	xPixelsPerMeter uint32
	yPixelsPerMeter uint32
	colorUse        uint32
	colorImportant  uint32
	redMask         uint32
	greenMask       uint32
	blueMask        uint32
	alphaMask       uint32
	colorSpace      uint32
	endpoints       [36]byte
	gamma           [3]uint32
}

// encode32 writes bottom-up BGRA rows. 32-bit rows need no padding.
func encode32(w io.Writer, m *image.NRGBA) error {
	dx, dy := m.Rect.Dx(), m.Rect.Dy()
	imageSize := uint32(4 * dx * dy)

	h := &v4Header{
		sigBM:         [2]byte{'B', 'M'},
		fileSize:      fileHeaderLen + v4InfoHeaderLen + imageSize,
		pixOffset:     fileHeaderLen + v4InfoHeaderLen,
		dibHeaderSize: v4InfoHeaderLen,
		width:         int32(dx),
		height:        int32(dy),
		colorPlane:    1,
		bpp:           32,
		compression:   biBitfields,
		imageSize:     imageSize,
		redMask:       0x00ff0000,
		greenMask:     0x0000ff00,
		blueMask:      0x000000ff,
		alphaMask:     0xff000000,
		colorSpace:    lcsSRGB,
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}

	row := make([]byte, 4*dx)
	for y := dy - 1; y >= 0; y-- {
		src := m.Pix[m.PixOffset(m.Rect.Min.X, m.Rect.Min.Y+y):]
		for x := 0; x < dx; x++ {
			row[x*4+0] = src[x*4+2]
			row[x*4+1] = src[x*4+1]
			row[x*4+2] = src[x*4+0]
			row[x*4+3] = src[x*4+3]
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// ToNRGBA converts img to *image.NRGBA with bounds starting at (0, 0). An
// NRGBA input already at the origin is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}

	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out
}
