package compute

import "image"

// packed returns the pixels of img as a tight w*h*4 buffer, copying only
// when rows are padded or img is a sub-image.
func packed(img *image.NRGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	row := w * 4
	if img.Stride == row && len(img.Pix) == row*h {
		out := make([]byte, len(img.Pix))
		copy(out, img.Pix)
		return out
	}

	out := make([]byte, row*h)
	for y := 0; y < h; y++ {
		o := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(out[y*row:(y+1)*row], img.Pix[o:o+row])
	}
	return out
}

// unpack copies a tight w*h*4 buffer into dst row by row.
func unpack(dst *image.NRGBA, buf []byte) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	row := w * 4
	for y := 0; y < h; y++ {
		o := dst.PixOffset(dst.Rect.Min.X, dst.Rect.Min.Y+y)
		copy(dst.Pix[o:o+row], buf[y*row:(y+1)*row])
	}
}
