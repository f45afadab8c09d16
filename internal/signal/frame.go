// Package signal implements the pure signal-processing stage of presence
// verification: spatial vascular descriptors, a whole-frame reflectance check,
// and autocorrelation-based pulse detection. Nothing in this package fails;
// degenerate input degrades to zeroed output and the judgment happens one
// layer up.
package signal

// Frame is one captured image: a width*height*4 RGBA byte buffer, 8 bits per
// channel, row-major. The alpha channel is carried but never inspected.
type Frame struct {
	Pixels []byte
	Width  int
	Height int
}

// valid reports whether the buffer actually covers the claimed dimensions.
func (f Frame) valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Pixels) >= f.Width*f.Height*4
}

// at returns the RGB channels of pixel (x, y). Caller guarantees bounds.
func (f Frame) at(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 4
	return f.Pixels[i], f.Pixels[i+1], f.Pixels[i+2]
}
