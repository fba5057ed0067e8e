// Package imaging encodes generated images and manages the files they are
// written to: the permanent output directory and the temporary download copies.
package imaging

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// Format is an output encoding.
type Format string

const (
	PNG  Format = "PNG"
	JPEG Format = "JPEG"
	WEBP Format = "WEBP"
)

var formats = []Format{PNG, JPEG, WEBP}

// Formats returns the supported output formats in display order.
func Formats() []Format { return append([]Format(nil), formats...) }

// ParseFormat matches a format name case-insensitively. "JPG" is accepted
// as JPEG.
func ParseFormat(s string) (Format, bool) {
	u := strings.ToUpper(strings.TrimSpace(s))
	if u == "JPG" {
		return JPEG, true
	}
	for _, f := range formats {
		if string(f) == u {
			return f, true
		}
	}
	return "", false
}

// Ext is the lower-case file extension without the dot.
func (f Format) Ext() string { return strings.ToLower(string(f)) }

func (f Format) ContentType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case WEBP:
		return "image/webp"
	default:
		return "image/png"
	}
}

// HasAlpha reports whether the format preserves an alpha channel.
func (f Format) HasAlpha() bool { return f != JPEG }

// Encode writes img in format f. JPEG output is flattened to opaque RGB
// first; PNG and WEBP keep alpha. WEBP is lossless.
func Encode(w io.Writer, img image.Image, f Format) error {
	bw := bufio.NewWriter(w)
	if !f.HasAlpha() {
		img = Flatten(img)
	}
	var err error
	switch f {
	case PNG:
		err = png.Encode(bw, img)
	case JPEG:
		err = jpeg.Encode(bw, img, &jpeg.Options{Quality: 95})
	case WEBP:
		err = nativewebp.Encode(bw, toNRGBA(img), nil)
	default:
		return fmt.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

// Flatten drops the alpha channel: every pixel keeps its straight (not
// premultiplied) color and becomes fully opaque. No background compositing
// happens, so a transparent red pixel becomes opaque red.
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	src := toNRGBA(img)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		si := src.PixOffset(b.Min.X, y)
		di := out.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Pix[di+0] = src.Pix[si+0]
			out.Pix[di+1] = src.Pix[si+1]
			out.Pix[di+2] = src.Pix[si+2]
			out.Pix[di+3] = 0xff
			si += 4
			di += 4
		}
	}
	return out
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	n := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			n.Set(x, y, color.NRGBAModel.Convert(img.At(x, y)))
		}
	}
	return n
}

// Opaque reports whether every pixel of img has full alpha.
func Opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}
