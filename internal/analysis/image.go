package analysis

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"

	// formatos aceitos no upload
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ToJPEG decodifica qualquer formato registrado e reencoda como JPEG RGB.
// O canal alfa é descartado; a cor guardada no pixel é mantida.
func ToJPEG(r io.Reader) ([]byte, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("cannot identify image file: %w", err)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, toRGB(img, format), &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}

// toRGB remove transparência e paletas; JPEG já decodificado passa direto.
func toRGB(img image.Image, format string) image.Image {
	switch img.(type) {
	case *image.YCbCr, *image.Gray:
		if format == "jpeg" {
			return img
		}
	}

	b := img.Bounds()
	dst := image.NewRGBA(b)

	if src, ok := img.(*image.NRGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			si := src.PixOffset(b.Min.X, y)
			di := dst.PixOffset(b.Min.X, y)
			for x := b.Min.X; x < b.Max.X; x++ {
				copy(dst.Pix[di:di+3], src.Pix[si:si+3])
				dst.Pix[di+3] = 0xff
				si += 4
				di += 4
			}
		}
		return dst
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return dst
}
