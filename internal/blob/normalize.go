package blob

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"
)

const (
	DefaultPhotoMaxEdge = 512
	DefaultPhotoQuality = 85
)

var ErrInvalidImage = errors.New("invalid image data")

type NormalizedImage struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// NormalizePhoto decodes an uploaded image, downsizes it to fit maxEdge and
// re-encodes it. Images with transparency stay PNG, everything else becomes JPEG.
func NormalizePhoto(src io.Reader, maxEdge int, quality int) (*NormalizedImage, error) {
	if maxEdge <= 0 {
		maxEdge = DefaultPhotoMaxEdge
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultPhotoQuality
	}

	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, ErrInvalidImage
	}

	width, height := scaleDimensions(bounds.Dx(), bounds.Dy(), maxEdge)
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	} else {
		xdraw.CatmullRom.Scale(out, out.Bounds(), img, bounds, xdraw.Src, nil)
	}

	opaque := true
	if o, ok := img.(interface{ Opaque() bool }); ok {
		opaque = o.Opaque()
	}

	buf := bytes.NewBuffer(nil)
	if opaque {
		if err := jpeg.Encode(buf, out, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encoding jpeg photo: %w", err)
		}
		return &NormalizedImage{Data: buf.Bytes(), MimeType: "image/jpeg", Width: width, Height: height}, nil
	}

	if err := png.Encode(buf, out); err != nil {
		return nil, fmt.Errorf("encoding png photo: %w", err)
	}
	return &NormalizedImage{Data: buf.Bytes(), MimeType: "image/png", Width: width, Height: height}, nil
}

func scaleDimensions(width, height, maxEdge int) (int, int) {
	if width <= maxEdge && height <= maxEdge {
		return width, height
	}

	if width >= height {
		ratio := float64(maxEdge) / float64(width)
		scaledHeight := int(float64(height)*ratio + 0.5)
		if scaledHeight < 1 {
			scaledHeight = 1
		}
		return maxEdge, scaledHeight
	}

	ratio := float64(maxEdge) / float64(height)
	scaledWidth := int(float64(width)*ratio + 0.5)
	if scaledWidth < 1 {
		scaledWidth = 1
	}
	return scaledWidth, maxEdge
}
