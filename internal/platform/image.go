package platform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	// Decoders.
	_ "image/gif"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
)

// MaxImageDimension is the largest width or height a transformation accepts.
const MaxImageDimension = 4096

// DrawTransformerConfig is the configuration for the draw image transformer.
type DrawTransformerConfig struct {
	JPEGQuality int
	Logger      log.Logger
}

func (c *DrawTransformerConfig) defaults() error {
	if c.JPEGQuality == 0 {
		c.JPEGQuality = 85
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be in the [1, 100] range, got: %d", c.JPEGQuality)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "platform.DrawTransformer"})
	return nil
}

// DrawTransformer resizes images with golang.org/x/image/draw.
// Only JPEG and PNG can be encoded, any other format is encoded as JPEG.
type DrawTransformer struct {
	quality int
	logger  log.Logger
}

// NewDrawTransformer creates a new image transformer.
func NewDrawTransformer(cfg DrawTransformerConfig) (*DrawTransformer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &DrawTransformer{quality: cfg.JPEGQuality, logger: cfg.Logger}, nil
}

// Transform resizes the blob image using the options fit mode and encodes it in the requested format.
func (d *DrawTransformer) Transform(ctx context.Context, blob *Blob, opts ImageOptions) (*Blob, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width > MaxImageDimension || opts.Height > MaxImageDimension {
		return nil, fmt.Errorf("invalid dimensions %dx%d: %w", opts.Width, opts.Height, model.ErrNotValid)
	}

	src, _, err := image.Decode(bytes.NewReader(blob.Data))
	if err != nil {
		return nil, fmt.Errorf("could not decode image %s: %w", blob.Key, err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	dst := resize(src, opts.Width, opts.Height, model.ImageFit(opts.Fit))

	var buf bytes.Buffer
	contentType := "image/jpeg"
	switch strings.ToLower(opts.Format) {
	case "png":
		contentType = "image/png"
		err = png.Encode(&buf, dst)
	case "jpeg", "jpg", "":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: d.quality})
	default:
		d.logger.Debugf("Format %q not supported, using jpeg", opts.Format)
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: d.quality})
	}
	if err != nil {
		return nil, fmt.Errorf("could not encode image %s: %w", blob.Key, err)
	}

	return &Blob{Key: blob.Key, ContentType: contentType, Data: buf.Bytes()}, nil
}

func resize(src image.Image, width, height int, fit model.ImageFit) image.Image {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return image.NewRGBA(image.Rect(0, 0, width, height))
	}

	switch fit {
	case model.ImageFitContain, model.ImageFitScaleDown:
		scale := min(float64(width)/float64(sw), float64(height)/float64(sh))
		if fit == model.ImageFitScaleDown && scale > 1 {
			scale = 1
		}
		w := max(1, int(float64(sw)*scale+0.5))
		h := max(1, int(float64(sh)*scale+0.5))
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
		return dst

	default:
		// Cover: scale to cover the box and center crop the overflow.
		scale := max(float64(width)/float64(sw), float64(height)/float64(sh))
		cw := min(sw, max(1, int(float64(width)/scale+0.5)))
		ch := min(sh, max(1, int(float64(height)/scale+0.5)))
		x0 := sb.Min.X + (sw-cw)/2
		y0 := sb.Min.Y + (sh-ch)/2
		crop := image.Rect(x0, y0, x0+cw, y0+ch)

		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
		return dst
	}
}
