package platform_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/execgate/internal/model"
	"github.com/slok/execgate/internal/platform"
)

func newPNGBlob(t *testing.T, w, h int) *platform.Blob {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &platform.Blob{Key: "test.png", ContentType: "image/png", Data: buf.Bytes()}
}

func TestDrawTransformerTransform(t *testing.T) {
	tests := map[string]struct {
		srcW, srcH     int
		opts           platform.ImageOptions
		expW, expH     int
		expContentType string
		expErrIs       error
	}{
		"Cover should fill the exact box.": {
			srcW: 200, srcH: 100,
			opts:           platform.ImageOptions{Width: 100, Height: 100, Fit: "cover", Format: "png"},
			expW:           100,
			expH:           100,
			expContentType: "image/png",
		},

		"Contain should keep the aspect ratio inside the box.": {
			srcW: 200, srcH: 100,
			opts:           platform.ImageOptions{Width: 100, Height: 100, Fit: "contain", Format: "png"},
			expW:           100,
			expH:           50,
			expContentType: "image/png",
		},

		"Contain should upscale small images.": {
			srcW: 20, srcH: 10,
			opts:           platform.ImageOptions{Width: 100, Height: 100, Fit: "contain", Format: "png"},
			expW:           100,
			expH:           50,
			expContentType: "image/png",
		},

		"Scale down should never upscale.": {
			srcW: 20, srcH: 10,
			opts:           platform.ImageOptions{Width: 100, Height: 100, Fit: "scale-down", Format: "png"},
			expW:           20,
			expH:           10,
			expContentType: "image/png",
		},

		"Unsupported formats should be encoded as jpeg.": {
			srcW: 50, srcH: 50,
			opts:           platform.ImageOptions{Width: 10, Height: 10, Fit: "cover", Format: "avif"},
			expW:           10,
			expH:           10,
			expContentType: "image/jpeg",
		},

		"Zero dimensions should fail.": {
			srcW: 50, srcH: 50,
			opts:     platform.ImageOptions{Width: 0, Height: 10},
			expErrIs: model.ErrNotValid,
		},

		"Huge dimensions should fail.": {
			srcW: 50, srcH: 50,
			opts:     platform.ImageOptions{Width: platform.MaxImageDimension + 1, Height: 10},
			expErrIs: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			tr, err := platform.NewDrawTransformer(platform.DrawTransformerConfig{})
			require.NoError(err)

			out, err := tr.Transform(context.Background(), newPNGBlob(t, test.srcW, test.srcH), test.opts)
			if test.expErrIs != nil {
				assert.True(errors.Is(err, test.expErrIs))
				return
			}
			require.NoError(err)

			assert.Equal(test.expContentType, out.ContentType)
			cfg, _, err := image.DecodeConfig(bytes.NewReader(out.Data))
			require.NoError(err)
			assert.Equal(test.expW, cfg.Width)
			assert.Equal(test.expH, cfg.Height)
		})
	}
}

func TestDrawTransformerInvalidImage(t *testing.T) {
	tr, err := platform.NewDrawTransformer(platform.DrawTransformerConfig{})
	require.NoError(t, err)

	_, err = tr.Transform(context.Background(), &platform.Blob{Key: "x", Data: []byte("not an image")}, platform.ImageOptions{Width: 10, Height: 10})
	assert.Error(t, err)
}

func TestNewDrawTransformerInvalidQuality(t *testing.T) {
	_, err := platform.NewDrawTransformer(platform.DrawTransformerConfig{JPEGQuality: 101})
	assert.Error(t, err)
}
