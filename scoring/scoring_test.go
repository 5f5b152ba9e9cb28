package scoring

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeTestPNG grava uma imagem sintética com textura aleatória (mas
// determinística) para exercitar o pipeline inteiro de score.
func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()

	rng := rand.New(rand.NewSource(42))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(rng.Intn(256))})
		}
	}

	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestClampDownscale(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.5, 0.5},
		{1.0, 1.0},
		{0.0, MinDownscale},
		{-3.0, MinDownscale},
		{0.05, MinDownscale},
		{2.5, MaxDownscale},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ClampDownscale(c.in), "in=%v", c.in)
	}
}

func TestScore_FileNotFound(t *testing.T) {
	e := NewEngine()
	_, err := e.Score(context.Background(), "/nonexistent/image.png", 1.0)
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestScore_FileTooLarge(t *testing.T) {
	path := writeTestPNG(t, 64, 64)

	e := &Engine{MaxFileBytes: 10}
	_, err := e.Score(context.Background(), path, 1.0)
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestScore_DecodeFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-an-image.png")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a png"), 0o644))

	e := NewEngine()
	_, err := e.Score(context.Background(), path, 1.0)
	require.ErrorIs(t, err, ErrDecode)
}

func TestScore_SyntheticImage(t *testing.T) {
	path := writeTestPNG(t, 128, 128)

	e := NewEngine()
	score, err := e.Score(context.Background(), path, 1.0)
	require.NoError(t, err)
	require.False(t, score != score, "score must not be NaN")
}

func TestScore_DownscaleProducesResult(t *testing.T) {
	path := writeTestPNG(t, 128, 128)

	e := NewEngine()
	_, err := e.Score(context.Background(), path, 0.5)
	require.NoError(t, err)
}

func TestScore_CanceledContext(t *testing.T) {
	path := writeTestPNG(t, 64, 64)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine()
	_, err := e.Score(ctx, path, 1.0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDownscaleGray_Dimensions(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 100, 80))

	out := downscaleGray(src, 0.5)
	require.Equal(t, 50, out.Bounds().Dx())
	require.Equal(t, 40, out.Bounds().Dy())

	same := downscaleGray(src, 1.0)
	require.Equal(t, src.Bounds(), same.Bounds())
}

func TestGaussianBlur_UniformImageStaysUniform(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			src.SetGray(x, y, color.Gray{Y: 120})
		}
	}

	out := gaussianBlur(src, 1.5)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			v := out.GrayAt(x, y).Y
			require.InDelta(t, 120, float64(v), 1, "pixel (%d,%d)", x, y)
		}
	}
}

func TestGaussianKernel_NormalizedAndSymmetric(t *testing.T) {
	k := gaussianKernel(1.5)
	require.Equal(t, 1, len(k)%2, "kernel length must be odd")

	sum := 0.0
	for _, v := range k {
		sum += v
	}
	require.InDelta(t, 1.0, sum, 1e-9)

	for i := 0; i < len(k)/2; i++ {
		require.InDelta(t, k[i], k[len(k)-1-i], 1e-12)
	}
}

func TestTextureFeatures_UniformImageHasNoContrast(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetGray(x, y, color.Gray{Y: 200})
		}
	}

	fs := textureFeatures(img)
	require.Len(t, fs, 7)
	// ASM de imagem uniforme é 1 (um único par possível)
	require.InDelta(t, 1.0, fs[0], 1e-9)
	// contraste de imagem uniforme é 0
	require.InDelta(t, 0.0, fs[1], 1e-9)
}

func TestScore_CutoffExceeded(t *testing.T) {
	path := writeTestPNG(t, 64, 64)

	e := &Engine{Cutoff: time.Nanosecond}
	_, err := e.Score(context.Background(), path, 1.0)
	require.ErrorIs(t, err, ErrCutoff)
}
