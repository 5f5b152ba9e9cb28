package scoring

import (
	"image"
	"image/color"
	"math"
)

// gaussianBlur aplica suavização gaussiana separável (duas passadas 1D)
// com bordas clampadas. O raio do kernel é ceil(3*sigma), suficiente
// para cobrir praticamente toda a massa da gaussiana.
func gaussianBlur(src *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return src
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return src
	}

	// passada horizontal em float para não acumular erro de quantização
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k, kv := range kernel {
				sx := clampInt(x+k-radius, 0, w-1)
				acc += kv * float64(src.GrayAt(b.Min.X+sx, b.Min.Y+y).Y)
			}
			tmp[y*w+x] = acc
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k, kv := range kernel {
				sy := clampInt(y+k-radius, 0, h-1)
				acc += kv * tmp[sy*w+x]
			}
			dst.SetGray(x, y, grayVal(acc))
		}
	}
	return dst
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	size := 2*radius + 1
	kernel := make([]float64, size)
	var sum float64
	for i := 0; i < size; i++ {
		d := float64(i - radius)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func grayVal(v float64) color.Gray {
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return color.Gray{Y: uint8(v + 0.5)}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
