package scoring

import (
	"image"
	"math"
)

// níveis de quantização da matriz de coocorrência. 64 níveis mantêm a
// matriz pequena (64x64 por direção) sem achatar demais a textura.
const glcmLevels = 64

// As quatro direções clássicas (0°, 45°, 90°, 135°), distância 1.
var glcmOffsets = [4][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}}

// textureFeatures extrai um conjunto de features de Haralick sobre as
// matrizes de coocorrência de níveis de cinza, e devolve a média de cada
// feature entre as quatro direções. O score final é a média desse vetor.
func textureFeatures(img *image.Gray) []float64 {
	const nfeatures = 7
	acc := make([]float64, nfeatures)
	dirs := 0

	for _, off := range glcmOffsets {
		m, total := coocurrence(img, off[0], off[1])
		if total == 0 {
			continue
		}
		fs := glcmFeatures(m, total)
		for i, f := range fs {
			acc[i] += f
		}
		dirs++
	}

	if dirs == 0 {
		return acc
	}
	for i := range acc {
		acc[i] /= float64(dirs)
	}
	return acc
}

// coocurrence conta pares (nível, nível-vizinho) na direção (dx, dy).
func coocurrence(img *image.Gray, dx, dy int) ([][]float64, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	m := make([][]float64, glcmLevels)
	for i := range m {
		m[i] = make([]float64, glcmLevels)
	}

	var total float64
	for y := 0; y < h; y++ {
		ny := y + dy
		if ny < 0 || ny >= h {
			continue
		}
		for x := 0; x < w; x++ {
			nx := x + dx
			if nx < 0 || nx >= w {
				continue
			}
			i := quantize(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			j := quantize(img.GrayAt(b.Min.X+nx, b.Min.Y+ny).Y)
			m[i][j]++
			total++
		}
	}
	return m, total
}

func quantize(v uint8) int {
	return int(v) * glcmLevels / 256
}

// glcmFeatures calcula, sobre a matriz normalizada:
// energia (ASM), contraste, correlação, variância, homogeneidade (IDM),
// entropia e dissimilaridade.
func glcmFeatures(m [][]float64, total float64) []float64 {
	var (
		asm, contrast, homogeneity, entropy, dissimilarity float64
		meanI, meanJ                                       float64
	)

	for i := range m {
		for j, c := range m[i] {
			if c == 0 {
				continue
			}
			p := c / total
			d := float64(i - j)

			asm += p * p
			contrast += d * d * p
			homogeneity += p / (1 + d*d)
			entropy -= p * math.Log2(p)
			dissimilarity += math.Abs(d) * p
			meanI += float64(i) * p
			meanJ += float64(j) * p
		}
	}

	var varI, varJ, cov float64
	for i := range m {
		for j, c := range m[i] {
			if c == 0 {
				continue
			}
			p := c / total
			di := float64(i) - meanI
			dj := float64(j) - meanJ
			varI += di * di * p
			varJ += dj * dj * p
			cov += di * dj * p
		}
	}

	correlation := 0.0
	if varI > 0 && varJ > 0 {
		correlation = cov / math.Sqrt(varI*varJ)
	}

	return []float64{asm, contrast, correlation, varI, homogeneity, entropy, dissimilarity}
}
