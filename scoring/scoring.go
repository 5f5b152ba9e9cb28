// Package scoring implementa o colaborador de computação: o cálculo do
// score de qualidade de uma imagem (features de textura sobre a versão
// em tons de cinza). Para o escalonador isto é uma unidade de trabalho
// opaca, bloqueante e CPU-bound; valores menores indicam qualidade pior.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"golang.org/x/image/draw"
)

const (
	DefaultMaxFileBytes = 20 << 20
	DefaultCutoff       = 25 * time.Second

	MinDownscale = 0.1
	MaxDownscale = 1.0

	blurSigma = 1.5
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrFileTooLarge = errors.New("file too large (max 20MB)")
	ErrDecode       = errors.New("failed to read image")
	ErrCutoff       = errors.New("processing timeout")
)

// ClampDownscale força o fator para [0.1, 1.0]. O clamp pertence ao
// contrato de entrada da computação, não ao escalonador: quem chama só
// precisa garantir que o valor existe e é numérico.
func ClampDownscale(f float64) float64 {
	if f < MinDownscale {
		return MinDownscale
	}
	if f > MaxDownscale {
		return MaxDownscale
	}
	return f
}

// Engine calcula o score de qualidade de arquivos de imagem.
// O zero value usa os limites default; os campos existem para os testes
// apertarem os limites sem gerar arquivos gigantes.
type Engine struct {
	MaxFileBytes int64
	Cutoff       time.Duration
}

func NewEngine() *Engine {
	return &Engine{MaxFileBytes: DefaultMaxFileBytes, Cutoff: DefaultCutoff}
}

// Score lê a imagem, reduz se pedido, suaviza e extrai features de
// coocorrência; o score é a média do vetor de features.
func (e *Engine) Score(ctx context.Context, path string, downscale float64) (float64, error) {
	downscale = ClampDownscale(downscale)
	start := time.Now()

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0, ErrFileNotFound
	}
	if info.Size() > e.maxFileBytes() {
		return 0, ErrFileTooLarge
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	gray := toGray(src)
	if downscale < MaxDownscale {
		gray = downscaleGray(gray, downscale)
	}

	// checagens antes da fase pesada: cliente desistiu ou orçamento de
	// parede estourou (decodes gigantes já podem ter comido o budget)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if cut := e.cutoff(); cut > 0 && time.Since(start) > cut {
		return 0, ErrCutoff
	}

	smoothed := gaussianBlur(gray, blurSigma)
	return mean(textureFeatures(smoothed)), nil
}

func (e *Engine) maxFileBytes() int64 {
	if e.MaxFileBytes > 0 {
		return e.MaxFileBytes
	}
	return DefaultMaxFileBytes
}

func (e *Engine) cutoff() time.Duration {
	if e.Cutoff > 0 {
		return e.Cutoff
	}
	return DefaultCutoff
}

func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func downscaleGray(src *image.Gray, factor float64) *image.Gray {
	b := src.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
