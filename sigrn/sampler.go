package sigrn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseSource yields one standard-normal draw per call. distuv.Normal
// satisfies it.
type NoiseSource interface {
	Rand() float64
}

type zeroNoise struct{}

func (zeroNoise) Rand() float64 { return 0 }

// ZeroNoise turns sampling into the identity z = mu.
var ZeroNoise NoiseSource = zeroNoise{}

// StandardNormal returns N(0,1) draws from src.
func StandardNormal(src rand.Source) NoiseSource {
	return distuv.Normal{Mu: 0, Sigma: 1, Src: src}
}

// LatentSampler draws z = mu + exp(0.5*logvar) * eps.
type LatentSampler struct {
	Noise NoiseSource
	// LogVarClamp bounds |logvar| before exponentiation. <= 0 disables.
	LogVarClamp float64
}

// Sample returns z and the eps it used. eps is drawn fresh on every call.
func (s LatentSampler) Sample(mu, logvar *Tensor3) (z, eps *Tensor3) {
	noise := s.Noise
	if noise == nil {
		noise = ZeroNoise
	}
	lv := s.clamp(logvar)
	eps = NewTensor3(mu.Samples, mu.Genes, mu.Features)
	eps.Data.Apply(func(_, _ int, _ float64) float64 { return noise.Rand() }, eps.Data)

	z = NewTensor3(mu.Samples, mu.Genes, mu.Features)
	z.Data.Apply(func(i, j int, e float64) float64 {
		return mu.Data.At(i, j) + math.Exp(0.5*lv.Data.At(i, j))*e
	}, eps.Data)
	return z, eps
}

// clamp returns logvar limited to [-LogVarClamp, LogVarClamp].
func (s LatentSampler) clamp(logvar *Tensor3) *Tensor3 {
	if s.LogVarClamp <= 0 {
		return logvar
	}
	lim := s.LogVarClamp
	out := wrapTensor3(logvar.Samples, logvar.Genes, mat.DenseCopyOf(logvar.Data))
	out.Data.Apply(func(_, _ int, v float64) float64 {
		return math.Max(-lim, math.Min(lim, v))
	}, out.Data)
	return out
}

// clamped reports whether v sits outside the clamp range, where the
// gradient with respect to logvar is zero.
func (s LatentSampler) clamped(v float64) bool {
	return s.LogVarClamp > 0 && (v > s.LogVarClamp || v < -s.LogVarClamp)
}
