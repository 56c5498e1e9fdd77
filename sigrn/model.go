package sigrn

import (
	"fmt"
	"math/rand/v2"

	"github.com/manningwu07/SIGRN/utils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

type Config struct {
	Genes          int
	Hidden         int // width of both hidden layers in encoder and decoder
	ZDim           int
	AChannels      int
	Activation     Activation
	TrainOnNonZero bool // reconstruction loss only where the raw input is nonzero
	DropoutP       float64
	DropoutType    DropoutType
	PretrainedA    []*mat.Dense // optional, copied
	LogVarClamp    float64      // <= 0 disables
	MaxCondition   float64      // <= 0 uses mat.ConditionTolerance
	Source         rand.Source  // nil seeds from the runtime
}

// DefaultConfig mirrors the benchmark settings.
func DefaultConfig(genes int) Config {
	return Config{
		Genes:       genes,
		Hidden:      128,
		ZDim:        1,
		AChannels:   1,
		Activation:  Tanh,
		DropoutP:    0.1,
		DropoutType: DropoutAll,
		LogVarClamp: 30,
	}
}

// Model owns every trainable tensor. Optimizers reach them through Params.
type Model struct {
	Genes, Hidden, ZDim int
	TrainOnNonZero      bool
	MaxCondition        float64

	Adj     *Adjacency
	Encoder *MLP // 1 -> 2*ZDim per gene
	Decoder *MLP // ZDim -> 1 per gene

	Augmenter *Augmenter
	Sampler   LatentSampler

	src rand.Source
}

func New(cfg Config) (*Model, error) {
	if cfg.Genes < 2 {
		return nil, fmt.Errorf("genes = %d, need at least 2: %w", cfg.Genes, ErrInvalidConfig)
	}
	if cfg.Hidden < 1 || cfg.ZDim < 1 {
		return nil, fmt.Errorf("hidden = %d, zdim = %d: %w", cfg.Hidden, cfg.ZDim, ErrInvalidConfig)
	}
	if !cfg.Activation.valid() {
		return nil, fmt.Errorf("activation %d: %w", int(cfg.Activation), ErrInvalidConfig)
	}
	src := cfg.Source
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	var adj *Adjacency
	var err error
	if cfg.PretrainedA != nil {
		adj, err = NewAdjacencyFrom(cfg.PretrainedA)
		if err == nil && adj.Genes != cfg.Genes {
			err = fmt.Errorf("pretrained adjacency has %d genes, model has %d: %w", adj.Genes, cfg.Genes, ErrShapeMismatch)
		}
	} else {
		adj, err = NewAdjacency(cfg.Genes, cfg.AChannels, src)
	}
	if err != nil {
		return nil, err
	}

	aug, err := NewAugmenter(cfg.DropoutType, cfg.DropoutP, src)
	if err != nil {
		return nil, err
	}

	return &Model{
		Genes:          cfg.Genes,
		Hidden:         cfg.Hidden,
		ZDim:           cfg.ZDim,
		TrainOnNonZero: cfg.TrainOnNonZero,
		MaxCondition:   cfg.MaxCondition,
		Adj:            adj,
		Encoder:        NewMLP(1, cfg.Hidden, 2*cfg.ZDim, cfg.Activation, src),
		Decoder:        NewMLP(cfg.ZDim, cfg.Hidden, 1, cfg.Activation, src),
		Augmenter:      aug,
		Sampler:        LatentSampler{Noise: StandardNormal(src), LogVarClamp: cfg.LogVarClamp},
		src:            src,
	}, nil
}

// Stats are dataset-wide per-gene statistics supplied by the data loader.
type Stats struct {
	Mean, Std []float64
}

type ForwardOptions struct {
	Normalization       Normalization
	GaussianNoise       float64 // std of additive input noise, 0 disables
	DropoutAugmentation bool
}

// Output carries the losses and every intermediate of one forward pass.
type Output struct {
	LossRec, LossKL float64

	ZPosterior *Tensor3   // [sample, gene, 2*zdim] after I-A
	ZMu        *Tensor3
	ZLogVar    *Tensor3   // unclamped
	Z          *Tensor3
	ZInv       *Tensor3   // z after (I-A)^-1
	XRec       *mat.Dense
	NormX      *mat.Dense
	Noise      *mat.Dense // values removed by augmentation
	DAMask     *Mask
	EvalMask   *Mask
	IA         []*mat.Dense
	IAInv      []*mat.Dense

	// backward state
	enc, dec     *mlpTrace
	encOut       *Tensor3 // encoder output before I-A
	eps          *Tensor3
	logVarUsed   *Tensor3
	mSum, invSum *mat.Dense
}

// EvalCount is the reconstruction-loss denominator.
func (o *Output) EvalCount() int { return o.EvalMask.Count() }

// KLCount is the KL-loss denominator.
func (o *Output) KLCount() int { return o.ZMu.Samples * o.ZMu.Genes * o.ZMu.Features }

// Forward runs augment -> normalize -> encode -> (I-A) -> sample ->
// (I-A)^-1 -> decode and computes both losses. x is [samples x genes] and is
// not modified.
func (m *Model) Forward(x mat.Matrix, stats Stats, opts ForwardOptions) (*Output, error) {
	S, G := x.Dims()
	if S == 0 || G != m.Genes {
		return nil, fmt.Errorf("input is %dx%d, model expects [samples x %d]: %w", S, G, m.Genes, ErrShapeMismatch)
	}
	needMean := opts.DropoutAugmentation || opts.Normalization == NormZScore
	if needMean && len(stats.Mean) != G {
		return nil, fmt.Errorf("global mean has %d entries, want %d: %w", len(stats.Mean), G, ErrShapeMismatch)
	}
	if opts.Normalization == NormZScore && len(stats.Std) != G {
		return nil, fmt.Errorf("global std has %d entries, want %d: %w", len(stats.Std), G, ErrShapeMismatch)
	}

	var evalMask *Mask
	if m.TrainOnNonZero {
		evalMask = NonZeroMask(x)
	} else {
		evalMask = FullMask(S, G)
	}

	var aug *Augmentation
	if opts.DropoutAugmentation {
		var err error
		aug, err = m.Augmenter.Augment(x, stats.Mean, m.Augmenter.P)
		if err != nil {
			return nil, err
		}
	} else {
		aug = &Augmentation{X: mat.DenseCopyOf(x), Noise: mat.NewDense(S, G, nil), Mask: NewMask(S, G)}
	}

	xin := aug.X
	if opts.GaussianNoise > 0 {
		xin = addGaussian(xin, opts.GaussianNoise, m.src)
	}
	normX, err := Normalize(xin, stats, opts.Normalization)
	if err != nil {
		return nil, err
	}

	ia := IMinusA(m.Adj)
	iaInv, err := InvertStructural(ia, m.MaxCondition)
	if err != nil {
		return nil, err
	}
	mSum := sumChannels(ia)
	invSum := sumChannels(iaInv)

	// Encoder
	encData, encTr := m.Encoder.Forward(fromMatrix(normX).Data)
	encOut := wrapTensor3(S, G, encData)
	post := applySummed(encOut, mSum)

	zMu := post.FeatureRange(0, m.ZDim)
	zLogVar := post.FeatureRange(m.ZDim, 2*m.ZDim)
	lvUsed := m.Sampler.clamp(zLogVar)
	z, eps := m.Sampler.Sample(zMu, zLogVar)

	// Decoder
	zInv := applySummed(z, invSum)
	decData, decTr := m.Decoder.Forward(zInv.Data)
	xRec := wrapTensor3(S, G, decData).Matrix()

	return &Output{
		LossRec:    ReconstructionLoss(normX, xRec, evalMask),
		LossKL:     KLDivergence(zMu, lvUsed),
		ZPosterior: post,
		ZMu:        zMu,
		ZLogVar:    zLogVar,
		Z:          z,
		ZInv:       zInv,
		XRec:       xRec,
		NormX:      normX,
		Noise:      aug.Noise,
		DAMask:     aug.Mask,
		EvalMask:   evalMask,
		IA:         ia,
		IAInv:      iaInv,
		enc:        encTr,
		dec:        decTr,
		encOut:     encOut,
		eps:        eps,
		logVarUsed: lvUsed,
		mSum:       mSum,
		invSum:     invSum,
	}, nil
}

// EffectiveAdjacency is a detached (Genes x Genes) copy of the channel-mean
// adjacency with a zero diagonal, for evaluation and export.
func (m *Model) EffectiveAdjacency() *mat.Dense {
	return m.Adj.Effective()
}

// Normalize scales x per gene. For z-score, NaN and Inf produced by a zero
// std are replaced by 0 in the returned matrix; x is never modified.
func Normalize(x mat.Matrix, stats Stats, mode Normalization) (*mat.Dense, error) {
	switch mode {
	case NormNone:
		return mat.DenseCopyOf(x), nil
	case NormZScore:
		r, c := x.Dims()
		if len(stats.Mean) != c || len(stats.Std) != c {
			return nil, fmt.Errorf("normalize: stats for %d/%d genes, input has %d: %w", len(stats.Mean), len(stats.Std), c, ErrShapeMismatch)
		}
		out := mat.NewDense(r, c, nil)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, j, (x.At(i, j)-stats.Mean[j])/stats.Std[j])
			}
		}
		return utils.SanitizeNonFinite(out), nil
	}
	return nil, fmt.Errorf("normalization %d: %w", int(mode), ErrInvalidConfig)
}

func addGaussian(x *mat.Dense, std float64, src rand.Source) *mat.Dense {
	dist := distuv.Normal{Mu: 0, Sigma: std, Src: src}
	out := mat.DenseCopyOf(x)
	out.Apply(func(_, _ int, v float64) float64 { return v + dist.Rand() }, out)
	return out
}
