package sigrn

import (
	"fmt"
	"strings"

	"github.com/manningwu07/SIGRN/utils"
	"gonum.org/v1/gonum/mat"
)

// Activation selects the nonlinearity of the shared MLPs.
type Activation int

const (
	Tanh Activation = iota
	ReLU
	Sigmoid
	GELU
	LeakyReLU
)

func (a Activation) String() string {
	switch a {
	case Tanh:
		return "tanh"
	case ReLU:
		return "relu"
	case Sigmoid:
		return "sigmoid"
	case GELU:
		return "gelu"
	case LeakyReLU:
		return "leakyrelu"
	}
	return fmt.Sprintf("Activation(%d)", int(a))
}

func ParseActivation(s string) (Activation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tanh", "":
		return Tanh, nil
	case "relu":
		return ReLU, nil
	case "sigmoid":
		return Sigmoid, nil
	case "gelu":
		return GELU, nil
	case "leakyrelu", "leaky_relu":
		return LeakyReLU, nil
	}
	return 0, fmt.Errorf("activation %q: %w", s, ErrInvalidConfig)
}

func (a Activation) valid() bool { return a >= Tanh && a <= LeakyReLU }

func (a Activation) apply(i, j int, v float64) float64 {
	switch a {
	case ReLU:
		return utils.ReluApply(i, j, v)
	case Sigmoid:
		return utils.SigmoidApply(i, j, v)
	case GELU:
		return utils.GeluApply(i, j, v)
	case LeakyReLU:
		return utils.LeakyReluApply(i, j, v)
	default:
		return utils.TanhApply(i, j, v)
	}
}

func (a Activation) prime(pre mat.Matrix) *mat.Dense {
	switch a {
	case ReLU:
		return utils.ReluPrime(pre)
	case Sigmoid:
		return utils.SigmoidPrime(pre)
	case GELU:
		return utils.GeluPrime(pre)
	case LeakyReLU:
		return utils.LeakyReluPrime(pre)
	default:
		return utils.TanhPrime(pre)
	}
}

// Normalization selects how raw expression is scaled before encoding.
type Normalization int

const (
	NormNone Normalization = iota
	NormZScore
)

func (n Normalization) String() string {
	switch n {
	case NormNone:
		return "none"
	case NormZScore:
		return "zscore"
	}
	return fmt.Sprintf("Normalization(%d)", int(n))
}

func ParseNormalization(s string) (Normalization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return NormNone, nil
	case "zscore", "z-score":
		return NormZScore, nil
	}
	return 0, fmt.Errorf("normalization %q: %w", s, ErrInvalidConfig)
}

// DropoutType restricts which entries dropout augmentation may zero.
type DropoutType int

const (
	DropoutAll           DropoutType = iota // every entry is eligible
	DropoutBelowMean                        // only entries below the gene mean
	DropoutBelowHalfMean                    // only entries below half the gene mean
)

func (d DropoutType) String() string {
	switch d {
	case DropoutAll:
		return "all"
	case DropoutBelowMean:
		return "belowmean"
	case DropoutBelowHalfMean:
		return "belowhalfmean"
	}
	return fmt.Sprintf("DropoutType(%d)", int(d))
}

func ParseDropoutType(s string) (DropoutType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "":
		return DropoutAll, nil
	case "belowmean":
		return DropoutBelowMean, nil
	case "belowhalfmean":
		return DropoutBelowHalfMean, nil
	}
	return 0, fmt.Errorf("dropout type %q: %w", s, ErrInvalidConfig)
}

func (d DropoutType) valid() bool { return d >= DropoutAll && d <= DropoutBelowHalfMean }
