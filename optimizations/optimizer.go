package optimizations

import (
	"fmt"
	"strings"

	"github.com/manningwu07/SIGRN/utils"
	"gonum.org/v1/gonum/mat"
)

type Kind int

const (
	RMSprop Kind = iota
	Adam
)

func (k Kind) String() string {
	switch k {
	case RMSprop:
		return "rmsprop"
	case Adam:
		return "adam"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rmsprop", "":
		return RMSprop, nil
	case "adam", "adamw":
		return Adam, nil
	}
	return 0, fmt.Errorf("unknown optimizer %q", s)
}

// Hyper holds the knobs shared by both update rules.
type Hyper struct {
	Beta1, Beta2 float64 // Adam moments
	Alpha        float64 // RMSprop smoothing
	Eps          float64
	WeightDecay  float64
}

// state is the per-tensor optimizer memory.
type state struct {
	m, v *mat.Dense
	t    int
}

// Optimizer keeps moment estimates keyed by parameter name, so a model can
// hand over its tensors by name on every step.
type Optimizer struct {
	Kind  Kind
	Hyper Hyper
	slots map[string]*state
}

func New(kind Kind, h Hyper) *Optimizer {
	return &Optimizer{Kind: kind, Hyper: h, slots: make(map[string]*state)}
}

// Step applies one in-place update of p with gradient g at learning rate lr.
func (o *Optimizer) Step(name string, p, g *mat.Dense, lr float64) {
	s, ok := o.slots[name]
	if !ok {
		s = &state{m: utils.ZerosLike(p), v: utils.ZerosLike(p)}
		o.slots[name] = s
	}
	s.t++
	switch o.Kind {
	case Adam:
		AdamUpdateInPlace(p, g, s.m, s.v, s.t, lr, o.Hyper.Beta1, o.Hyper.Beta2, o.Hyper.Eps, o.Hyper.WeightDecay)
	default:
		RMSpropUpdateInPlace(p, g, s.v, lr, o.Hyper.Alpha, o.Hyper.Eps, o.Hyper.WeightDecay)
	}
}

// Steps returns how many updates name has received.
func (o *Optimizer) Steps(name string) int {
	if s, ok := o.slots[name]; ok {
		return s.t
	}
	return 0
}
