package sigrn

import (
	"fmt"
	"math"

	"github.com/manningwu07/SIGRN/utils"
	"gonum.org/v1/gonum/mat"
)

// LossWeights scales the two loss terms whose gradient Backward returns.
type LossWeights struct {
	Rec, KL float64
}

// Gradients mirrors Params: encoder, decoder, then one matrix per adjacency channel.
type Gradients struct {
	Encoder, Decoder *MLPGrads
	Adj              []*mat.Dense
}

// Backward returns the gradient of w.Rec*LossRec + w.KL*LossKL with respect
// to every parameter, for the forward pass recorded in out. out must come
// from m (or a clone of m) with unchanged parameters.
func (m *Model) Backward(out *Output, w LossWeights) *Gradients {
	S, G, Z := out.ZMu.Samples, out.ZMu.Genes, m.ZDim
	N := S * G

	// d loss_rec / d x_rec, only over the eval mask
	dXRec := mat.NewDense(1, N, nil)
	if cnt := out.EvalCount(); cnt > 0 && w.Rec != 0 {
		scale := 2 * w.Rec / float64(cnt)
		for s := 0; s < S; s++ {
			for g := 0; g < G; g++ {
				if out.EvalMask.At(s, g) {
					dXRec.Set(0, s*G+g, scale*(out.XRec.At(s, g)-out.NormX.At(s, g)))
				}
			}
		}
	}

	// Decoder
	dZInvData, decGrads := m.Decoder.Backward(out.dec, dXRec)
	dZInv := wrapTensor3(S, G, dZInvData)

	// zInv_s = z_s * M^-1  =>  dz_s = dZInv_s * M^-T,  dM^-1 += z_s^T dZInv_s
	dz := NewTensor3(S, G, Z)
	dMinv := mat.NewDense(G, G, nil)
	for s := 0; s < S; s++ {
		dz.Sample(s).Mul(dZInv.Sample(s), out.invSum.T())
		var t mat.Dense
		t.Mul(out.Z.Sample(s).T(), dZInv.Sample(s))
		dMinv.Add(dMinv, &t)
	}

	// Reparameterization and KL
	dQ := NewTensor3(S, G, 2*Z)
	nKL := float64(out.KLCount())
	for i := 0; i < Z; i++ {
		for j := 0; j < N; j++ {
			mu := out.ZMu.Data.At(i, j)
			lv := out.logVarUsed.Data.At(i, j)
			dzij := dz.Data.At(i, j)

			dQ.Data.Set(i, j, dzij+w.KL*mu/nKL)
			if m.Sampler.clamped(out.ZLogVar.Data.At(i, j)) {
				continue
			}
			sigma := math.Exp(0.5 * lv)
			dlv := dzij*out.eps.Data.At(i, j)*0.5*sigma + w.KL*0.5*(math.Exp(lv)-1)/nKL
			dQ.Data.Set(Z+i, j, dlv)
		}
	}

	// post_s = P_s * M  =>  dP_s = dQ_s * M^T,  dM += P_s^T dQ_s
	dP := NewTensor3(S, G, 2*Z)
	dM := mat.NewDense(G, G, nil)
	for s := 0; s < S; s++ {
		dP.Sample(s).Mul(dQ.Sample(s), out.mSum.T())
		var t mat.Dense
		t.Mul(out.encOut.Sample(s).T(), dQ.Sample(s))
		dM.Add(dM, &t)
	}

	// Encoder
	_, encGrads := m.Encoder.Backward(out.enc, dP.Data)

	// M = sum_c (I - A_c), M^-1 = sum_c K_c^-1 with K_c = I - A_c:
	// dA_c = offdiag(-dM + K_c^-T dM^-1 K_c^-T)
	adj := make([]*mat.Dense, len(out.IAInv))
	for c, kinv := range out.IAInv {
		var t, g mat.Dense
		t.Mul(kinv.T(), dMinv)
		g.Mul(&t, kinv.T())
		g.Sub(&g, dM)
		offDiagonal(&g)
		adj[c] = &g
	}

	return &Gradients{Encoder: encGrads, Decoder: decGrads, Adj: adj}
}

// ZeroGradients returns zero-valued gradients shaped like m's parameters.
func (m *Model) ZeroGradients() *Gradients {
	adj := make([]*mat.Dense, m.Adj.Channels)
	for c, a := range m.Adj.Raw() {
		adj[c] = utils.ZerosLike(a)
	}
	return &Gradients{Encoder: zeroMLPGrads(m.Encoder), Decoder: zeroMLPGrads(m.Decoder), Adj: adj}
}

// List returns the gradient matrices in the same order as Model.Params.
func (g *Gradients) List() []*mat.Dense {
	out := append(g.Encoder.list(), g.Decoder.list()...)
	return append(out, g.Adj...)
}

// AddScaled accumulates alpha*o into g.
func (g *Gradients) AddScaled(alpha float64, o *Gradients) {
	dst, src := g.List(), o.List()
	if len(dst) != len(src) {
		panic(fmt.Sprintf("gradients: %d vs %d tensors", len(dst), len(src)))
	}
	for i := range dst {
		dst[i].Add(dst[i], utils.Scale(alpha, src[i]))
	}
}

// ParamGroup separates the two sets the trainer alternates between.
type ParamGroup int

const (
	NetworkParams ParamGroup = iota
	AdjacencyParams
)

// Param is a named, live parameter tensor. The optimizer updates Value in place.
type Param struct {
	Name  string
	Group ParamGroup
	Value *mat.Dense
}

// Params lists every trainable tensor. This is the only sanctioned way for
// a training loop to mutate the model.
func (m *Model) Params() []Param {
	var out []Param
	names := []string{"l1.weight", "l1.bias", "l2.weight", "l2.bias", "l3.weight", "l3.bias"}
	for i, p := range m.Encoder.params() {
		out = append(out, Param{Name: "encoder." + names[i], Group: NetworkParams, Value: p})
	}
	for i, p := range m.Decoder.params() {
		out = append(out, Param{Name: "decoder." + names[i], Group: NetworkParams, Value: p})
	}
	for c, a := range m.Adj.Raw() {
		out = append(out, Param{Name: fmt.Sprintf("adj.%d", c), Group: AdjacencyParams, Value: a})
	}
	return out
}
