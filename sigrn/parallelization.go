package sigrn

import (
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// CloneForGrads creates a shallow clone of the model where every parameter
// is shared (read-only) but the random source is private, so clones can run
// Forward/Backward concurrently on disjoint shards of a batch. Nothing may
// update the parameters while clones are in flight.
func (m *Model) CloneForGrads(src rand.Source) *Model {
	out := *m
	out.src = src
	out.Augmenter = m.Augmenter.withSource(src)
	if _, deterministic := m.Sampler.Noise.(zeroNoise); !deterministic && m.Sampler.Noise != nil {
		out.Sampler.Noise = StandardNormal(src)
	}
	return &out
}

// SetSource replaces the random source behind augmentation, gaussian input
// noise and latent sampling. Deterministic sampling (ZeroNoise) is kept.
func (m *Model) SetSource(src rand.Source) {
	*m = *m.CloneForGrads(src)
}

// BatchLoss holds the batch-level losses recombined from every shard.
type BatchLoss struct {
	Rec, KL float64
}

// ShardedGradients splits the rows of x into len(srcs) shards, runs each
// shard on its own clone concurrently, and combines the shard gradients so
// the result equals the gradient of w.Rec*LossRec + w.KL*LossKL over the
// whole batch. Shards are weighted by their share of each loss denominator.
func (m *Model) ShardedGradients(x mat.Matrix, stats Stats, opts ForwardOptions, w LossWeights, srcs []rand.Source) (*Gradients, BatchLoss, error) {
	rows, cols := x.Dims()
	workers := len(srcs)
	if workers < 1 {
		workers = 1
		srcs = []rand.Source{m.src}
	}
	if workers > rows {
		workers = rows
	}

	type shard struct {
		model *Model
		out   *Output
		grads *Gradients
		err   error
	}
	shards := make([]shard, workers)
	per := (rows + workers - 1) / workers

	var wg sync.WaitGroup
	for i := range shards {
		lo, hi := i*per, min((i+1)*per, rows)
		if lo >= hi {
			continue
		}
		shards[i].model = m.CloneForGrads(srcs[i])
		wg.Add(1)
		go func(sh *shard, part mat.Matrix) {
			defer wg.Done()
			sh.out, sh.err = sh.model.Forward(part, stats, opts)
		}(&shards[i], sliceRows(x, lo, hi, cols))
	}
	wg.Wait()

	var evalTotal, klTotal float64
	for _, sh := range shards {
		if sh.err != nil {
			return nil, BatchLoss{}, sh.err
		}
		if sh.out == nil {
			continue
		}
		evalTotal += float64(sh.out.EvalCount())
		klTotal += float64(sh.out.KLCount())
	}

	var loss BatchLoss
	for i := range shards {
		sh := &shards[i]
		if sh.out == nil {
			continue
		}
		sw := LossWeights{KL: w.KL * float64(sh.out.KLCount()) / klTotal}
		loss.KL += sh.out.LossKL * float64(sh.out.KLCount()) / klTotal
		if evalTotal > 0 {
			share := float64(sh.out.EvalCount()) / evalTotal
			sw.Rec = w.Rec * share
			loss.Rec += sh.out.LossRec * share
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sh.grads = sh.model.Backward(sh.out, sw)
		}()
	}
	wg.Wait()

	total := m.ZeroGradients()
	for _, sh := range shards {
		if sh.grads != nil {
			total.AddScaled(1, sh.grads)
		}
	}
	return total, loss, nil
}

func sliceRows(x mat.Matrix, lo, hi, cols int) mat.Matrix {
	if d, ok := x.(*mat.Dense); ok {
		return d.Slice(lo, hi, 0, cols)
	}
	return mat.DenseCopyOf(x).Slice(lo, hi, 0, cols)
}
