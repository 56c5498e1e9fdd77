package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/manningwu07/SIGRN/IO"
	"github.com/manningwu07/SIGRN/evaluate"
	"github.com/manningwu07/SIGRN/optimizations"
	"github.com/manningwu07/SIGRN/params"
	"github.com/manningwu07/SIGRN/sigrn"
	"github.com/manningwu07/SIGRN/utils"
	"gonum.org/v1/gonum/mat"
)

// logFields is the header of the per-epoch training log.
var logFields = []string{"epoch", "loss_rec", "loss_kl", "loss_sparse", "loss_acyclic", "test_loss_rec", "auroc", "auprc", "auprc_ratio", "epr"}

// Trainer owns one model and everything needed to fit it to a dataset.
type Trainer struct {
	Cfg   params.TrainingConfig
	Model *sigrn.Model
	Train *IO.Dataset
	Test  *IO.Dataset // nil without a held-out split
	Truth []IO.Edge   // nil skips evaluation
	Stats sigrn.Stats
	Opts  sigrn.ForwardOptions
	Log   *IO.MetricLog // optional

	sparse  optimizations.Penalty
	acyclic optimizations.Penalty
	optNN   *optimizations.Optimizer
	optAdj  *optimizations.Optimizer
	rng     *rand.Rand
	srcs    []rand.Source
}

// Report summarizes one training run.
type Report struct {
	Epochs        int
	LossRec       float64 // last epoch
	LossKL        float64
	Best          *evaluate.Result // nil without ground truth
	BestEpoch     int
	Adjacency     *mat.Dense // effective adjacency after the last epoch
	BestAdjacency *mat.Dense // effective adjacency at the best evaluation
}

// NewTrainer builds the model from cfg. The global statistics come from
// the whole dataset, the optimizer only ever sees the training split.
func NewTrainer(cfg params.TrainingConfig, ds *IO.Dataset, truth []IO.Edge) (*Trainer, error) {
	act, err := sigrn.ParseActivation(cfg.Activation)
	if err != nil {
		return nil, err
	}
	dropType, err := sigrn.ParseDropoutType(cfg.DropoutType)
	if err != nil {
		return nil, err
	}
	norm, err := sigrn.ParseNormalization(cfg.Normalization)
	if err != nil {
		return nil, err
	}
	kind, err := optimizations.ParseKind(cfg.Optimizer)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, sigrn.ErrInvalidConfig)
	}
	if cfg.BatchSize < 1 || cfg.NEpochs < 0 || cfg.K1 < 0 || cfg.K2 < 0 {
		return nil, fmt.Errorf("batch %d, epochs %d, K1 %d, K2 %d: %w", cfg.BatchSize, cfg.NEpochs, cfg.K1, cfg.K2, sigrn.ErrInvalidConfig)
	}
	if cfg.NumberOfOpt == 2 && cfg.K1+cfg.K2 == 0 {
		return nil, fmt.Errorf("alternating updates need K1+K2 > 0: %w", sigrn.ErrInvalidConfig)
	}

	_, genes := ds.X.Dims()
	mean, std := ds.Stats()
	train, test := ds.Split(cfg.TrainSplit, cfg.TrainSplitSeed)

	mc := sigrn.DefaultConfig(genes)
	mc.Hidden = cfg.HiddenDim
	mc.ZDim = cfg.ZDim
	mc.AChannels = cfg.ADim
	mc.Activation = act
	mc.TrainOnNonZero = cfg.TrainOnNonZero
	mc.DropoutP = cfg.DropoutAugmentation
	mc.DropoutType = dropType
	mc.LogVarClamp = cfg.LogVarClamp
	mc.MaxCondition = cfg.MaxCondition
	mc.Source = rand.NewPCG(cfg.Seed, 1)
	model, err := sigrn.New(mc)
	if err != nil {
		return nil, err
	}

	workers := max(cfg.Workers, 1)
	srcs := make([]rand.Source, workers)
	for i := range srcs {
		srcs[i] = rand.NewPCG(cfg.Seed, uint64(i)+2)
	}

	hyper := optimizations.Hyper{
		Beta1:       cfg.AdamBeta1,
		Beta2:       cfg.AdamBeta2,
		Alpha:       cfg.RMSAlpha,
		Eps:         cfg.AdamEps,
		WeightDecay: cfg.WeightDecay,
	}
	t := &Trainer{
		Cfg:   cfg,
		Model: model,
		Train: train,
		Test:  test,
		Truth: truth,
		Stats: sigrn.Stats{Mean: mean, Std: std},
		Opts: sigrn.ForwardOptions{
			Normalization:       norm,
			GaussianNoise:       cfg.GaussianNoise,
			DropoutAugmentation: cfg.DropoutAugmentation > 0,
		},
		sparse: optimizations.L1Penalty{Alpha: cfg.Alpha},
		optNN:  optimizations.New(kind, hyper),
		optAdj: optimizations.New(kind, hyper),
		rng:    rand.New(rand.NewPCG(cfg.Seed, 0)),
		srcs:   srcs,
	}
	if cfg.HScale > 0 {
		t.acyclic = optimizations.AcyclicityPenalty{Scale: cfg.HScale}
	}
	return t, nil
}

// phase reports which parameter groups epoch e updates.
func phase(cfg params.TrainingConfig, e int) (nn, adj bool) {
	if cfg.NumberOfOpt != 2 {
		return true, true
	}
	nn = e%(cfg.K1+cfg.K2) < cfg.K1
	return nn, !nn
}

type epochStats struct {
	rec, kl, sparse, acyclic float64
	batches                  int
}

// Fit runs the full schedule. It stops early on context cancellation, on
// EarlyStopping evaluations without an AUPRC gain, or on a singular I-A.
func (t *Trainer) Fit(ctx context.Context) (*Report, error) {
	cfg := t.Cfg
	rep := &Report{}
	noImprovement := 0
	step := 0

	for e := 0; e < cfg.NEpochs; e++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		start := time.Now()
		updateNN, updateAdj := phase(cfg, e)

		var es epochStats
		cells, _ := t.Train.X.Dims()
		perm := t.rng.Perm(cells)
		for b := 0; b < cells; b += cfg.BatchSize {
			x := t.Train.Rows(perm[b:min(b+cfg.BatchSize, cells)])
			if err := t.step(x, e, updateNN, updateAdj, &es); err != nil {
				return rep, fmt.Errorf("epoch %d: %w", e+1, err)
			}
			step++
			if cfg.DebugEvery > 0 && step%cfg.DebugEvery == 0 {
				utils.Debugf("step %d: |A| mean=%.6g encoder.l1 norm=%.6g", step,
					utils.MeanAbs(t.Model.EffectiveAdjacency()), utils.MatrixNorm(t.Model.Encoder.L1Weights))
			}
		}

		n := float64(max(es.batches, 1))
		rep.Epochs = e + 1
		rep.LossRec, rep.LossKL = es.rec/n, es.kl/n
		row := map[string]float64{
			"epoch":        float64(e + 1),
			"loss_rec":     rep.LossRec,
			"loss_kl":      rep.LossKL,
			"loss_sparse":  es.sparse / n,
			"loss_acyclic": es.acyclic / n,
		}
		fmt.Printf("Epoch %d - Rec: %.4f, KL: %.4f, Sparse: %.4f, Time: %s\n",
			e+1, rep.LossRec, rep.LossKL, es.sparse/n, time.Since(start))

		if t.Test != nil {
			testRec, err := t.testLoss()
			if err != nil {
				return rep, fmt.Errorf("epoch %d: %w", e+1, err)
			}
			row["test_loss_rec"] = testRec
		}

		last := e == cfg.NEpochs-1
		if t.Truth != nil && (last || (cfg.EvalOnNSteps > 0 && (e+1)%cfg.EvalOnNSteps == 0)) {
			adj := t.Model.EffectiveAdjacency()
			res, err := evaluate.Metrics(adj, t.Train.Genes, t.Truth)
			if err != nil {
				return rep, err
			}
			row["auroc"], row["auprc"], row["auprc_ratio"], row["epr"] = res.AUROC, res.AUPRC, res.AUPRCRatio, res.EPR
			fmt.Printf("Eval %d - AUROC: %.4f, AUPRC: %.4f (ratio %.3f), EPR: %.3f\n",
				e+1, res.AUROC, res.AUPRC, res.AUPRCRatio, res.EPR)

			if rep.Best == nil || res.AUPRC > rep.Best.AUPRC {
				rep.Best = &res
				rep.BestEpoch = e + 1
				rep.BestAdjacency = adj
				noImprovement = 0
			} else {
				noImprovement++
			}
		}

		if t.Log != nil {
			if err := t.Log.Log(row); err != nil {
				return rep, err
			}
		}
		if cfg.EarlyStopping > 0 && noImprovement >= cfg.EarlyStopping {
			fmt.Println("\nStopping training early due to lack of improvement in AUPRC.")
			break
		}
	}

	rep.Adjacency = t.Model.EffectiveAdjacency()
	if rep.BestAdjacency == nil {
		rep.BestAdjacency = rep.Adjacency
	}
	return rep, nil
}

// step computes one batch gradient and applies it to the active groups.
func (t *Trainer) step(x *mat.Dense, epoch int, updateNN, updateAdj bool, es *epochStats) error {
	cfg := t.Cfg
	grads, loss, err := t.Model.ShardedGradients(x, t.Stats, t.Opts, sigrn.LossWeights{Rec: 1, KL: cfg.Beta}, t.srcs)
	if err != nil {
		return err
	}
	es.rec += loss.Rec
	es.kl += loss.KL
	es.batches++

	raw := t.Model.Adj.Raw()
	if updateAdj {
		if epoch >= cfg.DelayedStepsOnSparse {
			es.sparse += t.sparse.Value(raw)
			t.sparse.AddGrad(raw, grads.Adj)
		}
		if t.acyclic != nil {
			es.acyclic += t.acyclic.Value(raw)
			t.acyclic.AddGrad(raw, grads.Adj)
		}
	}

	list := grads.List()
	ps := t.Model.Params()
	var active []*mat.Dense
	for i, p := range ps {
		if (p.Group == sigrn.NetworkParams && updateNN) || (p.Group == sigrn.AdjacencyParams && updateAdj) {
			active = append(active, list[i])
		}
	}
	if s := utils.ClipGrads(cfg.GradClip, active...); s < 1 {
		utils.Debugf("clipped gradients by %.4g", s)
	}

	for i, p := range ps {
		switch {
		case p.Group == sigrn.NetworkParams && updateNN:
			t.optNN.Step(p.Name, p.Value, list[i], cfg.LRNN)
		case p.Group == sigrn.AdjacencyParams && updateAdj:
			t.optAdj.Step(p.Name, p.Value, list[i], cfg.LRAdj)
		}
	}
	return nil
}

// testLoss is the reconstruction loss on the held-out cells without
// augmentation or input noise.
func (t *Trainer) testLoss() (float64, error) {
	opts := sigrn.ForwardOptions{Normalization: t.Opts.Normalization}
	out, err := t.Model.Forward(t.Test.X, t.Stats, opts)
	if err != nil {
		return 0, err
	}
	return out.LossRec, nil
}

// IsSingular reports whether err came from a non-invertible I-A.
func IsSingular(err error) bool {
	return errors.Is(err, sigrn.ErrSingularTransform)
}
