package main

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/manningwu07/SIGRN/IO"
	"github.com/manningwu07/SIGRN/params"
	"github.com/manningwu07/SIGRN/sigrn"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// chainDataset simulates G0 -> G1 -> G2 -> G3 with a few dropouts.
func chainDataset(cells int) *IO.Dataset {
	rng := rand.New(rand.NewPCG(42, 42))
	x := mat.NewDense(cells, 4, nil)
	for c := 0; c < cells; c++ {
		v := 1 + rng.Float64()*2
		for g := 0; g < 4; g++ {
			if rng.Float64() < 0.1 {
				x.Set(c, g, 0)
			} else {
				x.Set(c, g, v)
			}
			v = 0.8*v + 0.3*rng.Float64()
		}
	}
	return &IO.Dataset{X: x, Genes: []string{"G0", "G1", "G2", "G3"}}
}

var chainTruth = []IO.Edge{{From: "G0", To: "G1"}, {From: "G1", To: "G2"}, {From: "G2", To: "G3"}}

func testConfig() params.TrainingConfig {
	cfg := params.Config
	cfg.HiddenDim = 8
	cfg.NEpochs = 4
	cfg.BatchSize = 8
	cfg.EvalOnNSteps = 2
	cfg.Workers = 2
	cfg.DelayedStepsOnSparse = 1
	cfg.HScale = 0.5
	cfg.GaussianNoise = 0.01
	cfg.Seed = 3
	cfg.LRAdj = 1e-4
	cfg.LRNN = 1e-3
	return cfg
}

// wellConditioned swaps the near-uniform start for a small random adjacency
// so a few optimizer steps cannot drive I-A towards singular.
func wellConditioned(t *testing.T, tr *Trainer) {
	t.Helper()
	rng := rand.New(rand.NewPCG(8, 8))
	data := make([]float64, 16)
	for i := range data {
		data[i] = 0.1 * rng.Float64()
	}
	adj, err := sigrn.NewAdjacencyFrom([]*mat.Dense{mat.NewDense(4, 4, data)})
	require.NoError(t, err)
	tr.Model.Adj = adj
}

func TestPhaseSchedule(t *testing.T) {
	cfg := params.Config
	cfg.NumberOfOpt, cfg.K1, cfg.K2 = 2, 2, 1

	var got []string
	for e := 0; e < 6; e++ {
		nn, adj := phase(cfg, e)
		require.NotEqual(t, nn, adj)
		if nn {
			got = append(got, "nn")
		} else {
			got = append(got, "adj")
		}
	}
	require.Equal(t, []string{"nn", "nn", "adj", "nn", "nn", "adj"}, got)

	cfg.NumberOfOpt = 1
	nn, adj := phase(cfg, 5)
	require.True(t, nn && adj)
}

func TestFitEndToEnd(t *testing.T) {
	cfg := testConfig()
	cfg.TrainSplit = 0.75
	tr, err := NewTrainer(cfg, chainDataset(24), chainTruth)
	require.NoError(t, err)
	wellConditioned(t, tr)

	cells, _ := tr.Train.X.Dims()
	require.Equal(t, 18, cells)
	require.NotNil(t, tr.Test)

	logPath := filepath.Join(t.TempDir(), "log.csv")
	tr.Log, err = IO.NewMetricLog(logPath, logFields...)
	require.NoError(t, err)

	rep, err := tr.Fit(context.Background())
	require.NoError(t, err)
	require.NoError(t, tr.Log.Close())

	require.Equal(t, 4, rep.Epochs)
	require.False(t, math.IsNaN(rep.LossRec))
	require.False(t, math.IsNaN(rep.LossKL))
	require.NotNil(t, rep.Best)
	require.Contains(t, []int{2, 4}, rep.BestEpoch)
	require.Equal(t, 12, rep.Best.Candidates)
	require.Equal(t, 3, rep.Best.Positives)
	for i := 0; i < 4; i++ {
		require.Zero(t, rep.Adjacency.At(i, i))
	}

	raw, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 5)
	require.True(t, strings.HasPrefix(lines[0], "epoch,loss_rec"))
}

func TestFitOnlyUpdatesActiveGroup(t *testing.T) {
	cfg := testConfig()
	cfg.NEpochs = 1
	cfg.NumberOfOpt, cfg.K1, cfg.K2 = 2, 1, 1
	tr, err := NewTrainer(cfg, chainDataset(16), nil)
	require.NoError(t, err)
	wellConditioned(t, tr)

	adjBefore := mat.DenseCopyOf(tr.Model.Adj.Raw()[0])
	encBefore := mat.DenseCopyOf(tr.Model.Encoder.L1Weights)

	rep, err := tr.Fit(context.Background())
	require.NoError(t, err)
	require.Nil(t, rep.Best)
	require.Same(t, rep.Adjacency, rep.BestAdjacency)

	require.True(t, mat.Equal(adjBefore, tr.Model.Adj.Raw()[0]))
	require.False(t, mat.Equal(encBefore, tr.Model.Encoder.L1Weights))
}

func TestFitStopsEarly(t *testing.T) {
	cfg := testConfig()
	cfg.NEpochs = 10
	cfg.EvalOnNSteps = 1
	cfg.EarlyStopping = 2
	cfg.LRNN, cfg.LRAdj = 0, 0
	tr, err := NewTrainer(cfg, chainDataset(16), chainTruth)
	require.NoError(t, err)
	wellConditioned(t, tr)

	rep, err := tr.Fit(context.Background())
	require.NoError(t, err)
	// nothing moves, so the first evaluation stays the best
	require.Equal(t, 3, rep.Epochs)
	require.Equal(t, 1, rep.BestEpoch)
}

func TestFitHonoursCancellation(t *testing.T) {
	tr, err := NewTrainer(testConfig(), chainDataset(16), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := tr.Fit(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, rep.Epochs)
}

func TestFitAbortsOnSingularTransform(t *testing.T) {
	tr, err := NewTrainer(testConfig(), chainDataset(16), nil)
	require.NoError(t, err)

	ones := mat.NewDense(4, 4, []float64{
		0, 0.5, 0.5, 0,
		0.5, 0, 0.5, 0,
		0.5, 0.5, 0, 0,
		0, 0, 0, 0,
	})
	tr.Model.Adj, err = sigrn.NewAdjacencyFrom([]*mat.Dense{ones})
	require.NoError(t, err)

	_, err = tr.Fit(context.Background())
	require.True(t, IsSingular(err), "%v", err)
}

func TestNewTrainerRejectsBadConfig(t *testing.T) {
	cases := map[string]func(*params.TrainingConfig){
		"optimizer":  func(c *params.TrainingConfig) { c.Optimizer = "sgd" },
		"activation": func(c *params.TrainingConfig) { c.Activation = "swish" },
		"dropout":    func(c *params.TrainingConfig) { c.DropoutType = "some" },
		"norm":       func(c *params.TrainingConfig) { c.Normalization = "minmax" },
		"batch":      func(c *params.TrainingConfig) { c.BatchSize = 0 },
		"schedule":   func(c *params.TrainingConfig) { c.K1, c.K2 = 0, 0 },
		"hidden":     func(c *params.TrainingConfig) { c.HiddenDim = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			_, err := NewTrainer(cfg, chainDataset(8), nil)
			require.True(t, errors.Is(err, sigrn.ErrInvalidConfig), "%v", err)
		})
	}
}
