package params

import (
	"encoding/json"
	"fmt"
	"os"
)

type TrainingConfig struct {
	// Train/test split
	TrainSplit     float64 // fraction of cells used for training (1.0 = all)
	TrainSplitSeed uint64

	// Model definition
	HiddenDim           int    // width of both hidden layers of the shared MLPs
	ZDim                int    // latent width per gene
	ADim                int    // adjacency channels
	Activation          string // tanh | relu | sigmoid | gelu | leakyrelu
	TrainOnNonZero      bool   // reconstruction loss only on observed (nonzero) entries
	DropoutAugmentation float64
	DropoutType         string // all | belowmean | belowhalfmean
	Normalization       string // zscore | none
	GaussianNoise       float64 // std of input noise during training, 0 disables
	LogVarClamp         float64 // |logvar| bound before exp, <=0 disables
	MaxCondition        float64 // largest accepted condition number of I-A

	// Loss
	Alpha                float64 // sparsity weight on |A|
	Beta                 float64 // KL weight
	HScale               float64 // acyclicity weight, 0 disables
	DelayedStepsOnSparse int     // epochs before the sparsity term switches on

	// Training
	NumberOfOpt  int // 1 = joint updates, 2 = alternate network/adjacency epochs
	K1, K2       int // epochs of network updates, then adjacency updates
	BatchSize    int
	NEpochs      int
	EvalOnNSteps int // evaluate against ground truth every N epochs
	EarlyStopping int // evaluations without AUPRC improvement before stopping, 0 disables
	LRNN         float64
	LRAdj        float64
	Optimizer    string // rmsprop | adam
	AdamBeta1    float64
	AdamBeta2    float64
	AdamEps      float64
	RMSAlpha     float64
	WeightDecay  float64
	GradClip     float64 // <=0 disables
	Workers      int     // goroutines sharing one batch
	Seed         uint64

	// Logging
	Debug      bool
	DebugEvery int // print every N optimizer steps
}

// Defaults follow the benchmark configuration used for the BEELINE runs.
var Config = TrainingConfig{
	TrainSplit:     1.0,
	TrainSplitSeed: 0,

	HiddenDim:           128,
	ZDim:                1,
	ADim:                1,
	Activation:          "tanh",
	TrainOnNonZero:      true,
	DropoutAugmentation: 0.1,
	DropoutType:         "all",
	Normalization:       "zscore",
	GaussianNoise:       0,
	LogVarClamp:         30,
	MaxCondition:        1e16,

	Alpha:                100,
	Beta:                 1,
	HScale:               0,
	DelayedStepsOnSparse: 30,

	NumberOfOpt:   2,
	K1:            1,
	K2:            1,
	BatchSize:     64,
	NEpochs:       120,
	EvalOnNSteps:  10,
	EarlyStopping: 0,
	LRNN:          1e-4,
	LRAdj:         2e-5,
	Optimizer:     "rmsprop",
	AdamBeta1:     0.9,
	AdamBeta2:     0.999,
	AdamEps:       1e-8,
	RMSAlpha:      0.99,
	WeightDecay:   0,
	GradClip:      0,
	Workers:       1,
	Seed:          1,

	Debug:      false,
	DebugEvery: 100,
}

// LoadConfigJSON overlays the fields present in a JSON file on top of Config.
func LoadConfigJSON(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cfg := Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	Config = cfg
	return nil
}
