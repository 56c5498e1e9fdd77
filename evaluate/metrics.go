// Package evaluate scores an inferred adjacency against a reference network.
package evaluate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/manningwu07/SIGRN/IO"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoPositives = errors.New("evaluate: no reference edge among the scored genes")
	ErrNoNegatives = errors.New("evaluate: every candidate edge is a reference edge")
)

// Result holds the ranking metrics of one adjacency.
type Result struct {
	AUROC      float64
	AUPRC      float64
	AUPRCRatio float64 // AUPRC over the edge density of a random predictor
	EPR        float64 // precision in the top-k over density, k = reference edges
	Positives  int
	Candidates int
}

// Metrics ranks every ordered gene pair i != j by |adj[i][j]| and scores the
// ranking against truth. Reference edges naming unknown genes, self loops and
// duplicates are ignored.
func Metrics(adj mat.Matrix, genes []string, truth []IO.Edge) (Result, error) {
	ranked, err := IO.RankEdges(genes, adj)
	if err != nil {
		return Result{}, err
	}
	index := make(map[string]int, len(genes))
	for i, g := range genes {
		index[g] = i
	}
	positive := make(map[IO.Edge]bool)
	for _, e := range IO.Restrict(truth, index) {
		positive[e] = true
	}

	scores := make([]float64, len(ranked))
	labels := make([]bool, len(ranked))
	for i, e := range ranked {
		scores[i] = e.Weight
		labels[i] = positive[e.Edge]
	}
	return Score(scores, labels)
}

// Score computes the metrics for arbitrary scores with binary labels.
// Higher scores rank first.
func Score(scores []float64, labels []bool) (Result, error) {
	if len(scores) != len(labels) {
		return Result{}, fmt.Errorf("evaluate: %d scores, %d labels", len(scores), len(labels))
	}
	pos := 0
	for _, l := range labels {
		if l {
			pos++
		}
	}
	if pos == 0 {
		return Result{}, ErrNoPositives
	}
	if pos == len(labels) {
		return Result{}, ErrNoNegatives
	}
	density := float64(pos) / float64(len(labels))

	r := Result{
		AUROC:      AUROC(scores, labels),
		AUPRC:      AveragePrecision(scores, labels),
		EPR:        precisionAtK(scores, labels, pos) / density,
		Positives:  pos,
		Candidates: len(labels),
	}
	r.AUPRCRatio = r.AUPRC / density
	return r, nil
}

// AUROC integrates the ROC curve with the trapezoidal rule. Tied scores
// form a single cutoff.
func AUROC(scores []float64, labels []bool) float64 {
	y := append([]float64(nil), scores...)
	c := append([]bool(nil), labels...)
	stat.SortWeightedLabeled(y, c, nil)
	tpr, fpr, _ := stat.ROC(nil, y, c, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// AveragePrecision is sum_n (R_n - R_{n-1}) P_n over the distinct score
// thresholds, highest first.
func AveragePrecision(scores []float64, labels []bool) float64 {
	order := descending(scores)
	total := 0
	for _, l := range labels {
		if l {
			total++
		}
	}
	if total == 0 {
		return 0
	}
	ap, tp, prevRecall := 0.0, 0, 0.0
	for k := 0; k < len(order); {
		// consume a block of tied scores
		s := scores[order[k]]
		for k < len(order) && scores[order[k]] == s {
			if labels[order[k]] {
				tp++
			}
			k++
		}
		recall := float64(tp) / float64(total)
		ap += (recall - prevRecall) * float64(tp) / float64(k)
		prevRecall = recall
	}
	return ap
}

// precisionAtK is the fraction of reference edges among the k best scores.
// Ties at the cut are broken by position.
func precisionAtK(scores []float64, labels []bool, k int) float64 {
	order := descending(scores)
	k = min(k, len(order))
	if k == 0 {
		return 0
	}
	hit := 0
	for _, i := range order[:k] {
		if labels[i] {
			hit++
		}
	}
	return float64(hit) / float64(k)
}

func descending(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	return order
}
