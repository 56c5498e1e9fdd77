package evaluate

import (
	"testing"

	"github.com/manningwu07/SIGRN/IO"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPerfectRanking(t *testing.T) {
	scores := []float64{0.9, 0.8, 0.3, 0.2, 0.1}
	labels := []bool{true, true, false, false, false}

	r, err := Score(scores, labels)
	require.NoError(t, err)
	require.InDelta(t, 1, r.AUROC, 1e-12)
	require.InDelta(t, 1, r.AUPRC, 1e-12)
	require.InDelta(t, 2.5, r.AUPRCRatio, 1e-12)
	require.InDelta(t, 2.5, r.EPR, 1e-12)
}

func TestInvertedRanking(t *testing.T) {
	scores := []float64{0.9, 0.8, 0.3, 0.2}
	labels := []bool{false, false, true, true}

	r, err := Score(scores, labels)
	require.NoError(t, err)
	require.InDelta(t, 0, r.AUROC, 1e-12)
	require.Zero(t, r.EPR)
	// precision 1/3 at recall 0.5, 2/4 at recall 1
	require.InDelta(t, 0.5*(1.0/3)+0.5*0.5, r.AUPRC, 1e-12)
}

func TestTiesCountOnce(t *testing.T) {
	scores := []float64{1, 1, 1, 1}
	labels := []bool{true, false, true, false}
	require.InDelta(t, 0.5, AUROC(scores, labels), 1e-12)
	require.InDelta(t, 0.5, AveragePrecision(scores, labels), 1e-12)
}

func TestScoreErrors(t *testing.T) {
	_, err := Score([]float64{1, 2}, []bool{false, false})
	require.ErrorIs(t, err, ErrNoPositives)

	_, err = Score([]float64{1, 2}, []bool{true, true})
	require.ErrorIs(t, err, ErrNoNegatives)

	_, err = Score([]float64{1}, []bool{true, false})
	require.Error(t, err)
}

func TestMetricsOnAdjacency(t *testing.T) {
	genes := []string{"A", "B", "C"}
	adj := mat.NewDense(3, 3, []float64{
		5, 0.9, 0.1,
		0.05, 5, -0.8,
		0.2, 0.3, 5,
	})
	truth := []IO.Edge{{From: "A", To: "B"}, {From: "B", To: "C"}, {From: "A", To: "A"}, {From: "A", To: "Z"}}

	r, err := Metrics(adj, genes, truth)
	require.NoError(t, err)
	require.Equal(t, 2, r.Positives)
	require.Equal(t, 6, r.Candidates)
	require.InDelta(t, 1, r.AUROC, 1e-12)
	require.InDelta(t, 3, r.EPR, 1e-12)

	_, err = Metrics(adj, genes, []IO.Edge{{From: "X", To: "Y"}})
	require.ErrorIs(t, err, ErrNoPositives)
}
