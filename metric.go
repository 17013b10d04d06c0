package xlearn

// metric.go implements the evaluation metrics the trainer reports and,
// when configured, uses to drive early stopping (spec §4.G). Each
// metric accumulates over a Batch's predictions one row at a time so the
// same accumulator can be fed by a Pool-parallelised pass; Get never
// mutates state, so it may be called mid-epoch for logging.

// Metric accumulates predictions against labels and reports a scalar.
type Metric interface {
	Accumulate(y, pred float32)
	Reset()
	Get() float32
}

// NewMetric returns the Metric matching kind, or nil for MetricNone.
func NewMetric(kind MetricKind) Metric {
	switch kind {
	case MetricAcc:
		return &classRateMetric{mode: metricAcc}
	case MetricPrec:
		return &classRateMetric{mode: metricPrec}
	case MetricRecall:
		return &classRateMetric{mode: metricRecall}
	case MetricF1:
		return &classRateMetric{mode: metricF1}
	case MetricAUC:
		return newAUCMetric()
	case MetricMAE:
		return &regressionMetric{mode: metricMAE}
	case MetricMAPE:
		return &regressionMetric{mode: metricMAPE}
	case MetricRMSE:
		return &regressionMetric{mode: metricRMSE}
	default:
		return nil
	}
}

// --- classification rate metrics (acc/prec/recall/f1) -----------------

type classRateMode int

const (
	metricAcc classRateMode = iota
	metricPrec
	metricRecall
	metricF1
)

// classRateMetric accumulates the 2x2 confusion counts behind accuracy,
// precision, recall and F1 (spec §4.G: predictions are thresholded at
// 0.5, labels at >0).
type classRateMetric struct {
	mode                   classRateMode
	tp, tn, fp, fn, total uint64
}

func (m *classRateMetric) Accumulate(y, pred float32) {
	positive := pred >= 0.5
	actual := y > 0
	switch {
	case positive && actual:
		m.tp++
	case !positive && !actual:
		m.tn++
	case positive && !actual:
		m.fp++
	default:
		m.fn++
	}
	m.total++
}

func (m *classRateMetric) Reset() { *m = classRateMetric{mode: m.mode} }

func (m *classRateMetric) Get() float32 {
	switch m.mode {
	case metricPrec:
		if m.tp+m.fp == 0 {
			return 0
		}
		return float32(m.tp) / float32(m.tp+m.fp)
	case metricRecall:
		if m.tp+m.fn == 0 {
			return 0
		}
		return float32(m.tp) / float32(m.tp+m.fn)
	case metricF1:
		prec := (&classRateMetric{mode: metricPrec, tp: m.tp, fp: m.fp, fn: m.fn}).Get()
		rec := (&classRateMetric{mode: metricRecall, tp: m.tp, fp: m.fp, fn: m.fn}).Get()
		if prec+rec == 0 {
			return 0
		}
		return 2 * prec * rec / (prec + rec)
	default: // metricAcc
		if m.total == 0 {
			return 0
		}
		return float32(m.tp+m.tn) / float32(m.total)
	}
}

// --- regression metrics (MAE/MAPE/RMSE) --------------------------------

type regressionMode int

const (
	metricMAE regressionMode = iota
	metricMAPE
	metricRMSE
)

type regressionMetric struct {
	mode        regressionMode
	sumAbs      float64
	sumAbsPct   float64
	sumSq       float64
	n           uint64
}

func (m *regressionMetric) Accumulate(y, pred float32) {
	d := float64(pred) - float64(y)
	m.sumAbs += absF64(d)
	m.sumSq += d * d
	if y != 0 {
		m.sumAbsPct += absF64(d) / absF64(float64(y))
	}
	m.n++
}

func absF64(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func (m *regressionMetric) Reset() { *m = regressionMetric{mode: m.mode} }

func (m *regressionMetric) Get() float32 {
	if m.n == 0 {
		return 0
	}
	switch m.mode {
	case metricMAPE:
		return float32(m.sumAbsPct / float64(m.n) * 100)
	case metricRMSE:
		return sqrtF32(float32(m.sumSq / float64(m.n)))
	default: // metricMAE
		return float32(m.sumAbs / float64(m.n))
	}
}

// --- AUC ---------------------------------------------------------------

// aucBuckets is the number of fixed-width score buckets AUC sorts
// predictions into instead of an O(n log n) sort, per spec §4.G ("10^6
// buckets, rectangle-rule integration").
const aucBuckets = 1_000_000

// aucMetric computes AUC by bucketing predictions into aucBuckets bins
// of width 1/aucBuckets and integrating true/false positive rate via the
// rectangle rule, walking buckets from the highest score down (spec
// §4.G), avoiding an O(n log n) sort over the raw predictions.
type aucMetric struct {
	posBuckets [aucBuckets]uint64
	negBuckets [aucBuckets]uint64
}

func newAUCMetric() *aucMetric { return &aucMetric{} }

func (m *aucMetric) Accumulate(y, pred float32) {
	b := aucBucket(pred)
	if y > 0 {
		m.posBuckets[b]++
	} else {
		m.negBuckets[b]++
	}
}

func aucBucket(pred float32) int {
	if pred < 0 {
		pred = 0
	}
	if pred > 1 {
		pred = 1
	}
	b := int(pred * float32(aucBuckets))
	if b >= aucBuckets {
		b = aucBuckets - 1
	}
	return b
}

func (m *aucMetric) Reset() {
	m.posBuckets = [aucBuckets]uint64{}
	m.negBuckets = [aucBuckets]uint64{}
}

// Get integrates ROC area via the rectangle rule over buckets walked
// from highest score to lowest, accumulating false-positive count as the
// x-axis step and true-positive count as the rectangle height.
func (m *aucMetric) Get() float32 {
	var totalPos, totalNeg uint64
	for i := 0; i < aucBuckets; i++ {
		totalPos += m.posBuckets[i]
		totalNeg += m.negBuckets[i]
	}
	if totalPos == 0 || totalNeg == 0 {
		return 0.5
	}

	var area float64
	var cumPos, cumNeg uint64
	for i := aucBuckets - 1; i >= 0; i-- {
		fp := float64(m.negBuckets[i])
		tpBefore := float64(cumPos)
		area += fp * tpBefore
		area += fp * float64(m.posBuckets[i]) / 2 // rectangle-rule correction within the tied bucket
		cumPos += m.posBuckets[i]
		cumNeg += m.negBuckets[i]
	}
	raw := area / (float64(totalPos) * float64(totalNeg))
	return float32(raw)
}
