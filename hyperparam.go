package xlearn

import "fmt"

// ScoreFunc is the model family: Linear (LR), FM, or FFM (spec §3).
type ScoreFunc int

const (
	Linear ScoreFunc = iota
	FM
	FFM
)

func (s ScoreFunc) String() string {
	switch s {
	case Linear:
		return "linear"
	case FM:
		return "fm"
	case FFM:
		return "ffm"
	default:
		return "unknown"
	}
}

// ParseScoreFunc rejects any token that doesn't identify one of the three
// model families (spec §4.D: "A reader of a model file must reject files
// whose score_func token does not identify one of the three model
// families").
func ParseScoreFunc(s string) (ScoreFunc, error) {
	switch s {
	case "linear":
		return Linear, nil
	case "fm":
		return FM, nil
	case "ffm":
		return FFM, nil
	default:
		return 0, Wrapperf(ErrModel, "unknown score_func %q", s)
	}
}

// LossFunc is the training objective: cross-entropy (classification) or
// squared error (regression).
type LossFunc int

const (
	CrossEntropy LossFunc = iota
	Squared
)

func (l LossFunc) String() string {
	if l == Squared {
		return "squared"
	}
	return "cross-entropy"
}

// Optimizer selects the per-coordinate update rule and therefore the
// number of auxiliary slots each parameter carries (spec §3: "aux_size:
// 1 for SGD, 2 for AdaGrad, 3 for FTRL").
type Optimizer int

const (
	SGD Optimizer = iota
	AdaGrad
	FTRL
)

func (o Optimizer) String() string {
	switch o {
	case SGD:
		return "sgd"
	case AdaGrad:
		return "adagrad"
	case FTRL:
		return "ftrl"
	default:
		return "unknown"
	}
}

// AuxSize returns the number of per-parameter auxiliary slots this
// optimiser needs.
func (o Optimizer) AuxSize() int {
	switch o {
	case SGD:
		return 1
	case AdaGrad:
		return 2
	case FTRL:
		return 3
	default:
		return 1
	}
}

// MetricKind names the evaluation metric the trainer reports and, when
// set, uses to drive early stopping (spec §4.G, §4.H).
type MetricKind int

const (
	MetricNone MetricKind = iota
	MetricAcc
	MetricPrec
	MetricRecall
	MetricF1
	MetricAUC
	MetricMAE
	MetricMAPE
	MetricRMSE
)

// String names the metric the way the original's report headers do.
func (m MetricKind) String() string {
	switch m {
	case MetricAcc:
		return "Accuracy"
	case MetricPrec:
		return "Precision"
	case MetricRecall:
		return "Recall"
	case MetricF1:
		return "F1"
	case MetricAUC:
		return "AUC"
	case MetricMAE:
		return "MAE"
	case MetricMAPE:
		return "MAPE"
	case MetricRMSE:
		return "RMSE"
	default:
		return "none"
	}
}

// HigherIsBetter reports the metric's natural direction, used by early
// stopping to decide what "worsening" means (spec §4.H).
func (m MetricKind) HigherIsBetter() bool {
	switch m {
	case MetricAcc, MetricPrec, MetricRecall, MetricF1, MetricAUC:
		return true
	default:
		return false
	}
}

// ParseMetricKind parses the -x flag's token set.
func ParseMetricKind(s string) (MetricKind, error) {
	switch s {
	case "acc":
		return MetricAcc, nil
	case "prec":
		return MetricPrec, nil
	case "recall":
		return MetricRecall, nil
	case "f1":
		return MetricF1, nil
	case "auc":
		return MetricAUC, nil
	case "mae":
		return MetricMAE, nil
	case "mape":
		return MetricMAPE, nil
	case "rmsd", "rmse":
		return MetricRMSE, nil
	case "none", "":
		return MetricNone, nil
	default:
		return 0, Wrapperf(ErrConfig, "unknown metric %q", s)
	}
}

// HyperParam holds every training-time knob; it is immutable once the
// Trainer has started (spec §3).
type HyperParam struct {
	Score ScoreFunc
	Loss  LossFunc
	Optim Optimizer
	Metric MetricKind

	K          int // latent dimension
	LearnRate  float64
	L2Lambda   float64
	Alpha      float64 // FTRL
	Beta       float64 // FTRL
	Lambda1    float64 // FTRL
	Lambda2    float64 // FTRL
	ModelScale float64 // init scale

	Epochs     int
	CVFolds    int
	NThread    int
	BlockMB    int
	StopWindow int

	OnDisk       bool
	CV           bool
	LockFree     bool
	EarlyStop    bool
	Normalize    bool
	Quiet        bool

	NumFeatures int
	NumFields   int
}

// DefaultHyperParam mirrors the §6 CLI defaults.
func DefaultHyperParam() HyperParam {
	return HyperParam{
		Score:      Linear,
		Loss:       CrossEntropy,
		Optim:      SGD,
		Metric:     MetricNone,
		K:          4,
		LearnRate:  0.2,
		L2Lambda:   2e-5,
		Alpha:      1.0,
		Beta:       1.0,
		Lambda1:    0.0,
		Lambda2:    0.0,
		ModelScale: 0.66,
		Epochs:     10,
		CVFolds:    5,
		NThread:    0,
		BlockMB:    500,
		StopWindow: 2,
		LockFree:   true,
		EarlyStop:  true,
		Normalize:  true,
	}
}

// KAligned rounds K up to a multiple of 4 so per-factor loops can walk in
// 4-wide SIMD lanes with a permanently-zero tail (spec §3).
func (h HyperParam) KAligned() int {
	return kAlign(h.K)
}

func kAlign(k int) int {
	return (k + 3) &^ 3
}

// AuxSize is the per-parameter auxiliary slot count for h.Optim.
func (h HyperParam) AuxSize() int {
	return h.Optim.AuxSize()
}

func (h HyperParam) String() string {
	return fmt.Sprintf("score=%s loss=%s optim=%s k=%d lr=%g lambda=%g epochs=%d",
		h.Score, h.Loss, h.Optim, h.K, h.LearnRate, h.L2Lambda, h.Epochs)
}

// MetricInfo is one epoch's recorded loss/metric pair (spec §3).
type MetricInfo struct {
	LossVal   float32
	MetricVal float32
}
