package xlearn

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/stat"
	"k8s.io/klog/v2"
)

// trainer.go implements the epoch loop, early stopping, checkpointing and
// k-fold cross validation harness (spec §4.H), in the accretion-style
// reporting seafan's NNModel.String builds up with repeated Sprintf
// (dnn.go).

// Trainer owns one Model plus the hyperparameters and Readers driving it.
type Trainer struct {
	HP     HyperParam
	Model  *Model
	Kernel ScoreKernel
	Loss   Loss
	Metric Metric

	Train Reader
	Valid Reader // nil if no held-out validation set

	Pool *Pool

	history []MetricInfo
}

// NewTrainer wires a Model, kernel, loss and metric consistent with hp.
func NewTrainer(hp HyperParam, train, valid Reader) *Trainer {
	m := NewModel(hp.Score, hp.Loss, hp.Optim, hp.NumFeatures, hp.NumFields, hp.K, hp.ModelScale)
	return &Trainer{
		HP:     hp,
		Model:  m,
		Kernel: NewScoreKernel(hp.Score),
		Loss:   NewLoss(hp.Loss),
		Metric: NewMetric(hp.Metric),
		Train:  train,
		Valid:  valid,
		Pool:   NewPool(hp.NThread),
	}
}

// Fit runs the configured number of epochs, tracking the metric history
// and applying early stopping when hp.EarlyStop is set, a validation
// Reader is present and hp.Metric is not MetricNone; with MetricNone no
// early stopping takes place, the validation loss is not tracked for it.
// It returns the number of epochs actually run.
func (t *Trainer) Fit() (int, error) {
	if err := t.Train.Init(); err != nil {
		return 0, err
	}
	if t.Valid != nil {
		if err := t.Valid.Init(); err != nil {
			return 0, err
		}
	}

	worsening := 0
	ran := 0
	for epoch := 0; epoch < t.HP.Epochs; epoch++ {
		if err := t.runEpoch(); err != nil {
			return ran, err
		}
		ran++

		info, err := t.evaluate()
		if err != nil {
			return ran, err
		}
		t.history = append(t.history, info)
		if !t.HP.Quiet {
			klog.Infof("epoch %d: loss=%g %s=%g", epoch, info.LossVal, t.HP.Metric, info.MetricVal)
		}

		if t.Valid == nil || !t.HP.EarlyStop || t.HP.Metric == MetricNone {
			continue
		}
		if epoch == 0 {
			t.Model.SetBest()
			continue
		}
		if t.improved(info) {
			t.Model.SetBest()
			worsening = 0
		} else {
			worsening++
			if worsening >= t.HP.StopWindow {
				t.Model.Shrink()
				klog.Infof("early stop at epoch %d, reverting to best snapshot", epoch)
				break
			}
		}
	}
	return ran, nil
}

// improved reports whether info's metric is better than the best entry
// recorded in history so far, honoring the metric's natural direction
// (spec §4.H).
func (t *Trainer) improved(info MetricInfo) bool {
	best := t.history[0].MetricVal
	for _, h := range t.history[:len(t.history)-1] {
		if t.HP.Metric.HigherIsBetter() && h.MetricVal > best {
			best = h.MetricVal
		} else if !t.HP.Metric.HigherIsBetter() && h.MetricVal < best {
			best = h.MetricVal
		}
	}
	if t.HP.Metric.HigherIsBetter() {
		return info.MetricVal > best
	}
	return info.MetricVal < best
}

// runEpoch streams the training Reader to exhaustion, running one
// gradient pass per mini-batch, then rewinds it for the next epoch.
func (t *Trainer) runEpoch() error {
	mb := NewBatch()
	for t.Train.NextBatch(mb) {
		if err := t.trainBatch(mb); err != nil {
			return err
		}
	}
	return t.Train.Reset()
}

// trainBatch runs b's rows across the Pool: each worker owns a
// contiguous row range and writes to the shared model buffers
// unsynchronised (Hogwild), exactly as spec §9's design note specifies.
// With hp.LockFree false the whole batch runs as one sequential pass on
// the calling goroutine instead.
func (t *Trainer) trainBatch(b *Batch) error {
	if !t.HP.LockFree {
		t.Loss.Train(b, t.Model, t.Kernel, &t.HP)
		return nil
	}
	return t.Pool.Run(int(b.RowLength), func(start, end int) error {
		sub := &Batch{
			RowLength: uint32(end - start),
			Rows:      b.Rows[start:end],
			Y:         b.Y[start:end],
			Norm:      b.Norm[start:end],
			HasLabel:  b.HasLabel,
		}
		t.Loss.Train(sub, t.Model, t.Kernel, &t.HP)
		return nil
	})
}

// evaluate runs the validation Reader (or, absent one, the training
// Reader) end to end, accumulating loss and the configured metric.
func (t *Trainer) evaluate() (MetricInfo, error) {
	r := t.Valid
	if r == nil {
		r = t.Train
	}

	var lossSum float64
	var rows int
	if t.Metric != nil {
		t.Metric.Reset()
	}

	mb := NewBatch()
	for r.NextBatch(mb) {
		lossSum += float64(t.Loss.Evaluate(mb, t.Model, t.Kernel)) * float64(mb.RowLength)
		rows += int(mb.RowLength)
		if t.Metric != nil {
			for i := 0; i < int(mb.RowLength); i++ {
				row := mb.Rows[i]
				if row == nil {
					row = emptyRow
				}
				pred := t.Loss.Predict(row, t.Model, t.Kernel, mb.Norm[i])
				t.Metric.Accumulate(mb.Y[i], pred)
			}
		}
	}
	if err := r.Reset(); err != nil {
		return MetricInfo{}, err
	}

	info := MetricInfo{}
	if rows > 0 {
		info.LossVal = float32(lossSum / float64(rows))
	}
	if t.Metric != nil {
		info.MetricVal = t.Metric.Get()
	}
	return info, nil
}

// String reports the trainer's configuration and epoch history, built up
// by repeated Sprintf accretion in the style of seafan's NNModel.String.
func (t *Trainer) String() string {
	str := fmt.Sprintf("xlearn trainer: %s\n", t.HP)
	for i, h := range t.history {
		str = fmt.Sprintf("%s  epoch %d: loss=%g", str, i, h.LossVal)
		if t.HP.Metric != MetricNone {
			str = fmt.Sprintf("%s %s=%g", str, t.HP.Metric, h.MetricVal)
		}
		str += "\n"
	}
	return str
}

// CrossValidate runs k-fold CV: SplitFile divides path into hp.CVFolds
// contiguous parts, FoldFiles builds the per-fold train/validate pairs,
// and one Trainer is fit per fold. It returns the final validation metric
// of each fold and logs their mean and standard deviation (spec §4.D,
// §4.H).
func CrossValidate(hp HyperParam, path string) ([]float32, error) {
	k := hp.CVFolds
	tmpDir, err := os.MkdirTemp("", "xlearn-cv-*")
	if err != nil {
		return nil, Wrapper(ErrIO, err.Error())
	}
	defer os.RemoveAll(tmpDir)

	parts := make([]string, k)
	trains := make([]string, k)
	for i := 0; i < k; i++ {
		parts[i] = fmt.Sprintf("%s/part-%d", tmpDir, i)
		trains[i] = fmt.Sprintf("%s/train-%d", tmpDir, i)
	}
	if err := SplitFile(path, k, parts); err != nil {
		return nil, err
	}
	if err := FoldFiles(parts, trains); err != nil {
		return nil, err
	}

	results := make([]float32, k)
	for i := 0; i < k; i++ {
		trainR := NewInMemoryReader(trains[i], 1000, hp.Normalize)
		validR := NewInMemoryReader(parts[i], 1000, hp.Normalize)
		trainer := NewTrainer(hp, trainR, validR)
		if _, err := trainer.Fit(); err != nil {
			return nil, err
		}
		info, err := trainer.evaluate()
		if err != nil {
			return nil, err
		}
		results[i] = info.MetricVal
		klog.Infof("fold %d: %s", i, trainer.String())
	}
	mean, stddev := foldStats(results)
	klog.Infof("cv %s: mean=%g stddev=%g", hp.Metric, mean, stddev)
	return results, nil
}

// foldStats summarizes the per-fold metric values with gonum/stat the
// way seafan's diags.go summarizes a Desc column.
func foldStats(v []float32) (mean, stddev float32) {
	if len(v) == 0 {
		return 0, 0
	}
	f64 := make([]float64, len(v))
	for i, x := range v {
		f64[i] = float64(x)
	}
	m, sd := stat.MeanStdDev(f64, nil)
	return float32(m), float32(sd)
}
