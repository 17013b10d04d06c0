package xlearn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTrainerS1LRCrossEntropyAdaGrad reproduces spec §8 scenario S1: LR +
// cross-entropy + AdaGrad on five tiny libsvm rows for 50 epochs should
// drive training loss to <=0.05 with every training prediction's sign
// correct.
func TestTrainerS1LRCrossEntropyAdaGrad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s1.libsvm")
	content := "+1 1:1\n+1 2:1\n-1 3:1\n-1 4:1\n+1 1:1 2:1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	hp := DefaultHyperParam()
	hp.Score = Linear
	hp.Loss = CrossEntropy
	hp.Optim = AdaGrad
	hp.LearnRate = 0.2
	hp.L2Lambda = 0
	hp.Epochs = 50
	hp.EarlyStop = false
	hp.Quiet = true
	hp.NThread = 1
	hp.Normalize = false

	numFeat, numField, err := scanDimensions(path)
	require.NoError(t, err)
	hp.NumFeatures = numFeat
	hp.NumFields = numField

	train := NewInMemoryReader(path, 5, hp.Normalize)
	train.Shuffle = false

	trainer := NewTrainer(hp, train, nil)
	_, err = trainer.Fit()
	require.NoError(t, err)

	info, err := trainer.evaluate()
	require.NoError(t, err)
	assert.LessOrEqual(t, info.LossVal, float32(0.05))

	mb := NewBatch()
	require.NoError(t, train.Reset())
	require.True(t, train.NextBatch(mb))
	labels := []float32{1, 1, -1, -1, 1}
	for i := 0; i < int(mb.RowLength); i++ {
		row := mb.Rows[i]
		if row == nil {
			row = emptyRow
		}
		pred := trainer.Loss.Predict(row, trainer.Model, trainer.Kernel, mb.Norm[i])
		if labels[i] > 0 {
			assert.Greater(t, pred, float32(0.5))
		} else {
			assert.Less(t, pred, float32(0.5))
		}
	}
}

func TestTrainerEarlyStopsOnWorseningMetric(t *testing.T) {
	dir := t.TempDir()
	trainPath := filepath.Join(dir, "train.libsvm")
	validPath := filepath.Join(dir, "valid.libsvm")
	require.NoError(t, os.WriteFile(trainPath, []byte("+1 1:1\n-1 2:1\n+1 1:1 2:1\n-1 1:1 3:1\n"), 0o644))
	require.NoError(t, os.WriteFile(validPath, []byte("+1 1:1\n-1 2:1\n"), 0o644))

	hp := DefaultHyperParam()
	hp.Loss = CrossEntropy
	hp.Metric = MetricAcc
	hp.Epochs = 5
	hp.StopWindow = 2
	hp.Quiet = true
	hp.NThread = 1

	numFeat, numField, err := scanDimensions(trainPath)
	require.NoError(t, err)
	hp.NumFeatures = numFeat
	hp.NumFields = numField

	train := NewInMemoryReader(trainPath, 4, hp.Normalize)
	valid := NewInMemoryReader(validPath, 2, hp.Normalize)
	trainer := NewTrainer(hp, train, valid)

	ran, err := trainer.Fit()
	require.NoError(t, err)
	assert.Less(t, ran, hp.Epochs)
}

func TestCrossValidateRunsAllFolds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.libsvm")
	var content string
	for i := 0; i < 30; i++ {
		label := "+1"
		if i%2 == 0 {
			label = "-1"
		}
		content += label + " 1:1 2:1\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	hp := DefaultHyperParam()
	hp.CVFolds = 3
	hp.Epochs = 2
	hp.Metric = MetricAcc
	hp.Quiet = true
	hp.NThread = 1
	hp.NumFeatures = 3

	results, err := CrossValidate(hp, path)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}
