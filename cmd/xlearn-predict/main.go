// Command xlearn-predict scores a data file against a model written by
// xlearn-train and writes one prediction per line (spec §6).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"

	"k8s.io/klog/v2"

	"github.com/xlearn-go/xlearn"
)

var emptyRow = &xlearn.SparseRow{}

func main() {
	klog.InitFlags(nil)
	optimName := flag.String("opt", "sgd", "optimizer the model was trained with: sgd, adagrad, ftrl")
	modelPath := flag.String("model", "model.bin", "model input path")
	testPath := flag.String("test", "", "file to score")
	outPath := flag.String("out", "output.txt", "prediction output path")
	sigmoidOut := flag.Bool("sigmoid", false, "apply the sigmoid link (default: on for cross-entropy models, off for squared-error models)")
	flag.Parse()

	if *testPath == "" {
		klog.Exit(xlearn.Wrapper(xlearn.ErrConfig, "-test is required"))
	}

	optim, err := parseOptim(*optimName)
	if err != nil {
		klog.Exit(err)
	}

	model, err := xlearn.DeserializeModel(*modelPath, optim)
	if err != nil {
		klog.Exit(err)
	}
	kernel := xlearn.NewScoreKernel(model.Score)

	sigmoidSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "sigmoid" {
			sigmoidSet = true
		}
	})
	if !sigmoidSet {
		*sigmoidOut = model.Loss == xlearn.CrossEntropy
	}

	reader := xlearn.NewInMemoryReader(*testPath, 1000, true)
	reader.Shuffle = false
	if err := reader.Init(); err != nil {
		klog.Exit(err)
	}

	out, err := os.Create(*outPath)
	if err != nil {
		klog.Exit(xlearn.Wrapper(xlearn.ErrIO, err.Error()))
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	defer w.Flush()

	mb := xlearn.NewBatch()
	for reader.NextBatch(mb) {
		for i := 0; i < int(mb.RowLength); i++ {
			row := mb.Rows[i]
			if row == nil {
				row = emptyRow
			}
			score := kernel.CalcScore(row, model, mb.Norm[i])
			if *sigmoidOut {
				score = sigmoidOf(score)
			}
			if _, err := fmt.Fprintf(w, "%g\n", score); err != nil {
				klog.Exit(xlearn.Wrapper(xlearn.ErrIO, err.Error()))
			}
		}
	}
}

func sigmoidOf(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

func parseOptim(s string) (xlearn.Optimizer, error) {
	switch s {
	case "sgd", "":
		return xlearn.SGD, nil
	case "adagrad":
		return xlearn.AdaGrad, nil
	case "ftrl":
		return xlearn.FTRL, nil
	default:
		return 0, xlearn.Wrapperf(xlearn.ErrConfig, "unknown optimizer %q", s)
	}
}
