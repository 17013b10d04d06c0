// Command xlearn-train fits an LR/FM/FFM model against a libsvm, libffm
// or csv file and writes the resulting model to disk (spec §6).
package main

import (
	"flag"
	"os"

	"k8s.io/klog/v2"

	"github.com/xlearn-go/xlearn"
)

func main() {
	klog.InitFlags(nil)
	flags := xlearn.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if err := flags.Validate(); err != nil {
		klog.Exit(err)
	}

	hp, err := flags.ToHyperParam(*flags.TrainFile)
	if err != nil {
		klog.Exit(err)
	}

	if hp.CV {
		results, err := xlearn.CrossValidate(hp, *flags.TrainFile)
		if err != nil {
			klog.Exit(err)
		}
		for i, r := range results {
			klog.Infof("fold %d: %s=%g", i, hp.Metric, r)
		}
		return
	}

	train := newReader(hp, *flags.TrainFile)
	var valid xlearn.Reader
	if *flags.TestFile != "" {
		valid = newReader(hp, *flags.TestFile)
	}

	trainer := xlearn.NewTrainer(hp, train, valid)
	epochs, err := trainer.Fit()
	if err != nil {
		klog.Exit(err)
	}
	klog.Infof("fit complete after %d epochs\n%s", epochs, trainer)

	if err := trainer.Model.Serialize(*flags.ModelOut); err != nil {
		klog.Exit(err)
	}
	os.Exit(0)
}

func newReader(hp xlearn.HyperParam, path string) xlearn.Reader {
	if hp.OnDisk {
		return xlearn.NewOnDiskReader(path, hp.BlockMB, hp.Normalize)
	}
	return xlearn.NewInMemoryReader(path, 1000, hp.Normalize)
}
