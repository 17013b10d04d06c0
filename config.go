package xlearn

import (
	"bufio"
	"flag"
	"os"
	"runtime"
)

// config.go translates the CLI flag surface of spec §6 into a validated
// HyperParam, in the flag-var style of janpfeifer-hiveGo's
// cmd/trainer/main.go.

// Flags mirrors the xlearn-train/xlearn-predict command-line surface.
type Flags struct {
	Score   *string
	Loss    *string
	Optim   *string
	Metric  *string
	K       *int
	LR      *float64
	Lambda  *float64
	Alpha   *float64
	Beta    *float64
	Lambda1 *float64
	Lambda2 *float64
	Scale   *float64
	Epochs  *int
	Folds   *int
	Threads *int
	BlockMB *int
	Stop    *int

	OnDisk    *bool
	CV        *bool
	NoLock    *bool
	NoEarlyStop *bool
	NoNorm    *bool
	Quiet     *bool

	TrainFile *string
	TestFile  *string
	ModelOut  *string
	PredOut   *string
}

// RegisterFlags declares the CLI flags on fs (pass flag.CommandLine in
// production, a fresh *flag.FlagSet in tests) and returns the bound Flags.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	d := DefaultHyperParam()
	return &Flags{
		Score:   fs.String("s", d.Score.String(), "score function: linear, fm, ffm"),
		Loss:    fs.String("loss", d.Loss.String(), "loss function: cross-entropy, squared"),
		Optim:   fs.String("opt", d.Optim.String(), "optimizer: sgd, adagrad, ftrl"),
		Metric:  fs.String("x", "none", "metric: acc, prec, recall, f1, auc, mae, mape, rmse, none"),
		K:       fs.Int("k", d.K, "latent factor dimension (fm/ffm)"),
		LR:      fs.Float64("lr", d.LearnRate, "learning rate"),
		Lambda:  fs.Float64("lambda", d.L2Lambda, "L2 regularization"),
		Alpha:   fs.Float64("alpha", d.Alpha, "FTRL alpha"),
		Beta:    fs.Float64("beta", d.Beta, "FTRL beta"),
		Lambda1: fs.Float64("lambda_1", d.Lambda1, "FTRL L1"),
		Lambda2: fs.Float64("lambda_2", d.Lambda2, "FTRL L2"),
		Scale:   fs.Float64("init", d.ModelScale, "model init scale"),
		Epochs:  fs.Int("e", d.Epochs, "number of epochs"),
		Folds:   fs.Int("f", d.CVFolds, "cross-validation folds"),
		Threads: fs.Int("nthread", d.NThread, "worker threads (0 = NumCPU)"),
		BlockMB: fs.Int("block", d.BlockMB, "on-disk reader block size, MiB"),
		Stop:    fs.Int("stop_window", d.StopWindow, "early-stopping window, epochs"),

		OnDisk:    fs.Bool("disk", d.OnDisk, "stream training data from disk instead of loading it in memory"),
		CV:        fs.Bool("cv", d.CV, "run k-fold cross validation instead of a single fit"),
		NoLock:    fs.Bool("no_lock_free", !d.LockFree, "disable lock-free (Hogwild) gradient updates"),
		NoEarlyStop: fs.Bool("no_early_stop", !d.EarlyStop, "disable early stopping"),
		NoNorm:    fs.Bool("no_norm", !d.Normalize, "disable instance-wise normalization"),
		Quiet:     fs.Bool("quiet", d.Quiet, "suppress per-epoch log lines"),

		TrainFile: fs.String("train", "", "training file path"),
		TestFile:  fs.String("test", "", "test/validation file path"),
		ModelOut:  fs.String("model", "model.bin", "model output path"),
		PredOut:   fs.String("out", "output.txt", "prediction output path"),
	}
}

// ToHyperParam validates f and builds a HyperParam, auto-detecting
// NumFeatures/NumFields from trainPath whenever trainPath is non-empty
// (spec §6:
// "dimensions not given on the command line are inferred from the
// training file's first pass").
func (f *Flags) ToHyperParam(trainPath string) (HyperParam, error) {
	hp := DefaultHyperParam()

	score, err := ParseScoreFunc(*f.Score)
	if err != nil {
		return hp, err
	}
	hp.Score = score

	switch *f.Loss {
	case "squared":
		hp.Loss = Squared
	case "cross-entropy", "":
		hp.Loss = CrossEntropy
	default:
		return hp, Wrapperf(ErrConfig, "unknown loss %q", *f.Loss)
	}

	switch *f.Optim {
	case "sgd", "":
		hp.Optim = SGD
	case "adagrad":
		hp.Optim = AdaGrad
	case "ftrl":
		hp.Optim = FTRL
	default:
		return hp, Wrapperf(ErrConfig, "unknown optimizer %q", *f.Optim)
	}

	metric, err := ParseMetricKind(*f.Metric)
	if err != nil {
		return hp, err
	}
	hp.Metric = metric

	if *f.K <= 0 && (hp.Score == FM || hp.Score == FFM) {
		return hp, Wrapper(ErrConfig, "k must be positive for fm/ffm")
	}
	hp.K = *f.K
	hp.LearnRate = *f.LR
	hp.L2Lambda = *f.Lambda
	hp.Alpha = *f.Alpha
	hp.Beta = *f.Beta
	hp.Lambda1 = *f.Lambda1
	hp.Lambda2 = *f.Lambda2
	hp.ModelScale = *f.Scale

	if *f.Epochs <= 0 {
		return hp, Wrapper(ErrConfig, "epochs must be positive")
	}
	hp.Epochs = *f.Epochs

	if *f.Folds < 2 {
		return hp, Wrapper(ErrConfig, "cv folds must be at least 2")
	}
	hp.CVFolds = *f.Folds

	hp.NThread = *f.Threads
	if hp.NThread <= 0 {
		hp.NThread = runtime.NumCPU()
	}
	if *f.BlockMB <= 0 {
		return hp, Wrapper(ErrConfig, "block size must be positive")
	}
	hp.BlockMB = *f.BlockMB
	if *f.Stop <= 0 {
		return hp, Wrapper(ErrConfig, "stop_window must be positive")
	}
	hp.StopWindow = *f.Stop

	hp.OnDisk = *f.OnDisk
	hp.CV = *f.CV
	hp.LockFree = !*f.NoLock
	hp.EarlyStop = !*f.NoEarlyStop
	hp.Normalize = !*f.NoNorm
	hp.Quiet = *f.Quiet

	if hp.OnDisk && hp.CV {
		return hp, Wrapper(ErrConfig, "-disk and -cv are mutually exclusive")
	}

	if trainPath != "" {
		numFeat, numField, err := scanDimensions(trainPath)
		if err != nil {
			return hp, err
		}
		hp.NumFeatures = numFeat
		hp.NumFields = numField
	}

	return hp, nil
}

// scanDimensions makes one streaming pass over path to find the largest
// feature and field id it references, used to size the Model when the
// caller hasn't fixed the dimensions up front.
func scanDimensions(path string) (numFeatures, numFields int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, Wrapper(ErrIO, err.Error())
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), kMaxLineSize)

	var sep byte
	var hasLabel bool
	var format FileFormat
	first := true
	var maxFeat, maxField uint32

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if first {
			sep, hasLabel, format, err = SniffFormat(line)
			if err != nil {
				return 0, 0, err
			}
			first = false
		}
		_, nodes, perr := parseLine(stripCRLF(line), format, sep, hasLabel)
		if perr != nil {
			return 0, 0, perr
		}
		for _, n := range nodes {
			if n.FeatID > maxFeat {
				maxFeat = n.FeatID
			}
			if n.FieldID > maxField {
				maxField = n.FieldID
			}
		}
	}
	if serr := scanner.Err(); serr != nil {
		return 0, 0, Wrapper(ErrIO, serr.Error())
	}
	// Feature/field ids are 0-based in libsvm/libffm, 1-based in csv
	// (column index); either way the count is max+1.
	return int(maxFeat) + 1, int(maxField) + 1, nil
}

// Validate checks that -train is set and that -disk and -cv are not both
// given (the latter is checked again by ToHyperParam), for callers that
// want to check before doing any I/O.
func (f *Flags) Validate() error {
	if *f.TrainFile == "" {
		return Wrapper(ErrConfig, "-train is required")
	}
	if *f.OnDisk && *f.CV {
		return Wrapper(ErrConfig, "-disk and -cv are mutually exclusive")
	}
	return nil
}
