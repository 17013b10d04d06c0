package xlearn

import "github.com/pkg/errors"

// errKind is a sentinel error identifying which subsystem raised a failure.
// Wrapper attaches context to one of these the way seafan's diags.go,
// fields.go and gdata.go wrap their own Err* sentinels.
type errKind struct{ name string }

func (e *errKind) Error() string { return e.name }

var (
	// ErrConfig identifies a configuration error: invalid flag, missing
	// file, conflicting options (spec §7.1).
	ErrConfig = &errKind{"xlearn: configuration error"}
	// ErrParse identifies a format error while parsing a data file or a
	// binary model/cache header (spec §7.2).
	ErrParse = &errKind{"xlearn: parse error"}
	// ErrIO identifies a truncated read, failed seek or similar (spec §7.4).
	ErrIO = &errKind{"xlearn: i/o error"}
	// ErrModel identifies a model-store error: bad header, size mismatch.
	ErrModel = &errKind{"xlearn: model error"}
	// ErrData identifies a Batch/DMatrix invariant violation.
	ErrData = &errKind{"xlearn: data error"}
	// ErrTrain identifies a trainer/CV configuration or runtime error.
	ErrTrain = &errKind{"xlearn: train error"}
)

// Wrapper attaches msg as context to kind, producing an error whose chain
// still satisfies errors.Is(err, kind).
func Wrapper(kind error, msg string) error {
	return errors.Wrap(kind, msg)
}

// Wrapperf is Wrapper with Printf-style formatting.
func Wrapperf(kind error, format string, args ...any) error {
	return errors.Wrap(kind, errors.Errorf(format, args...).Error())
}
