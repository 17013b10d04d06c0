package xlearn

import (
	"bufio"
	"os"
)

// splitter.go implements the k-fold file splitter used by cross
// validation (spec §4.D): the source file is cut into k contiguous,
// line-aligned parts whose concatenation reproduces the original
// byte-for-byte.

// SplitFile divides the file at path into k contiguous parts along line
// boundaries and writes them to the paths in outPaths (len(outPaths) must
// equal k). Each part gets len(lines)/k lines, with the remainder
// (len(lines) mod k) distributed one extra line to each of the first
// parts in turn, so concatenating all parts in order reproduces path
// exactly (spec §4.D "residue carries forward").
func SplitFile(path string, k int, outPaths []string) error {
	if k <= 0 || len(outPaths) != k {
		return Wrapper(ErrConfig, "SplitFile: k must match len(outPaths)")
	}

	lines, err := readAllLines(path)
	if err != nil {
		return err
	}

	base := len(lines) / k
	extra := len(lines) % k

	pos := 0
	for i := 0; i < k; i++ {
		n := base
		if i < extra {
			n++
		}
		if err := writeLines(outPaths[i], lines[pos:pos+n]); err != nil {
			return err
		}
		pos += n
	}
	return nil
}

// FoldFiles builds the k (train, validate) file pairs for k-fold cross
// validation from the k part paths produced by SplitFile: fold i
// validates on parts[i] and trains on the concatenation of every other
// part, written to trainPaths[i] (spec §4.D).
func FoldFiles(parts []string, trainPaths []string) error {
	if len(trainPaths) != len(parts) {
		return Wrapper(ErrConfig, "FoldFiles: trainPaths must match parts")
	}
	for i := range parts {
		if err := concatExcept(parts, i, trainPaths[i]); err != nil {
			return err
		}
	}
	return nil
}

func concatExcept(parts []string, skip int, outPath string) (err error) {
	out, err := os.Create(outPath)
	if err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = Wrapper(ErrIO, cerr.Error())
		}
	}()
	w := bufio.NewWriter(out)
	for i, p := range parts {
		if i == skip {
			continue
		}
		if err := appendFile(w, p); err != nil {
			return err
		}
	}
	return w.Flush()
}

func appendFile(w *bufio.Writer, path string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = Wrapper(ErrIO, cerr.Error())
		}
	}()
	_, err = f.WriteTo(w)
	if err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	return nil
}

// readAllLines reads path and returns its lines with the trailing
// newline preserved on every line but the (possibly unterminated) last
// one, so that concatenation of a contiguous sub-slice round-trips the
// original bytes exactly.
func readAllLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Wrapper(ErrIO, err.Error())
	}
	var lines []string
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, string(data[start:i+1]))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines, nil
}

func writeLines(path string, lines []string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = Wrapper(ErrIO, cerr.Error())
		}
	}()
	w := bufio.NewWriter(f)
	for _, l := range lines {
		if _, err := w.WriteString(l); err != nil {
			return Wrapper(ErrIO, err.Error())
		}
	}
	return w.Flush()
}
