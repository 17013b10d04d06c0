package xlearn

import (
	"strconv"
	"strings"
)

// format_parser.go implements the three line formats xLearn reads and the
// per-file format/separator sniffing that picks among them (spec §4.B,
// the detection half of §4.C).

// kMaxLineSize bounds a single input line; exceeding it is fatal (spec
// §4.B).
const kMaxLineSize = 512 * 1024

// csvZeroThreshold is the magnitude below which a csv field is treated as
// an absent zero rather than a stored node (spec §4.B).
const csvZeroThreshold = 1e-15

// FileFormat is the sniffed shape of one input file.
type FileFormat int

const (
	FormatLibSVM FileFormat = iota
	FormatLibFFM
	FormatCSV
)

func (f FileFormat) String() string {
	switch f {
	case FormatLibFFM:
		return "libffm"
	case FormatCSV:
		return "csv"
	default:
		return "libsvm"
	}
}

// stripCRLF trims a trailing \r (and any \n an unchomped line still
// carries), tolerating CRLF line endings (spec §4.B).
func stripCRLF(line string) string {
	line = strings.TrimRight(line, "\n")
	line = strings.TrimRight(line, "\r")
	return line
}

// SniffFormat reads the first non-empty line of a file's bytes and
// determines its separator, whether it carries a label column, and
// which of the three line formats it is (spec §4.C).
func SniffFormat(firstLine string) (sep byte, hasLabel bool, format FileFormat, err error) {
	firstLine = stripCRLF(firstLine)
	if len(firstLine) > kMaxLineSize {
		return 0, false, 0, Wrapper(ErrParse, "line exceeds kMaxLineSize")
	}

	var spaces, tabs, commas int
	for i := 0; i < len(firstLine); i++ {
		switch firstLine[i] {
		case ' ':
			spaces++
		case '\t':
			tabs++
		case ',':
			commas++
		}
	}
	sep = ' '
	max := spaces
	if tabs > max {
		sep, max = '\t', tabs
	}
	if commas > max {
		sep, max = ',', commas
	}

	fields := splitOnSep(firstLine, sep)
	if len(fields) < 2 {
		return 0, false, 0, Wrapper(ErrParse, "unrecognised file shape: fewer than 2 fields")
	}

	hasLabel = !strings.Contains(fields[0], ":")

	colonCount := strings.Count(fields[1], ":")
	switch colonCount {
	case 1:
		format = FormatLibSVM
	case 2:
		format = FormatLibFFM
	case 0:
		format = FormatCSV
	default:
		return 0, false, 0, Wrapperf(ErrParse, "unrecognised file shape: %d colons in second field", colonCount)
	}
	return sep, hasLabel, format, nil
}

func splitOnSep(line string, sep byte) []string {
	if sep == ' ' {
		return strings.Fields(line)
	}
	parts := strings.Split(line, string(sep))
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseBlock parses every line of block into a new Batch, one row per
// line starting at row 0. An unterminated final line is parsed like any
// other line; callers that read partial blocks trim them to the last
// newline first (§4.C's block-trim step).
func ParseBlock(block []byte, format FileFormat, sep byte, hasLabel bool, normalize bool) (*Batch, error) {
	lines := strings.Split(string(block), "\n")
	// Trailing split artifact from the final \n, and any blank trailing
	// lines at EOF, are tolerated (spec §4.B original-source supplement).
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	b := NewBatch()
	b.Reset(uint32(len(lines)), hasLabel)
	for i, line := range lines {
		if len(line) > kMaxLineSize {
			return nil, Wrapper(ErrParse, "line exceeds kMaxLineSize")
		}
		line = stripCRLF(line)
		label, nodes, err := parseLine(line, format, sep, hasLabel)
		if err != nil {
			return nil, err
		}
		if hasLabel {
			b.Y[i] = label
		}
		if len(nodes) > 0 {
			b.Rows[i] = &SparseRow{Nodes: nodes}
		}
		b.Norm[i] = rowNorm(nodes, normalize)
	}
	return b, nil
}

// rowNorm computes 1/Σvalue² over nodes, or 1.0 if normalize is false. A
// row with no non-zeros yields +Inf when normalize is true — callers must
// either disable it or guarantee at least one non-zero (spec §4.B).
func rowNorm(nodes []Node, normalize bool) float32 {
	if !normalize {
		return 1.0
	}
	var sq float64
	for _, n := range nodes {
		v := float64(n.Value)
		sq += v * v
	}
	if sq == 0 {
		return float32(posInf())
	}
	return float32(1.0 / sq)
}

func posInf() float64 {
	var zero float64
	return 1 / zero
}

func parseLine(line string, format FileFormat, sep byte, hasLabel bool) (label float32, nodes []Node, err error) {
	switch format {
	case FormatLibSVM:
		return parseLibsvmLine(line, sep, hasLabel)
	case FormatLibFFM:
		return parseLibffmLine(line, sep, hasLabel)
	default:
		return parseCSVLine(line, sep, hasLabel)
	}
}

func parseLabel(tok string) (float32, error) {
	v, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		return 0, Wrapperf(ErrParse, "bad label %q", tok)
	}
	return float32(v), nil
}

// parseLibsvmLine parses "label idx:value idx:value ...".
func parseLibsvmLine(line string, sep byte, hasLabel bool) (label float32, nodes []Node, err error) {
	fields := splitOnSep(line, sep)
	if len(fields) == 0 {
		return 0, nil, nil
	}
	start := 0
	if hasLabel {
		if label, err = parseLabel(fields[0]); err != nil {
			return 0, nil, err
		}
		start = 1
	} else {
		label = noLabel
	}
	for _, f := range fields[start:] {
		idx, val, perr := splitIdxValue(f)
		if perr != nil {
			return 0, nil, perr
		}
		nodes = append(nodes, Node{FieldID: 0, FeatID: idx, Value: val})
	}
	return label, nodes, nil
}

// parseLibffmLine parses "label field:idx:value field:idx:value ...".
func parseLibffmLine(line string, sep byte, hasLabel bool) (label float32, nodes []Node, err error) {
	fields := splitOnSep(line, sep)
	if len(fields) == 0 {
		return 0, nil, nil
	}
	start := 0
	if hasLabel {
		if label, err = parseLabel(fields[0]); err != nil {
			return 0, nil, err
		}
		start = 1
	} else {
		label = noLabel
	}
	for _, f := range fields[start:] {
		parts := strings.SplitN(f, ":", 3)
		if len(parts) != 3 {
			return 0, nil, Wrapperf(ErrParse, "bad libffm node %q", f)
		}
		fieldID, ferr := strconv.ParseUint(parts[0], 10, 32)
		if ferr != nil {
			return 0, nil, Wrapperf(ErrParse, "bad field id %q", parts[0])
		}
		idx, ierr := strconv.ParseUint(parts[1], 10, 32)
		if ierr != nil {
			return 0, nil, Wrapperf(ErrParse, "bad feature id %q", parts[1])
		}
		val, verr := strconv.ParseFloat(parts[2], 32)
		if verr != nil {
			return 0, nil, Wrapperf(ErrParse, "bad value %q", parts[2])
		}
		nodes = append(nodes, Node{FieldID: uint32(fieldID), FeatID: uint32(idx), Value: float32(val)})
	}
	return label, nodes, nil
}

// parseCSVLine parses "label value1 value2 ... valueN". If hasLabel is
// false the first field is still consumed as a label placeholder (spec
// §4.B: "a csv row with no label must have a placeholder column"). Zero
// (below csvZeroThreshold) fields are dropped rather than stored.
func parseCSVLine(line string, sep byte, hasLabel bool) (label float32, nodes []Node, err error) {
	fields := splitOnSep(line, sep)
	if len(fields) == 0 {
		return 0, nil, nil
	}
	if hasLabel {
		if label, err = parseLabel(fields[0]); err != nil {
			return 0, nil, err
		}
	} else {
		label = noLabel
	}
	for i, f := range fields[1:] {
		v, verr := strconv.ParseFloat(f, 32)
		if verr != nil {
			return 0, nil, Wrapperf(ErrParse, "bad csv value %q", f)
		}
		fv := float32(v)
		if fv < 0 {
			if -fv < csvZeroThreshold {
				continue
			}
		} else if fv < csvZeroThreshold {
			continue
		}
		nodes = append(nodes, Node{FieldID: 0, FeatID: uint32(i + 1), Value: fv})
	}
	return label, nodes, nil
}

func splitIdxValue(f string) (idx uint32, val float32, err error) {
	parts := strings.SplitN(f, ":", 2)
	if len(parts) != 2 {
		return 0, 0, Wrapperf(ErrParse, "bad libsvm node %q", f)
	}
	i, ierr := strconv.ParseUint(parts[0], 10, 32)
	if ierr != nil {
		return 0, 0, Wrapperf(ErrParse, "bad feature id %q", parts[0])
	}
	v, verr := strconv.ParseFloat(parts[1], 32)
	if verr != nil {
		return 0, 0, Wrapperf(ErrParse, "bad value %q", parts[1])
	}
	return uint32(i), float32(v), nil
}
