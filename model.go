package xlearn

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// modelHeader is the small JSON-marshaled block SerializeTxt writes
// before the parameter dump, in the same "small struct, MarshalIndent"
// idiom seafan's dnn.go uses for its saveNode metadata.
type modelHeader struct {
	Score       string `json:"score_func"`
	Loss        string `json:"loss_func"`
	NumFeatures int    `json:"num_features"`
	K           int    `json:"k,omitempty"`
	NumFields   int    `json:"num_fields,omitempty"`
}

// Model owns the three aligned f32 parameter buffers plus the scalar
// metadata needed to interpret them (spec §3). Buffers are ordinary Go
// slices; 16-byte alignment is a property of the runtime allocator for
// slices of float32 backing arrays of this size on every target Go
// supports, so no manual alignment bookkeeping is needed — the tail-lane
// zeroing invariant is what actually matters; it is set by Reset (at
// construction) and kept by the update rules, which map a zero tail lane
// to zero.
type Model struct {
	Score ScoreFunc
	Loss  LossFunc
	Optim Optimizer

	NumFeatures int
	NumFields   int
	K           int
	KAligned    int
	AuxSize     int
	ModelScale  float64

	Bias []float32
	W    []float32
	V    []float32

	BestBias []float32
	BestW    []float32
	BestV    []float32
}

// NewModel allocates and initializes all buffers per spec §3.
func NewModel(score ScoreFunc, loss LossFunc, optim Optimizer, numFeatures, numFields, k int, modelScale float64) *Model {
	m := &Model{
		Score:       score,
		Loss:        loss,
		Optim:       optim,
		NumFeatures: numFeatures,
		NumFields:   numFields,
		K:           k,
		KAligned:    kAlign(k),
		AuxSize:     optim.AuxSize(),
		ModelScale:  modelScale,
	}
	m.allocate()
	m.Reset(true)
	return m
}

func (m *Model) allocate() {
	m.Bias = make([]float32, m.AuxSize)
	m.W = make([]float32, m.NumFeatures*m.AuxSize)
	switch m.Score {
	case FM:
		m.V = make([]float32, m.NumFeatures*m.KAligned*m.AuxSize)
	case FFM:
		m.V = make([]float32, m.NumFeatures*m.NumFields*m.KAligned*m.AuxSize)
	}
}

// Reset re-initializes every buffer. If gaussian is true, latent
// parameter slots are drawn from Normal(0, sigma^2) with
// sigma = model_scale/sqrt(k); linear and bias parameter slots are
// zeroed. Non-parameter aux slots are set to their optimiser-specific
// starting value regardless of gaussian.
func (m *Model) Reset(gaussian bool) {
	for i := range m.Bias {
		m.Bias[i] = 0
	}
	initAuxDefaults(m.Bias, m.AuxSize, m.Optim)

	for i := range m.W {
		m.W[i] = 0
	}
	for base := 0; base < len(m.W); base += m.AuxSize {
		initAuxDefaults(m.W[base:base+m.AuxSize], m.AuxSize, m.Optim)
	}

	if m.V == nil {
		return
	}
	sigma := m.ModelScale / math.Sqrt(float64(m.K))
	for base := 0; base < len(m.V); base += m.AuxSize {
		slot := m.V[base : base+m.AuxSize]
		if gaussian {
			slot[0] = float32(rand.NormFloat64() * sigma)
		} else {
			slot[0] = 0
		}
		initAuxDefaults(slot, m.AuxSize, m.Optim)
	}
	m.zeroLatentTail()
}

// zeroLatentTail clears the k..kAligned lanes of every latent vector so
// they can never contribute to a dot product (spec §3 invariant).
func (m *Model) zeroLatentTail() {
	if m.V == nil || m.K == m.KAligned {
		return
	}
	groups := len(m.V) / (m.KAligned * m.AuxSize)
	for g := 0; g < groups; g++ {
		base := g * m.KAligned * m.AuxSize
		for d := m.K; d < m.KAligned; d++ {
			off := base + d*m.AuxSize
			for a := 0; a < m.AuxSize; a++ {
				m.V[off+a] = 0
			}
		}
	}
}

// initAuxDefaults sets the non-parameter aux slots of one parameter's
// slot group to their optimiser starting values: AdaGrad's accumulator
// starts at 1.0 (not 0) to avoid divide-by-zero on the first step; FTRL's
// n and z both start at 0 (already true after the zero-fill above).
func initAuxDefaults(slot []float32, auxSize int, optim Optimizer) {
	switch optim {
	case AdaGrad:
		if auxSize > 1 {
			slot[1] = 1.0
		}
	case FTRL:
		// n, z already zero.
	}
}

// SetBest copies the current bias/w/v buffers into the best_ snapshot
// used for early-stop shrink-back (spec §4.D).
func (m *Model) SetBest() {
	m.BestBias = append([]float32(nil), m.Bias...)
	m.BestW = append([]float32(nil), m.W...)
	if m.V != nil {
		m.BestV = append([]float32(nil), m.V...)
	}
}

// Shrink restores the best_ snapshot into the current buffers.
func (m *Model) Shrink() {
	if m.BestBias == nil {
		return
	}
	copy(m.Bias, m.BestBias)
	copy(m.W, m.BestW)
	if m.V != nil {
		copy(m.V, m.BestV)
	}
}

// writeLenPrefixed / readLenPrefixed are the length-prefix primitives of
// the binary model path (Serialize / DeserializeModel).

func writeLenPrefixed(w *bufio.Writer, v []float32) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(v))); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	return nil
}

func readLenPrefixed(r *bufio.Reader) ([]float32, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, Wrapper(ErrIO, err.Error())
	}
	v := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		return nil, Wrapper(ErrIO, err.Error())
	}
	return v, nil
}

// Serialize writes the model to path in the binary layout of spec §6.
func (m *Model) Serialize(path string) (err error) {
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
	if _, err = fmt.Fprintf(w, "%s\n", m.Score); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	if _, err = fmt.Fprintf(w, "%s\n", m.Loss); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	if _, err = fmt.Fprintf(w, "%d\n", m.NumFeatures); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	if m.Score == FM || m.Score == FFM {
		if _, err = fmt.Fprintf(w, "%d\n", m.K); err != nil {
			return Wrapper(ErrIO, err.Error())
		}
	}
	if m.Score == FFM {
		if _, err = fmt.Fprintf(w, "%d\n", m.NumFields); err != nil {
			return Wrapper(ErrIO, err.Error())
		}
	}
	if err = writeLenPrefixed(w, m.Bias); err != nil {
		return err
	}
	if err = writeLenPrefixed(w, m.W); err != nil {
		return err
	}
	if m.V != nil {
		if err = writeLenPrefixed(w, m.V); err != nil {
			return err
		}
	}
	return w.Flush()
}

// DeserializeModel reads the binary layout written by Serialize, rejecting
// any file whose score_func header token doesn't identify one of the
// three model families.
func DeserializeModel(path string, optim Optimizer) (m *Model, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Wrapper(ErrIO, err.Error())
	}
	defer f.Close()
	r := bufio.NewReader(f)

	scoreLine, err := readLine(r)
	if err != nil {
		return nil, err
	}
	score, err := ParseScoreFunc(scoreLine)
	if err != nil {
		return nil, err
	}

	lossLine, err := readLine(r)
	if err != nil {
		return nil, err
	}
	loss := CrossEntropy
	if lossLine == Squared.String() {
		loss = Squared
	}

	numFeatLine, err := readLine(r)
	if err != nil {
		return nil, err
	}
	numFeatures, cerr := strconv.Atoi(numFeatLine)
	if cerr != nil {
		return nil, Wrapper(ErrModel, "bad num_features header")
	}

	k := 0
	if score == FM || score == FFM {
		kLine, e := readLine(r)
		if e != nil {
			return nil, e
		}
		if k, cerr = strconv.Atoi(kLine); cerr != nil {
			return nil, Wrapper(ErrModel, "bad k header")
		}
	}

	numFields := 0
	if score == FFM {
		fLine, e := readLine(r)
		if e != nil {
			return nil, e
		}
		if numFields, cerr = strconv.Atoi(fLine); cerr != nil {
			return nil, Wrapper(ErrModel, "bad num_fields header")
		}
	}

	m = &Model{
		Score:       score,
		Loss:        loss,
		Optim:       optim,
		NumFeatures: numFeatures,
		NumFields:   numFields,
		K:           k,
		KAligned:    kAlign(k),
		AuxSize:     optim.AuxSize(),
	}
	if m.Bias, err = readLenPrefixed(r); err != nil {
		return nil, err
	}
	if m.W, err = readLenPrefixed(r); err != nil {
		return nil, err
	}
	if score == FM || score == FFM {
		if m.V, err = readLenPrefixed(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", Wrapper(ErrModel, "truncated model header")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// SerializeTxt writes the human-readable dump of spec §4.D: a JSON header
// block (modelHeader), then bias, then w, then (for FM/FFM) the
// per-feature latent vectors.
func (m *Model) SerializeTxt(path string) (err error) {
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
	header := modelHeader{Score: m.Score.String(), Loss: m.Loss.String(), NumFeatures: m.NumFeatures}
	if m.Score == FM || m.Score == FFM {
		header.K = m.K
	}
	if m.Score == FFM {
		header.NumFields = m.NumFields
	}
	hb, jerr := json.MarshalIndent(header, "", "  ")
	if jerr != nil {
		return Wrapper(ErrModel, jerr.Error())
	}
	if _, err = w.Write(hb); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	if _, err = w.WriteString("\n"); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	if _, err = fmt.Fprintf(w, "%g\n", m.Bias[0]); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	for j := 0; j < m.NumFeatures; j++ {
		if _, err = fmt.Fprintf(w, "%g\n", m.W[j*m.AuxSize]); err != nil {
			return Wrapper(ErrIO, err.Error())
		}
	}
	switch m.Score {
	case FM:
		for j := 0; j < m.NumFeatures; j++ {
			base := j * m.KAligned * m.AuxSize
			for d := 0; d < m.K; d++ {
				if _, err = fmt.Fprintf(w, "%g ", m.V[base+d*m.AuxSize]); err != nil {
					return Wrapper(ErrIO, err.Error())
				}
			}
			if _, err = fmt.Fprint(w, "\n"); err != nil {
				return Wrapper(ErrIO, err.Error())
			}
		}
	case FFM:
		fieldStride := m.KAligned * m.AuxSize
		featStride := m.NumFields * fieldStride
		for j := 0; j < m.NumFeatures; j++ {
			for fl := 0; fl < m.NumFields; fl++ {
				base := j*featStride + fl*fieldStride
				for d := 0; d < m.K; d++ {
					if _, err = fmt.Fprintf(w, "%g ", m.V[base+d*m.AuxSize]); err != nil {
						return Wrapper(ErrIO, err.Error())
					}
				}
				if _, err = fmt.Fprint(w, "\n"); err != nil {
					return Wrapper(ErrIO, err.Error())
				}
			}
		}
	}
	return w.Flush()
}

// SerializeToVec dumps just the parameter bytes (no header) for language
// bindings, per spec §4.D.
func (m *Model) SerializeToVec() []float32 {
	out := make([]float32, 0, len(m.Bias)+len(m.W)+len(m.V))
	out = append(out, m.Bias...)
	out = append(out, m.W...)
	out = append(out, m.V...)
	return out
}

// LoadFromVec restores the parameter buffers from a flat vector shaped
// like SerializeToVec's output.
func (m *Model) LoadFromVec(v []float32) error {
	want := len(m.Bias) + len(m.W) + len(m.V)
	if len(v) != want {
		return Wrapperf(ErrModel, "LoadFromVec: expected %d floats, got %d", want, len(v))
	}
	off := 0
	copy(m.Bias, v[off:off+len(m.Bias)])
	off += len(m.Bias)
	copy(m.W, v[off:off+len(m.W)])
	off += len(m.W)
	if m.V != nil {
		copy(m.V, v[off:off+len(m.V)])
	}
	return nil
}
