package xlearn

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sort"
)

// noLabel is the sentinel label value used when a Batch has no ground
// truth (spec §4.B: "a sentinel (−2) so the predictor recognises
// 'no ground truth'").
const noLabel = float32(-2)

// Batch is the columnar container xLearn calls DMatrix: a contiguous
// group of training instances shipped through the pipeline (spec §3).
type Batch struct {
	RowLength uint32
	Rows      []*SparseRow
	Y         []float32
	Norm      []float32
	HasLabel  bool
	Pos       uint32

	Hash1 uint64
	Hash2 uint64
}

// NewBatch returns an empty, zero-length Batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Reset re-initializes the Batch to length rows, all nil/zero, releasing
// any previously owned rows (spec: "Released by an explicit reset that
// frees all owned rows").
func (b *Batch) Reset(length uint32, hasLabel bool) {
	b.RowLength = length
	b.Rows = make([]*SparseRow, length)
	b.Y = make([]float32, length)
	b.Norm = make([]float32, length)
	b.HasLabel = hasLabel
	b.Pos = 0
	if !hasLabel {
		for i := range b.Y {
			b.Y[i] = noLabel
		}
	}
}

// AddNode lazily allocates row idx if needed, then appends one non-zero
// to it. field defaults to 0 for LR/FM callers.
func (b *Batch) AddNode(row int, featID uint32, value float32, field uint32) {
	if b.Rows[row] == nil {
		b.Rows[row] = NewSparseRow()
	}
	b.Rows[row].Add(field, featID, value)
}

// MaxFeat returns the largest feature id observed across all rows.
func (b *Batch) MaxFeat() uint32 {
	var m uint32
	for _, r := range b.Rows {
		if f := r.MaxFeat(); f > m {
			m = f
		}
	}
	return m
}

// MaxField returns the largest field id observed across all rows.
func (b *Batch) MaxField() uint32 {
	var m uint32
	for _, r := range b.Rows {
		if f := r.MaxField(); f > m {
			m = f
		}
	}
	return m
}

// SetHash records the two file fingerprints identifying the source text
// file this Batch was parsed from.
func (b *Batch) SetHash(h1, h2 uint64) {
	b.Hash1, b.Hash2 = h1, h2
}

// CopyFrom replaces the receiver's contents with a deep copy of other.
func (b *Batch) CopyFrom(other *Batch) {
	b.RowLength = other.RowLength
	b.HasLabel = other.HasLabel
	b.Pos = other.Pos
	b.Hash1, b.Hash2 = other.Hash1, other.Hash2
	b.Rows = make([]*SparseRow, len(other.Rows))
	for i, r := range other.Rows {
		b.Rows[i] = r.Clone()
	}
	b.Y = append([]float32(nil), other.Y...)
	b.Norm = append([]float32(nil), other.Norm...)
}

// GetMiniBatch consumes at most k rows starting at Pos into out, which is
// reused across calls (pre-allocated by the caller). Rows are shared by
// reference, not duplicated. Returns the number of rows actually copied.
func (b *Batch) GetMiniBatch(k int, out *Batch) int {
	remain := int(b.RowLength) - int(b.Pos)
	if remain <= 0 {
		out.Reset(0, b.HasLabel)
		return 0
	}
	if k > remain {
		k = remain
	}
	out.RowLength = uint32(k)
	out.HasLabel = b.HasLabel
	out.Hash1, out.Hash2 = b.Hash1, b.Hash2
	out.Rows = b.Rows[b.Pos : b.Pos+uint32(k)]
	out.Y = b.Y[b.Pos : b.Pos+uint32(k)]
	out.Norm = b.Norm[b.Pos : b.Pos+uint32(k)]
	out.Pos = 0
	b.Pos += uint32(k)
	return k
}

// ResetCursor returns Pos to the start of the Batch, ready for another
// sequence of GetMiniBatch calls.
func (b *Batch) ResetCursor() {
	b.Pos = 0
}

// Serialize writes the Batch to path in the binary cache layout (spec §6):
//
//	u64 hash_1
//	u64 hash_2
//	u32 row_length
//	for each row: length-prefixed Node sequence (u64 node count n, then n Nodes)
//	length-prefixed f32 vector Y
//	length-prefixed f32 vector norm
//	bool has_label
//	u32 pos
func (b *Batch) Serialize(path string) (err error) {
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
	if err = binary.Write(w, binary.LittleEndian, b.Hash1); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	if err = binary.Write(w, binary.LittleEndian, b.Hash2); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	if err = binary.Write(w, binary.LittleEndian, b.RowLength); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	for _, r := range b.Rows {
		n := r.Len()
		if err = binary.Write(w, binary.LittleEndian, uint64(n)); err != nil {
			return Wrapper(ErrIO, err.Error())
		}
		if r != nil {
			for _, nd := range r.Nodes {
				if err = binary.Write(w, binary.LittleEndian, nd); err != nil {
					return Wrapper(ErrIO, err.Error())
				}
			}
		}
	}
	if err = writeF32Vec(w, b.Y); err != nil {
		return err
	}
	if err = writeF32Vec(w, b.Norm); err != nil {
		return err
	}
	if err = binary.Write(w, binary.LittleEndian, b.HasLabel); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	if err = binary.Write(w, binary.LittleEndian, b.Pos); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	return w.Flush()
}

// Deserialize populates the Batch by reading the binary cache layout
// written by Serialize.
func (b *Batch) Deserialize(path string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = Wrapper(ErrIO, cerr.Error())
		}
	}()
	r := bufio.NewReader(f)
	return b.readFrom(r)
}

func (b *Batch) readFrom(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &b.Hash1); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	if err := binary.Read(r, binary.LittleEndian, &b.Hash2); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	if err := binary.Read(r, binary.LittleEndian, &b.RowLength); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	b.Rows = make([]*SparseRow, b.RowLength)
	for i := range b.Rows {
		var n uint64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Wrapper(ErrIO, err.Error())
		}
		row := &SparseRow{Nodes: make([]Node, n)}
		for j := uint64(0); j < n; j++ {
			if err := binary.Read(r, binary.LittleEndian, &row.Nodes[j]); err != nil {
				return Wrapper(ErrIO, err.Error())
			}
		}
		b.Rows[i] = row
	}
	var err error
	if b.Y, err = readF32Vec(r); err != nil {
		return err
	}
	if b.Norm, err = readF32Vec(r); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &b.HasLabel); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	if err := binary.Read(r, binary.LittleEndian, &b.Pos); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	return nil
}

func writeF32Vec(w io.Writer, v []float32) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(v))); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	return nil
}

func readF32Vec(r io.Reader) ([]float32, error) {
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

// Compress renumbers feature ids densely 1..n using the sorted set of
// observed ids and returns the sorted feature list used to do so. It is
// part of the Batch contract for distributed shards (spec §4.A) and is
// not used by the single-node training path.
func (b *Batch) Compress() (outFeatureList []uint32) {
	seen := make(map[uint32]struct{})
	for _, r := range b.Rows {
		if r == nil {
			continue
		}
		for _, n := range r.Nodes {
			seen[n.FeatID] = struct{}{}
		}
	}
	outFeatureList = make([]uint32, 0, len(seen))
	for id := range seen {
		outFeatureList = append(outFeatureList, id)
	}
	sort.Slice(outFeatureList, func(i, j int) bool { return outFeatureList[i] < outFeatureList[j] })

	remap := make(map[uint32]uint32, len(outFeatureList))
	for i, id := range outFeatureList {
		remap[id] = uint32(i + 1)
	}
	for _, r := range b.Rows {
		if r == nil {
			continue
		}
		for i := range r.Nodes {
			r.Nodes[i].FeatID = remap[r.Nodes[i].FeatID]
		}
	}
	return outFeatureList
}
