package xlearn

import (
	"bufio"
	"io"
	"math/rand"
	"os"
	"strings"
)

// reader.go implements the three Reader variants that stream Batches from
// a text file, a binary cache, or an in-memory Batch (spec §4.C).

// Reader streams Batches for one epoch at a time. Its internal cursor is
// not re-entrant — it is owned by the driver (spec §5 "Readers are owned
// by the driver; their internal cursors are not re-entrant").
type Reader interface {
	// Init opens/loads the underlying data. Must be called once before
	// the first NextBatch.
	Init() error
	// NextBatch fills out with the next chunk of rows and returns true,
	// or returns false once the epoch is exhausted.
	NextBatch(out *Batch) bool
	// Reset rewinds to the start of the data (and, for InMemoryReader,
	// reshuffles) for the next epoch.
	Reset() error
	// Close releases any held file handles.
	Close() error
}

// --- InMemoryReader -------------------------------------------------

// InMemoryReader loads the whole Batch once, then on each NextBatch call
// returns a window into a fixed-size permutation of its rows. Shuffling
// is on by default and reseedable (spec §4.C item 1).
type InMemoryReader struct {
	Path      string
	BatchSize int
	Shuffle   bool
	Normalize bool
	Seed      int64

	full *Batch
	perm []int
	pos  int
	rng  *rand.Rand
}

// NewInMemoryReader returns a reader over path with the given mini-batch
// size. Shuffling defaults to on.
func NewInMemoryReader(path string, batchSize int, normalize bool) *InMemoryReader {
	return &InMemoryReader{Path: path, BatchSize: batchSize, Shuffle: true, Normalize: normalize}
}

func (r *InMemoryReader) Init() error {
	full, err := loadOrParseFile(r.Path, r.Normalize)
	if err != nil {
		return err
	}
	r.full = full
	r.rng = rand.New(rand.NewSource(r.Seed))
	r.perm = identityPerm(int(full.RowLength))
	if r.Shuffle {
		r.rng.Shuffle(len(r.perm), func(i, j int) { r.perm[i], r.perm[j] = r.perm[j], r.perm[i] })
	}
	r.pos = 0
	return nil
}

func identityPerm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

func (r *InMemoryReader) NextBatch(out *Batch) bool {
	remain := len(r.perm) - r.pos
	if remain <= 0 {
		return false
	}
	n := r.BatchSize
	if n <= 0 || n > remain {
		n = remain
	}
	out.Reset(uint32(n), r.full.HasLabel)
	out.Hash1, out.Hash2 = r.full.Hash1, r.full.Hash2
	for i := 0; i < n; i++ {
		src := r.perm[r.pos+i]
		out.Rows[i] = r.full.Rows[src]
		out.Y[i] = r.full.Y[src]
		out.Norm[i] = r.full.Norm[src]
	}
	r.pos += n
	return true
}

func (r *InMemoryReader) Reset() error {
	r.pos = 0
	if r.Shuffle {
		r.rng.Shuffle(len(r.perm), func(i, j int) { r.perm[i], r.perm[j] = r.perm[j], r.perm[i] })
	}
	return nil
}

func (r *InMemoryReader) Close() error { return nil }

// Rows returns the number of rows in the underlying Batch.
func (r *InMemoryReader) Rows() int { return int(r.full.RowLength) }

// --- FromMatrixReader ------------------------------------------------

// FromMatrixReader wraps a caller-supplied Batch (used by language
// bindings); otherwise it behaves like InMemoryReader (spec §4.C item 3).
type FromMatrixReader struct {
	BatchSize int
	Shuffle   bool

	full *Batch
	perm []int
	pos  int
	rng  *rand.Rand
}

// NewFromMatrixReader wraps batch for streaming without re-parsing it.
func NewFromMatrixReader(batch *Batch, batchSize int) *FromMatrixReader {
	return &FromMatrixReader{BatchSize: batchSize, Shuffle: true, full: batch}
}

func (r *FromMatrixReader) Init() error {
	r.rng = rand.New(rand.NewSource(0))
	r.perm = identityPerm(int(r.full.RowLength))
	if r.Shuffle {
		r.rng.Shuffle(len(r.perm), func(i, j int) { r.perm[i], r.perm[j] = r.perm[j], r.perm[i] })
	}
	r.pos = 0
	return nil
}

func (r *FromMatrixReader) NextBatch(out *Batch) bool {
	remain := len(r.perm) - r.pos
	if remain <= 0 {
		return false
	}
	n := r.BatchSize
	if n <= 0 || n > remain {
		n = remain
	}
	out.Reset(uint32(n), r.full.HasLabel)
	for i := 0; i < n; i++ {
		src := r.perm[r.pos+i]
		out.Rows[i] = r.full.Rows[src]
		out.Y[i] = r.full.Y[src]
		out.Norm[i] = r.full.Norm[src]
	}
	r.pos += n
	return true
}

func (r *FromMatrixReader) Reset() error {
	r.pos = 0
	if r.Shuffle {
		r.rng.Shuffle(len(r.perm), func(i, j int) { r.perm[i], r.perm[j] = r.perm[j], r.perm[i] })
	}
	return nil
}

func (r *FromMatrixReader) Close() error { return nil }

// --- OnDiskReader ------------------------------------------------

// OnDiskReader streams Batches from a text file in bounded memory,
// blockSizeMB at a time. Shuffling is not supported (spec §4.C item 2).
type OnDiskReader struct {
	Path        string
	BlockSizeMB int
	Normalize   bool

	f      *os.File
	format FileFormat
	sep    byte
	hasLabel bool
	buf    []byte
}

// NewOnDiskReader returns a reader streaming path in blockSizeMB MiB
// chunks.
func NewOnDiskReader(path string, blockSizeMB int, normalize bool) *OnDiskReader {
	return &OnDiskReader{Path: path, BlockSizeMB: blockSizeMB, Normalize: normalize}
}

func (r *OnDiskReader) Init() error {
	f, err := os.Open(r.Path)
	if err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	r.f = f

	br := bufio.NewReader(f)
	firstLine, rerr := br.ReadString('\n')
	if rerr != nil && rerr != io.EOF {
		return Wrapper(ErrIO, rerr.Error())
	}
	if firstLine == "" {
		return Wrapper(ErrConfig, "empty input file")
	}
	sep, hasLabel, format, serr := SniffFormat(firstLine)
	if serr != nil {
		return serr
	}
	r.sep, r.hasLabel, r.format = sep, hasLabel, format

	if _, err := r.f.Seek(0, io.SeekStart); err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	r.buf = make([]byte, r.BlockSizeMB*1024*1024)
	return nil
}

func (r *OnDiskReader) NextBatch(out *Batch) bool {
	n, err := io.ReadFull(r.f, r.buf)
	if n == 0 {
		return false
	}
	filledFull := err == nil
	block := r.buf[:n]
	if filledFull {
		// Trim to the last newline and seek back past it, per §4.C's
		// block-trim step.
		last := lastIndexByte(block, '\n')
		if last < 0 {
			return false
		}
		trimmed := n - (last + 1)
		block = block[:last+1]
		if _, serr := r.f.Seek(-int64(trimmed), io.SeekCurrent); serr != nil {
			return false
		}
	}
	b, perr := ParseBlock(block, r.format, r.sep, r.hasLabel, r.Normalize)
	if perr != nil {
		return false
	}
	*out = *b
	return true
}

func lastIndexByte(b []byte, c byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == c {
			return i
		}
	}
	return -1
}

func (r *OnDiskReader) Reset() error {
	_, err := r.f.Seek(0, io.SeekStart)
	if err != nil {
		return Wrapper(ErrIO, err.Error())
	}
	return nil
}

func (r *OnDiskReader) Close() error {
	if r.f == nil {
		return nil
	}
	return r.f.Close()
}

// --- binary cache --------------------------------------------------

// loadOrParseFile implements the binary-cache logic of spec §4.C: after
// the first full in-memory read the populated Batch is serialised next
// to the source as "<source>.bin", prefixed by hash1 then hash2; on
// subsequent runs, if both fingerprints match, the binary is read
// directly and text parsing is skipped.
func loadOrParseFile(path string, normalize bool) (*Batch, error) {
	h1, h2, err := FileFingerprint(path)
	if err != nil {
		return nil, err
	}
	cachePath := path + ".bin"
	if cached, ok := tryLoadCache(cachePath, h1, h2); ok {
		return cached, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, Wrapper(ErrIO, err.Error())
	}
	firstLine := raw
	if idx := strings.IndexByte(string(raw), '\n'); idx >= 0 {
		firstLine = raw[:idx+1]
	}
	if len(firstLine) == 0 {
		return nil, Wrapper(ErrConfig, "empty input file")
	}
	sep, hasLabel, format, err := SniffFormat(string(firstLine))
	if err != nil {
		return nil, err
	}
	b, err := ParseBlock(raw, format, sep, hasLabel, normalize)
	if err != nil {
		return nil, err
	}
	b.SetHash(h1, h2)
	_ = b.Serialize(cachePath) // cache write failure is non-fatal
	return b, nil
}

func tryLoadCache(cachePath string, h1, h2 uint64) (*Batch, bool) {
	f, err := os.Open(cachePath)
	if err != nil {
		return nil, false
	}
	defer f.Close()
	br := bufio.NewReader(f)
	b := NewBatch()
	if err := b.readFrom(br); err != nil {
		return nil, false
	}
	if b.Hash1 != h1 || b.Hash2 != h2 {
		return nil, false
	}
	return b, true
}
