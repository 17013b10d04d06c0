package xlearn

// node.go implements the sparse data model's single non-zero entry and the
// ordered row it belongs to (spec.md §3, §4.A).

// Node is one non-zero of a sparse row. FieldID is 0 for LR and FM rows;
// only FFM rows populate it with the field the feature belongs to.
type Node struct {
	FieldID uint32
	FeatID  uint32
	Value   float32
}

// SparseRow is an ordered sequence of Nodes for a single instance.
// Iteration order matches the order nodes were appended, which in turn
// matches the source-file field order.
type SparseRow struct {
	Nodes []Node
}

// NewSparseRow returns an empty row ready for appends.
func NewSparseRow() *SparseRow {
	return &SparseRow{}
}

// Add appends one non-zero to the row.
func (r *SparseRow) Add(fieldID, featID uint32, value float32) {
	r.Nodes = append(r.Nodes, Node{FieldID: fieldID, FeatID: featID, Value: value})
}

// Len returns the number of non-zeros in the row.
func (r *SparseRow) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Nodes)
}

// MaxFeat returns the largest FeatID seen in the row, or 0 if empty.
func (r *SparseRow) MaxFeat() uint32 {
	var m uint32
	for _, n := range r.Nodes {
		if n.FeatID > m {
			m = n.FeatID
		}
	}
	return m
}

// MaxField returns the largest FieldID seen in the row, or 0 if empty.
func (r *SparseRow) MaxField() uint32 {
	var m uint32
	for _, n := range r.Nodes {
		if n.FieldID > m {
			m = n.FieldID
		}
	}
	return m
}

// SquaredNorm returns Σ value² over the row's non-zeros.
func (r *SparseRow) SquaredNorm() float64 {
	var s float64
	for _, n := range r.Nodes {
		v := float64(n.Value)
		s += v * v
	}
	return s
}

// Clone returns a deep copy of the row.
func (r *SparseRow) Clone() *SparseRow {
	if r == nil {
		return nil
	}
	out := &SparseRow{Nodes: make([]Node, len(r.Nodes))}
	copy(out.Nodes, r.Nodes)
	return out
}
