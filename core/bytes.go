package core

// Bytes is the heap-resident opaque byte-vector container.
type Bytes struct {
	b []byte
}

func NewBytes(b []byte) *Bytes {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Bytes{b: cp}
}

func (b *Bytes) Data() []byte                    { return b.b }
func (b *Bytes) typeName() string                { return "bytes" }
func (b *Bytes) truthy(h *Heap) bool              { return len(b.b) > 0 }
func (b *Bytes) length() (int, bool)              { return len(b.b), true }
func (b *Bytes) children(dst []HeapID) []HeapID   { return dst }
func (b *Bytes) immutable() bool                  { return true }
