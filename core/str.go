package core

import "unicode/utf8"

// Str is the heap-resident UTF-8 string container (spec.md §4.4). len
// counts code points, not bytes (spec.md §8.2 boundary behavior).
type Str struct {
	s string
}

func NewStr(s string) *Str { return &Str{s: s} }

func (s *Str) String() string   { return s.s }
func (s *Str) typeName() string { return "str" }
func (s *Str) truthy(h *Heap) bool { return len(s.s) > 0 }
func (s *Str) length() (int, bool) { return utf8.RuneCountInString(s.s), true }
func (s *Str) children(dst []HeapID) []HeapID { return dst }
func (s *Str) immutable() bool { return true }

// Runes returns the code points of s as a slice, used by indexing,
// slicing and iteration (all of which are code-point, not byte, based).
func (s *Str) Runes() []rune { return []rune(s.s) }
