// Package intern deduplicates strings into small integer IDs and pre-seeds
// a fixed table of attribute names and single-byte strings so that method
// dispatch on strings and containers can be an integer comparison instead
// of a string comparison.
package intern

// ID identifies an interned string or byte string.
type ID int32

// ModuleID is the pre-seeded ID of "<module>", reserved as ID 0.
const ModuleID ID = 0

// MethodNames is the fixed, order-significant list of method names
// pre-seeded after ModuleID. Their IDs are MethodNames[i] -> ID(1+i).
// The order is part of the interpreter's ABI: callers may hardcode the
// resulting IDs as constants (see the Method* constants below).
var MethodNames = []string{
	"append", "insert", "get", "keys", "values", "items", "pop", "clear",
	"copy", "add", "remove", "discard", "update", "union", "intersection",
	"difference", "symmetric_difference", "issubset", "issuperset",
	"isdisjoint", "join", "lower", "upper", "capitalize", "title",
	"swapcase", "casefold", "isalpha", "isdigit", "isalnum", "isnumeric",
	"isspace", "islower", "isupper", "isascii", "isdecimal", "find",
	"rfind", "index", "rindex", "count", "startswith", "endswith", "strip",
	"lstrip", "rstrip", "removeprefix", "removesuffix", "split", "rsplit",
	"splitlines", "partition", "rpartition", "replace", "center", "ljust",
	"rjust", "zfill", "encode", "isidentifier", "istitle",
}

// Method IDs, hardcoded against the MethodNames order above.
const (
	MethodAppend ID = ID(1 + iota)
	MethodInsert
	MethodGet
	MethodKeys
	MethodValues
	MethodItems
	MethodPop
	MethodClear
	MethodCopy
	MethodAdd
	MethodRemove
	MethodDiscard
	MethodUpdate
	MethodUnion
	MethodIntersection
	MethodDifference
	MethodSymmetricDifference
	MethodIssubset
	MethodIssuperset
	MethodIsdisjoint
	MethodJoin
	MethodLower
	MethodUpper
	MethodCapitalize
	MethodTitle
	MethodSwapcase
	MethodCasefold
	MethodIsalpha
	MethodIsdigit
	MethodIsalnum
	MethodIsnumeric
	MethodIsspace
	MethodIslower
	MethodIsupper
	MethodIsascii
	MethodIsdecimal
	MethodFind
	MethodRfind
	MethodIndex
	MethodRindex
	MethodCount
	MethodStartswith
	MethodEndswith
	MethodStrip
	MethodLstrip
	MethodRstrip
	MethodRemoveprefix
	MethodRemovesuffix
	MethodSplit
	MethodRsplit
	MethodSplitlines
	MethodPartition
	MethodRpartition
	MethodReplace
	MethodCenter
	MethodLjust
	MethodRjust
	MethodZfill
	MethodEncode
	MethodIsidentifier
	MethodIstitle
)

// EmptyStringID is the pre-seeded ID of the empty string, right after the
// method name block.
var EmptyStringID = ID(1 + len(MethodNames))

// singleByteBase is the ID of the single-character string for byte 0.
var singleByteBase = EmptyStringID + 1

// SingleByteID returns the pre-seeded ID of the one-character string for
// the given ASCII byte (0..127).
func SingleByteID(b byte) ID {
	return singleByteBase + ID(b)
}

// BytesID indexes the separate, non-deduplicating byte-string vector.
// It occupies its own ID space: BytesID(0) and ID(0) name unrelated
// entries, matching spec.md's "two flat vectors indexed by small
// integers: strings and bytes".
type BytesID int32

// Table interns strings (deduplicated) and byte strings (not deduplicated),
// with the fixed ID block above pre-seeded at construction.
type Table struct {
	strings []string
	index   map[string]ID
	bytes   [][]byte
}

// New returns a Table with the pre-seeded block already populated.
func New() *Table {
	t := &Table{
		index: make(map[string]ID, len(MethodNames)+130),
	}
	t.seed(ModuleID, "<module>")
	for i, name := range MethodNames {
		t.seed(ID(1+i), name)
	}
	t.seed(EmptyStringID, "")
	for b := 0; b < 128; b++ {
		t.seed(SingleByteID(byte(b)), string([]byte{byte(b)}))
	}
	return t
}

func (t *Table) seed(id ID, s string) {
	for ID(len(t.strings)) <= id {
		t.strings = append(t.strings, "")
	}
	t.strings[id] = s
	t.index[s] = id
}

// Intern deduplicates s, returning its existing ID or allocating a new one.
func (t *Table) Intern(s string) ID {
	if id, ok := t.index[s]; ok {
		return id
	}
	id := ID(len(t.strings))
	t.strings = append(t.strings, s)
	t.index[s] = id
	return id
}

// InternBytes allocates a new BytesID for b without deduplication.
func (t *Table) InternBytes(b []byte) BytesID {
	id := BytesID(len(t.bytes))
	cp := make([]byte, len(b))
	copy(cp, b)
	t.bytes = append(t.bytes, cp)
	return id
}

// String returns the string previously interned at id.
func (t *Table) String(id ID) string {
	if int(id) < len(t.strings) {
		return t.strings[id]
	}
	return ""
}

// Bytes returns the byte string previously interned at id via InternBytes.
func (t *Table) Bytes(id BytesID) []byte {
	if int(id) >= 0 && int(id) < len(t.bytes) {
		return t.bytes[id]
	}
	return nil
}

// Len returns the number of interned strings (not including byte strings).
func (t *Table) Len() int { return len(t.strings) }
