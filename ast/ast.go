// Package ast defines the prepared-AST node set the evaluator walks.
// Node shapes follow spec.md §3.2/§3.6/§4.6; since the originating Rust
// sources for expression/signature nodes were not part of the retrieval
// pack, the concrete node set here is designed fresh, informed by every
// ident.scope/ident.namespace_id/heap_id usage observed in
// crates/monty/src/{namespace,function,callable,snapshot}.rs and by the
// teacher's own AST idiom in grammar_ast.go (a closed node-kind set, one
// struct per shape, dispatched by a switch in the evaluator rather than
// by a visitor interface per node).
package ast

import "github.com/montylang/monty/intern"

// NameScope determines which namespace a name occurrence is resolved
// against at runtime (spec.md §3.2).
type NameScope uint8

const (
	ScopeLocal NameScope = iota
	ScopeGlobal
	ScopeCell
)

// Identifier is a resolved name occurrence (spec.md §3.2): which string it
// names, which namespace rule applies, and its slot within that scope's
// namespace vector.
type Identifier struct {
	NameID intern.ID
	Scope  NameScope
	Slot   int
	Pos    Span
}

// Expr is the closed set of expression node shapes. Implementations are
// unexported-method-tagged so the set cannot grow outside this package.
type Expr interface {
	exprNode()
	Position() Span
}

// LitKind discriminates Lit payloads.
type LitKind uint8

const (
	LitNone LitKind = iota
	LitEllipsis
	LitBool
	LitInt
	LitFloat
	LitStr
	LitBytes
)

// Lit is a literal expression. String/bytes literals carry the interned
// source text id (spec.md §4.6 "Literal... interned for strings/bytes");
// the evaluator allocates a fresh heap payload from it on each
// evaluation, since heap Str/Bytes slots are independently refcounted.
type Lit struct {
	Kind LitKind
	I    int64
	F    float64
	S    intern.ID
	B    intern.BytesID
	Pos  Span
}

func (*Lit) exprNode()        {}
func (l *Lit) Position() Span { return l.Pos }

// Name reads a resolved identifier.
type Name struct {
	Ident Identifier
	Pos   Span
}

func (*Name) exprNode()        {}
func (n *Name) Position() Span { return n.Pos }

// BinOpKind is the closed set of binary arithmetic/bitwise operators.
type BinOpKind uint8

const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpMod
	OpDiv
	OpFloorDiv
)

// BinOp evaluates both operands, then dispatches on Op (spec.md §4.6
// "Binary op").
type BinOp struct {
	Op          BinOpKind
	Left, Right Expr
	Pos         Span
}

func (*BinOp) exprNode()        {}
func (b *BinOp) Position() Span { return b.Pos }

// BoolOpKind distinguishes `and`/`or`, which short-circuit and return the
// chosen operand rather than a coerced bool (spec.md §4.6).
type BoolOpKind uint8

const (
	BoolAnd BoolOpKind = iota
	BoolOr
)

type BoolOp struct {
	Op          BoolOpKind
	Left, Right Expr
	Pos         Span
}

func (*BoolOp) exprNode()        {}
func (b *BoolOp) Position() Span { return b.Pos }

// CmpOpKind is the closed set of comparison operators. Chained
// comparisons are not supported (spec.md §4.6).
type CmpOpKind uint8

const (
	CmpEq CmpOpKind = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
	CmpIn
	CmpNotIn
	CmpIs
	CmpIsNot
)

type Compare struct {
	Op          CmpOpKind
	Left, Right Expr
	Pos         Span
}

func (*Compare) exprNode()        {}
func (c *Compare) Position() Span { return c.Pos }

// UnaryOpKind is the closed set of unary operators.
type UnaryOpKind uint8

const (
	UnaryNot UnaryOpKind = iota
	UnaryNeg
)

type UnaryOp struct {
	Op      UnaryOpKind
	Operand Expr
	Pos     Span
}

func (*UnaryOp) exprNode()        {}
func (u *UnaryOp) Position() Span { return u.Pos }

// Call dispatches on the callable's runtime variant: builtin, plain
// function, closure, function-with-defaults, or external (spec.md §4.6).
type Call struct {
	Callable Expr
	Args     []Expr
	Pos      Span
}

func (*Call) exprNode()        {}
func (c *Call) Position() Span { return c.Pos }

// AttrCall dispatches a method call on Recv's method table by interned
// method id (spec.md §4.6 "Attribute call").
type AttrCall struct {
	Recv   Expr
	Method intern.ID
	Args   []Expr
	Pos    Span
}

func (*AttrCall) exprNode()        {}
func (a *AttrCall) Position() Span { return a.Pos }

// Subscript dispatches getitem on Recv with Index.
type Subscript struct {
	Recv, Index Expr
	Pos         Span
}

func (*Subscript) exprNode()        {}
func (s *Subscript) Position() Span { return s.Pos }

// ListLit, TupleLit evaluate elements left-to-right into a fresh
// container.
type ListLit struct {
	Elems []Expr
	Pos   Span
}

func (*ListLit) exprNode()        {}
func (l *ListLit) Position() Span { return l.Pos }

type TupleLit struct {
	Elems []Expr
	Pos   Span
}

func (*TupleLit) exprNode()        {}
func (t *TupleLit) Position() Span { return t.Pos }

// DictPair is one key/value pair of a DictLit, evaluated key-then-value
// left to right; later keys overwrite earlier ones (spec.md §4.6).
type DictPair struct {
	Key, Value Expr
}

type DictLit struct {
	Pairs []DictPair
	Pos   Span
}

func (*DictLit) exprNode()        {}
func (d *DictLit) Position() Span { return d.Pos }

type SetLit struct {
	Elems []Expr
	Pos   Span
}

func (*SetLit) exprNode()        {}
func (s *SetLit) Position() Span { return s.Pos }

// FStringPart is either a literal text segment or an embedded expression
// with an optional format spec (spec.md §4.6 "f-string").
type FStringPart struct {
	Lit    string // non-empty only for literal segments
	Expr   Expr   // non-nil only for expression segments
	Format string // optional format spec, applies to Expr segments
}

type FString struct {
	Parts []FStringPart
	Pos   Span
}

func (*FString) exprNode()        {}
func (f *FString) Position() Span { return f.Pos }

// CondExpr is the ternary `Then if Test else Else` form (spec.md §8.3
// scenario 4 uses it directly: "n if n <= 1 else fib(n-1)+fib(n-2)").
type CondExpr struct {
	Test, Then, Else Expr
	Pos              Span
}

func (*CondExpr) exprNode()        {}
func (c *CondExpr) Position() Span { return c.Pos }

// ListComp builds a list from Elem evaluated once per Iter item bound to
// Target, filtered by the optional If clause (spec.md §8.3 scenario 4:
// "[fib(i) for i in range(10)]"). The comprehension variable shares its
// enclosing function's namespace exactly like a for-loop target, rather
// than getting Python 3's own implicit scope — this subset has no nested
// function scopes to spare for it. A ListComp also has no ClauseState of
// its own, so an external call inside Elem/If cannot suspend and resume;
// it is simply rejected, the same simplification the non-resumable
// sorted()/map() builtins make for their function arguments.
type ListComp struct {
	Elem   Expr
	Target Target
	Iter   Expr
	If     Expr
	Pos    Span
}

func (*ListComp) exprNode()        {}
func (l *ListComp) Position() Span { return l.Pos }

// Stmt is the closed set of statement node shapes.
type Stmt interface {
	stmtNode()
	Position() Span
}

// Target is the closed set of assignable expression shapes: a Name or a
// Subscript. There is no attribute-assignment target since this language
// subset has no class definitions (spec.md §1 Non-goals).
type Target interface {
	Expr
	targetNode()
}

func (*Name) targetNode()      {}
func (*Subscript) targetNode() {}

// Assign is simple or multi-target assignment (spec.md §4.6).
type Assign struct {
	Targets []Target
	Value   Expr
	Pos     Span
}

func (*Assign) stmtNode()        {}
func (a *Assign) Position() Span { return a.Pos }

// AugAssign is `target op= value`. The evaluator prefers iadd where
// supported (spec.md §4.6 "Ownership discipline").
type AugAssign struct {
	Target Target
	Op     BinOpKind
	Value  Expr
	Pos    Span
}

func (*AugAssign) stmtNode()        {}
func (a *AugAssign) Position() Span { return a.Pos }

type If struct {
	Test Expr
	Then []Stmt
	Else []Stmt // elif chains are represented as a single If in Else
	Pos  Span
}

func (*If) stmtNode()        {}
func (i *If) Position() Span { return i.Pos }

type While struct {
	Test Expr
	Body []Stmt
	Else []Stmt
	Pos  Span
}

func (*While) stmtNode()        {}
func (w *While) Position() Span { return w.Pos }

// For iterates over Iter's iterator protocol, binding each item to
// Target; Else runs only if the loop completes without `break` (spec.md
// §4.6 "for (iterator loop with else)").
type For struct {
	Target Target
	Iter   Expr
	Body   []Stmt
	Else   []Stmt
	Pos    Span
}

func (*For) stmtNode()        {}
func (f *For) Position() Span { return f.Pos }

type Break struct{ Pos Span }

func (*Break) stmtNode()        {}
func (b *Break) Position() Span { return b.Pos }

type Continue struct{ Pos Span }

func (*Continue) stmtNode()        {}
func (c *Continue) Position() Span { return c.Pos }

// Return's Value is nil for a bare `return`.
type Return struct {
	Value Expr
	Pos   Span
}

func (*Return) stmtNode()        {}
func (r *Return) Position() Span { return r.Pos }

// Raise's Exc is nil for a bare re-raise of the currently-handled
// exception (spec.md §4.6).
type Raise struct {
	Exc Expr
	Pos Span
}

func (*Raise) stmtNode()        {}
func (r *Raise) Position() Span { return r.Pos }

// ExceptHandler matches a try body's exception by an explicit type set
// (empty Types matches anything, a bare `except:`); Name binds the
// caught exception if non-empty.
type ExceptHandler struct {
	Types []intern.ID
	Name  Identifier
	Bind  bool
	Body  []Stmt
}

// Try implements try/except/else/finally (spec.md §4.6, §4.7 TryPhase).
type Try struct {
	Body     []Stmt
	Handlers []ExceptHandler
	Else     []Stmt
	Finally  []Stmt
	Pos      Span
}

func (*Try) stmtNode()        {}
func (t *Try) Position() Span { return t.Pos }

type Pass struct{ Pos Span }

func (*Pass) stmtNode()        {}
func (p *Pass) Position() Span { return p.Pos }

type ExprStmt struct {
	X   Expr
	Pos Span
}

func (*ExprStmt) stmtNode()        {}
func (e *ExprStmt) Position() Span { return e.Pos }

// FuncDef materializes a closure or defaults record on the heap when
// needed, then binds the function's name (spec.md §4.6). Target is the
// slot the def binds, already scope-resolved.
type FuncDef struct {
	Target Identifier
	Fn     *Function
	Pos    Span
}

func (*FuncDef) stmtNode()        {}
func (f *FuncDef) Position() Span { return f.Pos }

// Function is a compiled function record (spec.md §3.6): name, signature,
// prepared body, namespace layout, and the slots captured as free
// variables. Namespace layout is fixed at preparation time:
//
//	[ parameters | cell slots | free slots | locals ]
type Function struct {
	Name          intern.ID
	ParamNames    []intern.ID
	Defaults      []Expr // default-value expressions, one per trailing optional param
	NumCellVars   int
	FreeVars      []Identifier // enclosing-scope slots captured from, in declaration order
	NamespaceSize int
	Body          []Stmt
	Pos           Span
}

// NumParams is len(ParamNames).
func (f *Function) NumParams() int { return len(f.ParamNames) }

// RequiresClosure reports whether this function needs a heap-allocated
// Closure (it captures free variables) as opposed to, at most, a
// FuncDefaults record (spec.md §3.6).
func (f *Function) RequiresClosure() bool { return len(f.FreeVars) > 0 }
