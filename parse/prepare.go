package parse

import (
	"github.com/montylang/monty/ast"
	"github.com/montylang/monty/intern"
)

// scope resolution (spec.md §3.2, §3.6): a two-pass walk per function
// body (module included, as the outermost "global" scope) that decides,
// for every name occurrence, whether it is a plain local, a captured
// cell, a relayed free variable, or a direct global — and, for each
// function, finalizes its namespace layout
// [ params | cell slots | free slots | locals ] (spec.md §3.4).
//
// Pass 1 (declare) collects every name this scope itself assigns
// (Assign/AugAssign/For targets, bound exception names, def names, and
// comprehension targets reachable through this scope's own expressions)
// without descending into nested function bodies, so that by the time
// pass 2 resolves a Name *read* against this scope, every local this
// scope will ever bind is already known — matching Python's "assigned
// anywhere in the function body, regardless of textual order" rule.
//
// Pass 2 (resolve) walks the same tree again, this time recursing into
// nested defs (each becoming a child scope, resolved completely before
// its enclosing FuncDef statement returns) and recording every
// Identifier occurrence for a final slot-patching pass once this
// scope's own locals/cells/frees are fully known.

type identOcc struct {
	ptr *ast.Identifier
	id  intern.ID
}

type pendingChild struct {
	fn        *ast.Function
	freeOrder []intern.ID
}

const (
	kindGlobalDirect = iota
	kindRelayed
)

type scope struct {
	parent   *scope
	module   *scope
	isGlobal bool
	fn       *ast.Function

	localOrder []intern.ID
	localIdx   map[intern.ID]int
	isParam    map[intern.ID]bool
	isCell     map[intern.ID]bool

	freeOrder []intern.ID
	freeIdx   map[intern.ID]int

	globalDirect map[intern.ID]bool

	idents          []identOcc
	pendingChildren []pendingChild
}

func newModuleScope() *scope {
	s := &scope{
		isGlobal: true,
		localIdx: map[intern.ID]int{}, isParam: map[intern.ID]bool{},
		isCell: map[intern.ID]bool{}, freeIdx: map[intern.ID]int{},
	}
	s.module = s
	return s
}

func newFuncScope(parent *scope, fn *ast.Function) *scope {
	s := &scope{
		parent: parent, module: parent.module, fn: fn,
		localIdx: map[intern.ID]int{}, isParam: map[intern.ID]bool{},
		isCell: map[intern.ID]bool{}, freeIdx: map[intern.ID]int{},
	}
	return s
}

func (s *scope) recordLocalDef(id intern.ID) {
	if _, ok := s.localIdx[id]; ok {
		return
	}
	s.localIdx[id] = len(s.localOrder)
	s.localOrder = append(s.localOrder, id)
}

// recordOcc registers ptr for final slot-patching and, the first time id
// is seen unresolved in a non-global scope, walks the enclosing function
// chain once to classify it as a relayed cell or a direct global.
func (s *scope) recordOcc(ptr *ast.Identifier) {
	id := ptr.NameID
	s.idents = append(s.idents, identOcc{ptr: ptr, id: id})
	if s.isGlobal {
		s.recordLocalDef(id)
		return
	}
	if _, ok := s.localIdx[id]; ok {
		return
	}
	if _, ok := s.freeIdx[id]; ok {
		return
	}
	if s.globalDirect[id] {
		return
	}
	if s.parent.requestFromAncestor(id) == kindGlobalDirect {
		if s.globalDirect == nil {
			s.globalDirect = map[intern.ID]bool{}
		}
		s.globalDirect[id] = true
		return
	}
	s.freeIdx[id] = len(s.freeOrder)
	s.freeOrder = append(s.freeOrder, id)
}

// requestFromAncestor is called by a nested scope that needs id but does
// not own it locally. s either owns id (and must promote it to a cell),
// already relays it from further up, needs to keep searching its own
// parent, or — once the search reaches the module — simply resolves it
// as a direct global with no cell relaying at all.
func (s *scope) requestFromAncestor(id intern.ID) int {
	if s.isGlobal {
		s.recordLocalDef(id)
		return kindGlobalDirect
	}
	if _, ok := s.localIdx[id]; ok {
		s.isCell[id] = true
		return kindRelayed
	}
	if _, ok := s.freeIdx[id]; ok {
		return kindRelayed
	}
	if s.parent.requestFromAncestor(id) == kindGlobalDirect {
		return kindGlobalDirect
	}
	s.freeIdx[id] = len(s.freeOrder)
	s.freeOrder = append(s.freeOrder, id)
	return kindRelayed
}

type resolver struct {
	functions []*ast.Function
}

// resolveModule is the entry point: it resolves the whole program
// (module body plus every nested def, transitively) and returns the
// fully patched Function table in first-resolved order.
func resolveModule(body []ast.Stmt, mod *scope) *resolver {
	r := &resolver{}
	r.declareStmts(mod, body)
	r.resolveStmts(mod, body)
	mod.finalizeGlobal()
	return r
}

// --- pass 1: declare locals ---

func (r *resolver) declareStmts(s *scope, stmts []ast.Stmt) {
	for _, st := range stmts {
		r.declareStmt(s, st)
	}
}

func (r *resolver) declareStmt(s *scope, st ast.Stmt) {
	switch n := st.(type) {
	case *ast.Assign:
		r.declareTargets(s, n.Targets)
		r.declareExpr(s, n.Value)
	case *ast.AugAssign:
		r.declareTargets(s, []ast.Target{n.Target})
		r.declareExpr(s, n.Value)
	case *ast.If:
		r.declareExpr(s, n.Test)
		r.declareStmts(s, n.Then)
		r.declareStmts(s, n.Else)
	case *ast.While:
		r.declareExpr(s, n.Test)
		r.declareStmts(s, n.Body)
		r.declareStmts(s, n.Else)
	case *ast.For:
		r.declareExpr(s, n.Iter)
		r.declareTargets(s, []ast.Target{n.Target})
		r.declareStmts(s, n.Body)
		r.declareStmts(s, n.Else)
	case *ast.Return:
		if n.Value != nil {
			r.declareExpr(s, n.Value)
		}
	case *ast.Raise:
		if n.Exc != nil {
			r.declareExpr(s, n.Exc)
		}
	case *ast.Try:
		r.declareStmts(s, n.Body)
		for i := range n.Handlers {
			h := &n.Handlers[i]
			if h.Bind {
				s.recordLocalDef(h.Name.NameID)
			}
			r.declareStmts(s, h.Body)
		}
		r.declareStmts(s, n.Else)
		r.declareStmts(s, n.Finally)
	case *ast.ExprStmt:
		r.declareExpr(s, n.X)
	case *ast.FuncDef:
		s.recordLocalDef(n.Target.NameID)
		// Default-value expressions are evaluated in this (enclosing)
		// scope at def time, so their comprehension targets (if any)
		// belong to this scope too.
		for _, d := range n.Fn.Defaults {
			r.declareExpr(s, d)
		}
	case *ast.Break, *ast.Continue, *ast.Pass:
	}
}

func (r *resolver) declareTargets(s *scope, targets []ast.Target) {
	for _, t := range targets {
		if n, ok := t.(*ast.Name); ok {
			s.recordLocalDef(n.Ident.NameID)
		}
		// *ast.Subscript targets declare nothing; their Recv/Index are
		// reads, already reachable via declareExpr at call sites that
		// hold the full expression (assign values, conditions, ...).
	}
}

// declareExpr only needs to find ListComp targets; every other
// expression shape carries no locally-declaring construct.
func (r *resolver) declareExpr(s *scope, e ast.Expr) {
	switch n := e.(type) {
	case *ast.BinOp:
		r.declareExpr(s, n.Left)
		r.declareExpr(s, n.Right)
	case *ast.BoolOp:
		r.declareExpr(s, n.Left)
		r.declareExpr(s, n.Right)
	case *ast.Compare:
		r.declareExpr(s, n.Left)
		r.declareExpr(s, n.Right)
	case *ast.UnaryOp:
		r.declareExpr(s, n.Operand)
	case *ast.Call:
		r.declareExpr(s, n.Callable)
		for _, a := range n.Args {
			r.declareExpr(s, a)
		}
	case *ast.AttrCall:
		r.declareExpr(s, n.Recv)
		for _, a := range n.Args {
			r.declareExpr(s, a)
		}
	case *ast.Subscript:
		r.declareExpr(s, n.Recv)
		r.declareExpr(s, n.Index)
	case *ast.ListLit:
		for _, el := range n.Elems {
			r.declareExpr(s, el)
		}
	case *ast.TupleLit:
		for _, el := range n.Elems {
			r.declareExpr(s, el)
		}
	case *ast.SetLit:
		for _, el := range n.Elems {
			r.declareExpr(s, el)
		}
	case *ast.DictLit:
		for _, p := range n.Pairs {
			r.declareExpr(s, p.Key)
			r.declareExpr(s, p.Value)
		}
	case *ast.FString:
		for _, p := range n.Parts {
			if p.Expr != nil {
				r.declareExpr(s, p.Expr)
			}
		}
	case *ast.CondExpr:
		r.declareExpr(s, n.Test)
		r.declareExpr(s, n.Then)
		r.declareExpr(s, n.Else)
	case *ast.ListComp:
		r.declareExpr(s, n.Iter)
		r.declareTargets(s, []ast.Target{n.Target})
		if n.If != nil {
			r.declareExpr(s, n.If)
		}
		r.declareExpr(s, n.Elem)
	}
}

// --- pass 2: resolve references, recurse into nested defs ---

func (r *resolver) resolveStmts(s *scope, stmts []ast.Stmt) {
	for _, st := range stmts {
		r.resolveStmt(s, st)
	}
}

func (r *resolver) resolveStmt(s *scope, st ast.Stmt) {
	switch n := st.(type) {
	case *ast.Assign:
		r.resolveExpr(s, n.Value)
		r.resolveTargets(s, n.Targets)
	case *ast.AugAssign:
		r.resolveTargets(s, []ast.Target{n.Target})
		r.resolveExpr(s, n.Value)
	case *ast.If:
		r.resolveExpr(s, n.Test)
		r.resolveStmts(s, n.Then)
		r.resolveStmts(s, n.Else)
	case *ast.While:
		r.resolveExpr(s, n.Test)
		r.resolveStmts(s, n.Body)
		r.resolveStmts(s, n.Else)
	case *ast.For:
		r.resolveExpr(s, n.Iter)
		r.resolveTargets(s, []ast.Target{n.Target})
		r.resolveStmts(s, n.Body)
		r.resolveStmts(s, n.Else)
	case *ast.Return:
		if n.Value != nil {
			r.resolveExpr(s, n.Value)
		}
	case *ast.Raise:
		if n.Exc != nil {
			r.resolveExpr(s, n.Exc)
		}
	case *ast.Try:
		r.resolveStmts(s, n.Body)
		for i := range n.Handlers {
			h := &n.Handlers[i]
			if h.Bind {
				s.recordOcc(&h.Name)
			}
			r.resolveStmts(s, h.Body)
		}
		r.resolveStmts(s, n.Else)
		r.resolveStmts(s, n.Finally)
	case *ast.ExprStmt:
		r.resolveExpr(s, n.X)
	case *ast.FuncDef:
		for _, d := range n.Fn.Defaults {
			r.resolveExpr(s, d)
		}
		s.recordOcc(&n.Target)
		child := newFuncScope(s, n.Fn)
		for _, pid := range n.Fn.ParamNames {
			child.recordLocalDef(pid)
			child.isParam[pid] = true
		}
		r.declareStmts(child, n.Fn.Body)
		r.resolveStmts(child, n.Fn.Body)
		child.finalizeFunction()
		s.pendingChildren = append(s.pendingChildren, pendingChild{fn: n.Fn, freeOrder: child.freeOrder})
		r.functions = append(r.functions, n.Fn)
	case *ast.Break, *ast.Continue, *ast.Pass:
	}
}

func (r *resolver) resolveTargets(s *scope, targets []ast.Target) {
	for _, t := range targets {
		switch tt := t.(type) {
		case *ast.Name:
			s.recordOcc(&tt.Ident)
		case *ast.Subscript:
			r.resolveExpr(s, tt.Recv)
			r.resolveExpr(s, tt.Index)
		}
	}
}

func (r *resolver) resolveExpr(s *scope, e ast.Expr) {
	switch n := e.(type) {
	case *ast.Lit:
	case *ast.Name:
		s.recordOcc(&n.Ident)
	case *ast.BinOp:
		r.resolveExpr(s, n.Left)
		r.resolveExpr(s, n.Right)
	case *ast.BoolOp:
		r.resolveExpr(s, n.Left)
		r.resolveExpr(s, n.Right)
	case *ast.Compare:
		r.resolveExpr(s, n.Left)
		r.resolveExpr(s, n.Right)
	case *ast.UnaryOp:
		r.resolveExpr(s, n.Operand)
	case *ast.Call:
		r.resolveExpr(s, n.Callable)
		for _, a := range n.Args {
			r.resolveExpr(s, a)
		}
	case *ast.AttrCall:
		r.resolveExpr(s, n.Recv)
		for _, a := range n.Args {
			r.resolveExpr(s, a)
		}
	case *ast.Subscript:
		r.resolveExpr(s, n.Recv)
		r.resolveExpr(s, n.Index)
	case *ast.ListLit:
		for _, el := range n.Elems {
			r.resolveExpr(s, el)
		}
	case *ast.TupleLit:
		for _, el := range n.Elems {
			r.resolveExpr(s, el)
		}
	case *ast.SetLit:
		for _, el := range n.Elems {
			r.resolveExpr(s, el)
		}
	case *ast.DictLit:
		for _, p := range n.Pairs {
			r.resolveExpr(s, p.Key)
			r.resolveExpr(s, p.Value)
		}
	case *ast.FString:
		for _, p := range n.Parts {
			if p.Expr != nil {
				r.resolveExpr(s, p.Expr)
			}
		}
	case *ast.CondExpr:
		r.resolveExpr(s, n.Test)
		r.resolveExpr(s, n.Then)
		r.resolveExpr(s, n.Else)
	case *ast.ListComp:
		r.resolveExpr(s, n.Iter)
		r.resolveTargets(s, []ast.Target{n.Target})
		if n.If != nil {
			r.resolveExpr(s, n.If)
		}
		r.resolveExpr(s, n.Elem)
	}
}

// --- finalize: assign real slots, patch identifiers ---

func (s *scope) finalizeGlobal() {
	for _, occ := range s.idents {
		occ.ptr.Scope = ast.ScopeGlobal
		occ.ptr.Slot = s.localIdx[occ.id]
	}
}

// finalizeFunction computes the final namespace layout [ params | cell
// slots | free slots | locals ], patches every Identifier this scope
// collected, and prepends a synthetic self-assignment for any captured
// parameter (copying its incoming argument into the cell it shares with
// nested closures, since the runtime's call-setup only ever pre-fills
// *freshly allocated* cells, never a parameter slot — see DESIGN.md).
func (s *scope) finalizeFunction() {
	nParams := len(s.fn.ParamNames)

	var cellNames []intern.ID
	for _, id := range s.localOrder {
		if s.isCell[id] {
			cellNames = append(cellNames, id)
		}
	}
	cellIndex := make(map[intern.ID]int, len(cellNames))
	for i, id := range cellNames {
		cellIndex[id] = i
	}
	cellBase := nParams
	freeBase := cellBase + len(cellNames)

	var plainNames []intern.ID
	plainIndex := make(map[intern.ID]int)
	for _, id := range s.localOrder {
		if s.isParam[id] || s.isCell[id] {
			continue
		}
		plainIndex[id] = len(plainNames)
		plainNames = append(plainNames, id)
	}
	localsBase := freeBase + len(s.freeOrder)

	s.fn.NumCellVars = len(cellNames)
	s.fn.NamespaceSize = localsBase + len(plainNames)

	if prologue := capturedParamPrologue(s, cellNames, cellBase, cellIndex); len(prologue) > 0 {
		s.fn.Body = append(prologue, s.fn.Body...)
	}

	for _, occ := range s.idents {
		id := occ.id
		var sc ast.NameScope
		var slot int
		switch {
		case s.isCell[id]:
			sc, slot = ast.ScopeCell, cellBase+cellIndex[id]
		case s.isParam[id]:
			sc, slot = ast.ScopeLocal, s.localIdx[id]
		default:
			if _, ok := s.localIdx[id]; ok {
				sc, slot = ast.ScopeLocal, localsBase+plainIndex[id]
			} else if _, ok := s.freeIdx[id]; ok {
				sc, slot = ast.ScopeCell, freeBase+s.freeIdx[id]
			} else {
				sc, slot = ast.ScopeGlobal, s.module.localIdx[id]
			}
		}
		occ.ptr.Scope = sc
		occ.ptr.Slot = slot
	}

	for _, pc := range s.pendingChildren {
		free := make([]ast.Identifier, len(pc.freeOrder))
		for i, id := range pc.freeOrder {
			var sc ast.NameScope
			var slot int
			if s.isCell[id] {
				sc, slot = ast.ScopeCell, cellBase+cellIndex[id]
			} else {
				sc, slot = ast.ScopeCell, freeBase+s.freeIdx[id]
			}
			free[i] = ast.Identifier{NameID: id, Scope: sc, Slot: slot}
		}
		pc.fn.FreeVars = free
	}
}

func capturedParamPrologue(s *scope, cellNames []intern.ID, cellBase int, cellIndex map[intern.ID]int) []ast.Stmt {
	var out []ast.Stmt
	pos := s.fn.Pos
	for _, id := range cellNames {
		if !s.isParam[id] {
			continue
		}
		cellSlot := cellBase + cellIndex[id]
		paramSlot := s.localIdx[id]
		target := &ast.Name{Ident: ast.Identifier{NameID: id, Scope: ast.ScopeCell, Slot: cellSlot, Pos: pos}, Pos: pos}
		value := &ast.Name{Ident: ast.Identifier{NameID: id, Scope: ast.ScopeLocal, Slot: paramSlot, Pos: pos}, Pos: pos}
		out = append(out, &ast.Assign{Targets: []ast.Target{target}, Value: value, Pos: pos})
	}
	return out
}
