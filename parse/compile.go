package parse

import (
	"github.com/montylang/monty/ast"
	"github.com/montylang/monty/builtin"
	"github.com/montylang/monty/intern"
)

// Program is the fully prepared result of Compile: a module body ready
// for eval.Evaluator, plus the global-namespace layout the host façade
// needs to seed input values, external-function placeholders, and the
// fixed builtin table before running it (spec.md §6.1 Compiled::new).
type Program struct {
	Body      []ast.Stmt
	Functions []*ast.Function

	GlobalSize int

	// InputSlots[i] / ExternalSlots[i] are the global-namespace slots
	// reserved for inputNames[i] / externalNames[i], in the order they
	// were passed to Compile.
	InputSlots    []int
	ExternalSlots []int
	Externals     []string

	// BuiltinSlots[id] is the global slot reserved for builtin.Names[id],
	// index-aligned with the builtin.Print/Range/Len/Sorted/Map ids.
	BuiltinSlots []int
}

// Compile lexes, parses, and scope-resolves source into a Program
// (spec.md §6.1 "Compiled::new(source, file_name, input_names,
// external_names)"). inputNames and externalNames are reserved as the
// first global slots, in that order, followed by the fixed builtin
// names, so the host façade can bind them positionally at run setup.
func Compile(source, fileName string, inputNames, externalNames []string, strs *intern.Table) (*Program, error) {
	toks, err := lex(source)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.FileName = fileName
			pe.Loc = ast.NewLineIndex(source).At(pe.Offset)
		}
		return nil, err
	}
	li := ast.NewLineIndex(source)
	body, err := parseModule(toks, strs, li, fileName)
	if err != nil {
		return nil, err
	}

	mod := newModuleScope()

	inputSlots := make([]int, len(inputNames))
	for i, name := range inputNames {
		id := strs.Intern(name)
		mod.recordLocalDef(id)
		inputSlots[i] = mod.localIdx[id]
	}
	externalSlots := make([]int, len(externalNames))
	for i, name := range externalNames {
		id := strs.Intern(name)
		mod.recordLocalDef(id)
		externalSlots[i] = mod.localIdx[id]
	}
	builtinSlots := make([]int, len(builtin.Names))
	for i, name := range builtin.Names {
		id := strs.Intern(name)
		mod.recordLocalDef(id)
		builtinSlots[i] = mod.localIdx[id]
	}

	r := resolveModule(body, mod)

	return &Program{
		Body:          body,
		Functions:     r.functions,
		GlobalSize:    len(mod.localOrder),
		InputSlots:    inputSlots,
		ExternalSlots: externalSlots,
		Externals:     append([]string(nil), externalNames...),
		BuiltinSlots:  builtinSlots,
	}, nil
}
