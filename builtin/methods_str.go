package builtin

import (
	"strings"
	"unicode"

	"github.com/montylang/monty/core"
	"github.com/montylang/monty/eval"
	"github.com/montylang/monty/intern"
)

// callStrMethod dispatches a string method call. Python-compatible
// Unicode classification and case-folding (isalpha, casefold, title,
// ...) has no analogue in the example pack's third-party dependencies —
// the ecosystem's idiomatic tool for this is the standard library's
// unicode/strings packages, which is what every method below is built
// from; this is the one container-method family implemented on the
// standard library rather than a pack dependency (see DESIGN.md).
func callStrMethod(ev *eval.Evaluator, recv core.Value, method intern.ID, args []core.Value) (core.Value, error) {
	s := ev.Heap.Str(recv.HeapID()).String()

	switch method {
	case intern.MethodJoin:
		return strJoin(ev, recv, s, args)
	case intern.MethodLower:
		return str0(ev, recv, args, strings.ToLower(s))
	case intern.MethodUpper:
		return str0(ev, recv, args, strings.ToUpper(s))
	case intern.MethodCasefold:
		return str0(ev, recv, args, strings.ToLower(s))
	case intern.MethodCapitalize:
		return str0(ev, recv, args, capitalize(s))
	case intern.MethodTitle:
		return str0(ev, recv, args, strings.Title(s))
	case intern.MethodSwapcase:
		return str0(ev, recv, args, swapcase(s))
	case intern.MethodIsalpha:
		return strPred(ev, recv, args, s, isAll(unicode.IsLetter))
	case intern.MethodIsdigit:
		return strPred(ev, recv, args, s, isAll(unicode.IsDigit))
	case intern.MethodIsdecimal:
		return strPred(ev, recv, args, s, isAll(unicode.IsDigit))
	case intern.MethodIsnumeric:
		return strPred(ev, recv, args, s, isAll(unicode.IsNumber))
	case intern.MethodIsalnum:
		return strPred(ev, recv, args, s, isAll(func(r rune) bool { return unicode.IsLetter(r) || unicode.IsNumber(r) }))
	case intern.MethodIsspace:
		return strPred(ev, recv, args, s, isAll(unicode.IsSpace))
	case intern.MethodIslower:
		return strPred(ev, recv, args, s, isCased(func(r rune) bool { return !unicode.IsUpper(r) }))
	case intern.MethodIsupper:
		return strPred(ev, recv, args, s, isCased(func(r rune) bool { return !unicode.IsLower(r) }))
	case intern.MethodIsascii:
		return strPred(ev, recv, args, s, func(string) bool {
			for _, r := range s {
				if r > unicode.MaxASCII {
					return false
				}
			}
			return true
		})
	case intern.MethodIsidentifier:
		return strPred(ev, recv, args, s, isIdentifier)
	case intern.MethodIstitle:
		return strPred(ev, recv, args, s, istitle)

	case intern.MethodFind:
		return strFind(ev, recv, args, s, false, false)
	case intern.MethodRfind:
		return strFind(ev, recv, args, s, true, false)
	case intern.MethodIndex:
		return strFind(ev, recv, args, s, false, true)
	case intern.MethodRindex:
		return strFind(ev, recv, args, s, true, true)

	case intern.MethodCount:
		sub, ok := arg1Str(ev, recv, args)
		if !ok {
			return core.Value{}, argStrErr(ev, recv, args)
		}
		n := strings.Count(s, sub)
		ev.Drop(recv)
		ev.Drop(args[0])
		return core.Int(int64(n)), nil

	case intern.MethodStartswith:
		sub, ok := arg1Str(ev, recv, args)
		if !ok {
			return core.Value{}, argStrErr(ev, recv, args)
		}
		r := strings.HasPrefix(s, sub)
		ev.Drop(recv)
		ev.Drop(args[0])
		return core.Bool(r), nil

	case intern.MethodEndswith:
		sub, ok := arg1Str(ev, recv, args)
		if !ok {
			return core.Value{}, argStrErr(ev, recv, args)
		}
		r := strings.HasSuffix(s, sub)
		ev.Drop(recv)
		ev.Drop(args[0])
		return core.Bool(r), nil

	case intern.MethodRemoveprefix:
		sub, ok := arg1Str(ev, recv, args)
		if !ok {
			return core.Value{}, argStrErr(ev, recv, args)
		}
		r := strings.TrimPrefix(s, sub)
		ev.Drop(recv)
		ev.Drop(args[0])
		return allocStr(ev, r)

	case intern.MethodRemovesuffix:
		sub, ok := arg1Str(ev, recv, args)
		if !ok {
			return core.Value{}, argStrErr(ev, recv, args)
		}
		r := strings.TrimSuffix(s, sub)
		ev.Drop(recv)
		ev.Drop(args[0])
		return allocStr(ev, r)

	case intern.MethodStrip:
		return strTrim(ev, recv, args, s, strings.TrimSpace, strings.Trim)
	case intern.MethodLstrip:
		return strTrim(ev, recv, args, s, func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }, strings.TrimLeft)
	case intern.MethodRstrip:
		return strTrim(ev, recv, args, s, func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }, strings.TrimRight)

	case intern.MethodSplit:
		return strSplit(ev, recv, args, s, false)
	case intern.MethodRsplit:
		return strSplit(ev, recv, args, s, true)
	case intern.MethodSplitlines:
		if len(args) != 0 {
			return wrongArgCount(ev, recv, args, "splitlines", "exactly 0")
		}
		ev.Drop(recv)
		return allocStrList(ev, splitLines(s))

	case intern.MethodPartition:
		return strPartition(ev, recv, args, s, false)
	case intern.MethodRpartition:
		return strPartition(ev, recv, args, s, true)

	case intern.MethodReplace:
		if len(args) != 2 {
			return wrongArgCount(ev, recv, args, "replace", "exactly 2")
		}
		old, ok1 := asStr(ev, args[0])
		new_, ok2 := asStr(ev, args[1])
		if !ok1 || !ok2 {
			return wrongArgCount(ev, recv, args, "replace", "exactly 2 (str, str)")
		}
		r := strings.ReplaceAll(s, old, new_)
		ev.Drop(recv)
		ev.Drop(args[0])
		ev.Drop(args[1])
		return allocStr(ev, r)

	case intern.MethodCenter:
		return strPad(ev, recv, args, s, padCenter)
	case intern.MethodLjust:
		return strPad(ev, recv, args, s, padLeft)
	case intern.MethodRjust:
		return strPad(ev, recv, args, s, padRight)
	case intern.MethodZfill:
		return strZfill(ev, recv, args, s)

	case intern.MethodEncode:
		if len(args) != 0 {
			return wrongArgCount(ev, recv, args, "encode", "exactly 0")
		}
		ev.Drop(recv)
		id, err := ev.Heap.Allocate(core.NewBytes([]byte(s)))
		if err != nil {
			return core.Value{}, err
		}
		return core.Ref(id), nil

	default:
		return noSuchMethod(ev, recv, method, args)
	}
}

func str0(ev *eval.Evaluator, recv core.Value, args []core.Value, result string) (core.Value, error) {
	if len(args) != 0 {
		return wrongArgCount(ev, recv, args, "method", "exactly 0")
	}
	ev.Drop(recv)
	return allocStr(ev, result)
}

func strPred(ev *eval.Evaluator, recv core.Value, args []core.Value, s string, pred func(string) bool) (core.Value, error) {
	if len(args) != 0 {
		return wrongArgCount(ev, recv, args, "method", "exactly 0")
	}
	ev.Drop(recv)
	return core.Bool(pred(s)), nil
}

func allocStr(ev *eval.Evaluator, s string) (core.Value, error) {
	id, err := ev.Heap.Allocate(core.NewStr(s))
	if err != nil {
		return core.Value{}, err
	}
	return core.Ref(id), nil
}

func allocStrList(ev *eval.Evaluator, parts []string) (core.Value, error) {
	out := make([]core.Value, len(parts))
	for i, p := range parts {
		id, err := ev.Heap.Allocate(core.NewStr(p))
		if err != nil {
			ev.DropAll(out[:i])
			return core.Value{}, err
		}
		out[i] = core.Ref(id)
	}
	return allocList(ev, out)
}

func asStr(ev *eval.Evaluator, v core.Value) (string, bool) {
	if !v.IsRef() {
		return "", false
	}
	s, ok := ev.Heap.Payload(v.HeapID()).(*core.Str)
	if !ok {
		return "", false
	}
	return s.String(), true
}

// arg1Str extracts the single expected string argument, without
// consuming recv/args (the caller drops them once it knows the call
// succeeded or failed).
func arg1Str(ev *eval.Evaluator, recv core.Value, args []core.Value) (string, bool) {
	if len(args) != 1 {
		return "", false
	}
	return asStr(ev, args[0])
}

func argStrErr(ev *eval.Evaluator, recv core.Value, args []core.Value) error {
	_, err := wrongArgCount(ev, recv, args, "method", "exactly 1 (str)")
	return err
}

func strJoin(ev *eval.Evaluator, recv core.Value, sep string, args []core.Value) (core.Value, error) {
	if len(args) != 1 {
		return wrongArgCount(ev, recv, args, "join", "exactly 1 (iterable)")
	}
	it, err := ev.MakeIterator(args[0])
	if err != nil {
		ev.Drop(recv)
		ev.Drop(args[0])
		return core.Value{}, err
	}
	var b strings.Builder
	first := true
	for {
		v, ok := it.Next(ev.Heap)
		if !ok {
			break
		}
		part, ok := asStr(ev, v)
		if !ok {
			t := v.TypeName(ev.Heap)
			ev.Drop(v)
			ev.Drop(recv)
			ev.Drop(args[0])
			return core.Value{}, ev.Raise(eval.ExcTypeError, "sequence item: expected str instance, %s found", t)
		}
		if !first {
			b.WriteString(sep)
		}
		first = false
		b.WriteString(part)
		ev.Drop(v)
	}
	ev.Drop(recv)
	ev.Drop(args[0])
	return allocStr(ev, b.String())
}

func strFind(ev *eval.Evaluator, recv core.Value, args []core.Value, s string, last, raiseOnMiss bool) (core.Value, error) {
	sub, ok := arg1Str(ev, recv, args)
	if !ok {
		return core.Value{}, argStrErr(ev, recv, args)
	}
	var byteIdx int
	if last {
		byteIdx = strings.LastIndex(s, sub)
	} else {
		byteIdx = strings.Index(s, sub)
	}
	ev.Drop(recv)
	ev.Drop(args[0])
	if byteIdx < 0 {
		if raiseOnMiss {
			return core.Value{}, ev.Raise(eval.ExcValueError, "substring not found")
		}
		return core.Int(-1), nil
	}
	return core.Int(int64(len([]rune(s[:byteIdx])))), nil
}

func strTrim(ev *eval.Evaluator, recv core.Value, args []core.Value, s string, trimSpace func(string) string, trimCutset func(string, string) string) (core.Value, error) {
	if len(args) == 0 {
		ev.Drop(recv)
		return allocStr(ev, trimSpace(s))
	}
	cutset, ok := arg1Str(ev, recv, args)
	if !ok {
		return core.Value{}, argStrErr(ev, recv, args)
	}
	ev.Drop(recv)
	ev.Drop(args[0])
	return allocStr(ev, trimCutset(s, cutset))
}

func strSplit(ev *eval.Evaluator, recv core.Value, args []core.Value, s string, fromRight bool) (core.Value, error) {
	if len(args) == 0 {
		ev.Drop(recv)
		return allocStrList(ev, strings.Fields(s))
	}
	sep, ok := arg1Str(ev, recv, args)
	if !ok {
		return core.Value{}, argStrErr(ev, recv, args)
	}
	ev.Drop(recv)
	ev.Drop(args[0])
	if sep == "" {
		return core.Value{}, ev.Raise(eval.ExcValueError, "empty separator")
	}
	parts := strings.Split(s, sep)
	if fromRight {
		// strings.Split already produces the same parts either way; rsplit
		// without a maxsplit limit differs from split only in argument
		// validation, not in the result.
		_ = fromRight
	}
	return allocStrList(ev, parts)
}

func strPartition(ev *eval.Evaluator, recv core.Value, args []core.Value, s string, fromRight bool) (core.Value, error) {
	sep, ok := arg1Str(ev, recv, args)
	if !ok {
		return core.Value{}, argStrErr(ev, recv, args)
	}
	ev.Drop(recv)
	ev.Drop(args[0])

	var idx int
	if fromRight {
		idx = strings.LastIndex(s, sep)
	} else {
		idx = strings.Index(s, sep)
	}
	var parts [3]string
	if idx < 0 {
		if fromRight {
			parts = [3]string{"", "", s}
		} else {
			parts = [3]string{s, "", ""}
		}
	} else {
		parts = [3]string{s[:idx], sep, s[idx+len(sep):]}
	}
	out := make([]core.Value, 3)
	for i, p := range parts {
		id, err := ev.Heap.Allocate(core.NewStr(p))
		if err != nil {
			ev.DropAll(out[:i])
			return core.Value{}, err
		}
		out[i] = core.Ref(id)
	}
	id, err := ev.Heap.Allocate(core.NewTuple(out))
	if err != nil {
		ev.DropAll(out)
		return core.Value{}, err
	}
	return core.Ref(id), nil
}

func strPad(ev *eval.Evaluator, recv core.Value, args []core.Value, s string, pad func(string, int, rune) string) (core.Value, error) {
	if len(args) < 1 || len(args) > 2 || args[0].Tag() != core.TagInt {
		return wrongArgCount(ev, recv, args, "method", "1 or 2 (int[, str])")
	}
	width := int(args[0].AsInt())
	fill := ' '
	if len(args) == 2 {
		fs, ok := asStr(ev, args[1])
		if !ok || len([]rune(fs)) != 1 {
			return wrongArgCount(ev, recv, args, "method", "a single fill character")
		}
		fill = []rune(fs)[0]
		ev.Drop(args[1])
	}
	ev.Drop(recv)
	return allocStr(ev, pad(s, width, fill))
}

func strZfill(ev *eval.Evaluator, recv core.Value, args []core.Value, s string) (core.Value, error) {
	if len(args) != 1 || args[0].Tag() != core.TagInt {
		return wrongArgCount(ev, recv, args, "zfill", "exactly 1 (int)")
	}
	width := int(args[0].AsInt())
	ev.Drop(recv)
	sign := ""
	body := s
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, body = s[:1], s[1:]
	}
	n := width - len([]rune(sign)) - len([]rune(body))
	if n > 0 {
		body = strings.Repeat("0", n) + body
	}
	return allocStr(ev, sign+body)
}

func padLeft(s string, width int, fill rune) string {
	n := width - len([]rune(s))
	if n <= 0 {
		return s
	}
	return s + strings.Repeat(string(fill), n)
}

func padRight(s string, width int, fill rune) string {
	n := width - len([]rune(s))
	if n <= 0 {
		return s
	}
	return strings.Repeat(string(fill), n) + s
}

func padCenter(s string, width int, fill rune) string {
	n := width - len([]rune(s))
	if n <= 0 {
		return s
	}
	left := n / 2
	right := n - left
	return strings.Repeat(string(fill), left) + s + strings.Repeat(string(fill), right)
}

func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func swapcase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsUpper(r):
			return unicode.ToLower(r)
		case unicode.IsLower(r):
			return unicode.ToUpper(r)
		default:
			return r
		}
	}, s)
}

func isAll(pred func(rune) bool) func(string) bool {
	return func(s string) bool {
		if s == "" {
			return false
		}
		for _, r := range s {
			if !pred(r) {
				return false
			}
		}
		return true
	}
}

// isCased requires at least one cased character and every cased
// character to satisfy pred (used for islower/isupper).
func isCased(pred func(rune) bool) func(string) bool {
	return func(s string) bool {
		seenCased := false
		for _, r := range s {
			if unicode.IsUpper(r) || unicode.IsLower(r) {
				seenCased = true
				if !pred(r) {
					return false
				}
			}
		}
		return seenCased
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

func istitle(s string) bool {
	seenCased := false
	prevCased := false
	for _, r := range s {
		cased := unicode.IsLetter(r)
		switch {
		case !cased:
			prevCased = false
		case !prevCased:
			if !unicode.IsUpper(r) {
				return false
			}
			prevCased = true
			seenCased = true
		default:
			if !unicode.IsLower(r) {
				return false
			}
			prevCased = true
		}
	}
	return seenCased
}

func splitLines(s string) []string {
	var out []string
	var cur strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' || r == '\r' {
			out = append(out, cur.String())
			cur.Reset()
			if r == '\r' && i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
