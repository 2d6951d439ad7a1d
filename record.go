package sindex

// Kind tags what sort of symbol a record describes. The byte value is stored
// in the index and rendered as its character by the %k format directive.
type Kind byte

const (
	KindStruct   Kind = 's' // struct, union or enum tag
	KindFunction Kind = 'f'
	KindVariable Kind = 'v'
	KindMember   Kind = 'm' // struct or union member
	KindMacro    Kind = 'd' // preprocessor define
)

// ParseKind validates a user-supplied kind selector. Uppercase input is
// folded to lowercase.
func ParseKind(s string) (Kind, error) {
	if len(s) != 1 {
		return 0, &ConfigError{Option: "kind", Value: s, Reason: "must be a single character"}
	}
	c := s[0]
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	return Kind(c), nil
}

// Record is one symbol event: which symbol was touched, where, and how.
// Records are immutable once committed and disappear only with their file
// row.
type Record struct {
	File    int64 // owning file row id
	Line    int   // 1-based
	Col     int   // 1-based
	Symbol  string
	Kind    Kind
	Context string // enclosing function, empty at file scope
	Mode    Mode
}

// recordKey is the uniqueness tuple enforced by the persistent index.
// Context is deliberately not part of it.
type recordKey struct {
	Symbol string
	Kind   Kind
	Mode   Mode
	File   int64
	Line   int
	Col    int
}

func (r Record) key() recordKey {
	return recordKey{r.Symbol, r.Kind, r.Mode, r.File, r.Line, r.Col}
}

// MemberSymbol composes the stored symbol name for a member access:
// "aggregate.member", with "?" standing in for an anonymous aggregate or
// member and "*" for access to the whole aggregate.
func MemberSymbol(agg, member string, whole bool) string {
	if agg == "" {
		agg = "?"
	}
	switch {
	case whole:
		member = "*"
	case member == "":
		member = "?"
	}
	return agg + "." + member
}
