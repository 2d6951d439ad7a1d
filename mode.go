package sindex

import "fmt"

// Mode encodes how a symbol was touched at one position. Two bits per access
// class record read and write independently for the address-of, value and
// pointer-dereference classes; a single event may combine any subset of the
// three. ModeDef is a distinguished value marking the point of definition.
type Mode uint32

const (
	ModeAddrRead  Mode = 0x001 // address taken and read
	ModeAddrWrite Mode = 0x002
	ModeValRead   Mode = 0x004 // value read
	ModeValWrite  Mode = 0x008 // value written
	ModePtrRead   Mode = 0x010 // read through pointer dereference
	ModePtrWrite  Mode = 0x020 // written through pointer dereference

	// ModeDef marks a definition rather than a use.
	ModeDef Mode = 0x100
)

// classShifts orders the access classes as they appear in mode selectors and
// in Mode.String: address-of, value, pointer-dereference.
var classShifts = [3]uint{0, 2, 4}

// String renders the mode as "def" or a 3-character string with one of
// `-', `r', `w' or `m' per access class.
func (m Mode) String() string {
	if m == ModeDef {
		return "def"
	}
	var b [3]byte
	for i, shift := range classShifts {
		b[i] = "-rwm"[(m>>shift)&3]
	}
	return string(b[:])
}

// Matches reports whether a stored record mode is selected by mask. A zero
// mask selects only records with no recorded access; a non-zero mask selects
// any record sharing at least one mode bit with it. The asymmetry lets a
// user pick "no access" exactly while picking "any of these accesses"
// inclusively, and must match the SQL the query builder emits.
func (m Mode) Matches(mask Mode) bool {
	if mask == 0 {
		return m == 0
	}
	return m&mask != 0
}

// ParseModeMask parses a user-supplied mode selector: a single character
// applied across the access classes (`r', `w', `m' or `-'; `w' covers the
// address-of and value classes only), a 3-character string with one code per
// class in address-of, value, pointer order, or the literal "def".
func ParseModeMask(s string) (Mode, error) {
	switch s {
	case "def":
		return ModeDef, nil
	case "r":
		s = "rrr"
	case "w":
		s = "ww-"
	case "m":
		s = "mmm"
	case "-":
		s = "---"
	}
	if len(s) != 3 {
		if len(s) == 1 {
			return 0, &ConfigError{Option: "mode", Value: s,
				Reason: fmt.Sprintf("unknown modificator %q", s[0])}
		}
		return 0, &ConfigError{Option: "mode", Value: s,
			Reason: "length must be 1 or 3"}
	}

	var mask Mode
	for i, shift := range classShifts {
		switch s[i] {
		case 'r':
			mask |= Mode(1) << shift
		case 'w':
			mask |= Mode(2) << shift
		case 'm':
			mask |= Mode(3) << shift
		case '-':
		default:
			return 0, &ConfigError{Option: "mode", Value: s,
				Reason: fmt.Sprintf("unknown modificator %q (`r', `w', `m' or `-' expected)", s[i])}
		}
	}
	return mask, nil
}
