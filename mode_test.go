package sindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModeMask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Mode
	}{
		{"def", ModeDef},
		{"r", ModeAddrRead | ModeValRead | ModePtrRead},
		{"w", ModeAddrWrite | ModeValWrite}, // w leaves the pointer class alone
		{"m", ModeAddrRead | ModeAddrWrite | ModeValRead | ModeValWrite | ModePtrRead | ModePtrWrite},
		{"-", 0},
		{"---", 0},
		{"r--", ModeAddrRead},
		{"-w-", ModeValWrite},
		{"--m", ModePtrRead | ModePtrWrite},
		{"rw-", ModeAddrRead | ModeValWrite},
		{"mmm", ModeAddrRead | ModeAddrWrite | ModeValRead | ModeValWrite | ModePtrRead | ModePtrWrite},
	}
	for _, tt := range tests {
		got, err := ParseModeMask(tt.in)
		require.NoError(t, err, "selector %q", tt.in)
		assert.Equal(t, tt.want, got, "selector %q", tt.in)
	}
}

func TestParseModeMask_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "x", "rx-", "rrrr", "rw", "dew"} {
		_, err := ParseModeMask(in)
		require.Error(t, err, "selector %q", in)
		var cerr *ConfigError
		require.ErrorAs(t, err, &cerr, "selector %q", in)
		assert.Equal(t, "mode", cerr.Option)
	}
}

func TestModeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode Mode
		want string
	}{
		{0, "---"},
		{ModeDef, "def"},
		{ModeAddrRead | ModeValRead | ModePtrRead, "rrr"},
		{ModeValWrite, "-w-"},
		{ModeValRead | ModeValWrite, "-m-"},
		{ModeAddrRead | ModePtrWrite, "r-w"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.mode.String())
	}
}

// A zero mask must select exactly the no-access records; any other mask
// selects records sharing at least one bit with it.
func TestModeMatches(t *testing.T) {
	t.Parallel()

	modes := []Mode{0, ModeAddrRead, ModeValRead, ModeValRead | ModeValWrite, ModePtrWrite, ModeDef}
	masks := []Mode{0, ModeValRead, ModeValRead | ModePtrWrite, ModeDef}

	for _, m := range modes {
		for _, mask := range masks {
			want := m == 0
			if mask != 0 {
				want = m&mask != 0
			}
			assert.Equal(t, want, m.Matches(mask), "mode %#x mask %#x", m, mask)
		}
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	k, err := ParseKind("f")
	require.NoError(t, err)
	assert.Equal(t, KindFunction, k)

	k, err = ParseKind("S")
	require.NoError(t, err)
	assert.Equal(t, KindStruct, k)

	for _, in := range []string{"", "fv"} {
		_, err := ParseKind(in)
		var cerr *ConfigError
		require.ErrorAs(t, err, &cerr, "selector %q", in)
	}
}

func TestMemberSymbol(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "point.x", MemberSymbol("point", "x", false))
	assert.Equal(t, "?.x", MemberSymbol("", "x", false))
	assert.Equal(t, "point.?", MemberSymbol("point", "", false))
	assert.Equal(t, "point.*", MemberSymbol("point", "ignored", true))
	assert.Equal(t, "?.*", MemberSymbol("", "", true))
}
