package callback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{"1", ID{Seq: 1, Kind: KindPresent}},
		{"7p", ID{Seq: 7, Kind: KindPresent}},
		{"42c", ID{Seq: 42, Kind: KindCommit}},
		{" 3C ", ID{Seq: 3, Kind: KindCommit}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseID_Invalid(t *testing.T) {
	for _, in := range []string{"", "c", "abc", "1x"} {
		_, err := ParseID(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestID_StringRoundTrip(t *testing.T) {
	for _, id := range []ID{{Seq: 1}, {Seq: 99, Kind: KindCommit}} {
		got, err := ParseID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestIDs_Compare(t *testing.T) {
	a := IDs{{Seq: 5}, {Seq: 6}}
	b := IDs{{Seq: 5}}
	c := IDs{{Seq: 9}}

	assert.Zero(t, IDs(nil).Compare(nil))
	assert.Positive(t, IDs(nil).Compare(a))
	assert.Negative(t, a.Compare(nil))
	assert.NotZero(t, IDs{{Seq: 0}}.Compare(nil), "an empty run never matches a run led by seq 0")
	assert.Zero(t, a.Compare(b), "only the leading id takes part")
	assert.Negative(t, a.Compare(c))
	assert.Positive(t, c.Compare(a))
}

func TestIDs_IsCommit(t *testing.T) {
	assert.False(t, IDs(nil).IsCommit())
	assert.True(t, IDs{{Seq: 1, Kind: KindCommit}, {Seq: 2}}.IsCommit())
	assert.False(t, IDs{{Seq: 1}, {Seq: 2, Kind: KindCommit}}.IsCommit())
}

func TestIDs_KeyMatchesEqual(t *testing.T) {
	a := IDs{{Seq: 1}, {Seq: 2}}
	b := IDs{{Seq: 1}, {Seq: 2}}
	c := IDs{{Seq: 1}, {Seq: 2, Kind: KindCommit}}

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Key(), c.Key())
	assert.Equal(t, "1p,2c", c.Key())
}

func TestListenerCallbacks_Key(t *testing.T) {
	x := ListenerCallbacks{Listener: "L", CallbackIDs: IDs{{Seq: 1}}}
	y := ListenerCallbacks{Listener: "M", CallbackIDs: IDs{{Seq: 1}}}

	assert.NotEqual(t, x.Key(), y.Key())
	assert.Equal(t, "L[1p]", x.String())
}
