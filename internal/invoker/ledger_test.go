package invoker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txcomplete/internal/callback"
)

func TestLedger_FindMatchesLeadingSequence(t *testing.T) {
	l := newLedger()
	a := newFakeListener("A")

	first := l.append(a, present(1, 2))
	second := l.append(a, present(3))

	assert.Same(t, first, l.find("A", present(1)))
	assert.Same(t, first, l.find("A", present(1, 2, 9)))
	assert.Same(t, second, l.find("A", present(3)))
	assert.Nil(t, l.find("A", present(2)))
	assert.Nil(t, l.find("B", present(1)))
}

func TestLedger_FindPrefersMostRecent(t *testing.T) {
	l := newLedger()
	a := newFakeListener("A")

	l.append(a, present(5))
	latest := l.append(a, present(5))

	assert.Same(t, latest, l.find("A", present(5)))
}

func TestLedger_ListenerOrderAndRemove(t *testing.T) {
	l := newLedger()
	for _, id := range []string{"C", "A", "B"} {
		l.append(newFakeListener(id), present(1))
	}
	l.append(newFakeListener("A"), present(2))

	assert.Equal(t, []callback.ListenerID{"C", "A", "B"}, l.order)
	assert.Equal(t, 2, l.remove("A"))
	assert.Zero(t, l.remove("A"))
	assert.Equal(t, []callback.ListenerID{"C", "B"}, l.order)
	assert.Equal(t, 2, l.len())
}

func TestListenerLedger_PopFront(t *testing.T) {
	l := newLedger()
	a := newFakeListener("A")
	for i := int64(1); i <= 3; i++ {
		l.append(a, present(i))
	}
	ll := l.get("A")

	taken := ll.popFront(2)

	require.Len(t, taken, 2)
	assert.Equal(t, int64(1), taken[0].CallbackIDs[0].Seq)
	require.Len(t, ll.entries, 1)
	assert.Equal(t, int64(3), ll.entries[0].CallbackIDs[0].Seq)

	ll.popFront(1)
	assert.Nil(t, ll.entries)
}

func TestPendingCounter_ResolveOutcomes(t *testing.T) {
	p := newPendingCounter()

	assert.Equal(t, resolveNoListener, p.resolve("L", present(1)))

	p.add("L", present(1))
	p.add("L", present(1))
	p.add("L", present(2))
	assert.Equal(t, 3, p.total)
	assert.Equal(t, 2, p.count("L", present(1)))

	assert.Equal(t, resolveNoBatch, p.resolve("L", present(9)))
	assert.Equal(t, resolvedPending, p.resolve("L", present(1)))
	assert.True(t, p.has("L", present(1)))
	assert.Equal(t, resolvedPending, p.resolve("L", present(1)))
	assert.False(t, p.has("L", present(1)))
	assert.Equal(t, 1, p.total)

	assert.Equal(t, 1, p.dropListener("L"))
	assert.Zero(t, p.total)
	assert.Empty(t, p.byListener)
}

func TestPendingCounter_KeyIsFullSequence(t *testing.T) {
	p := newPendingCounter()
	p.add("L", present(1, 2))

	assert.False(t, p.has("L", present(1)))
	assert.True(t, p.has("L", present(1, 2)))
}

func TestRegistrationTracker(t *testing.T) {
	r := newRegistrationTracker()
	key := callback.ListenerCallbacks{Listener: "L", CallbackIDs: present(1)}.Key()

	assert.True(t, r.begin(key))
	assert.False(t, r.begin(key))
	assert.True(t, r.contains(key))
	assert.Equal(t, 1, r.len())
	assert.True(t, r.end(key))
	assert.False(t, r.end(key))
	assert.False(t, r.contains(key))
}
