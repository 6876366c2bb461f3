package callback

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind distinguishes on-commit from on-present callbacks.
type Kind uint8

const (
	// KindPresent fires once the transaction's effects are visible on screen.
	KindPresent Kind = iota
	// KindCommit fires once the transaction has been applied, without
	// waiting for presentation.
	KindCommit
)

// String returns the short name used in logs and traces.
func (k Kind) String() string {
	switch k {
	case KindCommit:
		return "commit"
	case KindPresent:
		return "present"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ID identifies one callback within a listener's submission order.
type ID struct {
	Seq  int64 `json:"seq"`
	Kind Kind  `json:"kind"`
}

// String renders the ID as "<seq><c|p>", e.g. "12p".
func (id ID) String() string {
	suffix := "p"
	if id.Kind == KindCommit {
		suffix = "c"
	}
	return strconv.FormatInt(id.Seq, 10) + suffix
}

// ParseID parses the form produced by ID.String. A bare number is a
// present callback.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ID{}, fmt.Errorf("empty callback id")
	}

	kind := KindPresent
	switch s[len(s)-1] {
	case 'c', 'C':
		kind = KindCommit
		s = s[:len(s)-1]
	case 'p', 'P':
		s = s[:len(s)-1]
	}

	seq, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("invalid callback id sequence %q: %w", s, err)
	}
	return ID{Seq: seq, Kind: kind}, nil
}

// IDs is the ordered run of callback IDs that belong to one transaction.
type IDs []ID

// ParseIDs parses a list of IDs in ID.String form.
func ParseIDs(ss []string) (IDs, error) {
	ids := make(IDs, 0, len(ss))
	for i, s := range ss {
		id, err := ParseID(s)
		if err != nil {
			return nil, fmt.Errorf("ids[%d]: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Compare orders two runs by their leading sequence number.
//
// Returns 0 when both runs are empty or their leading sequence numbers are
// equal, a positive value when only ids is empty, a negative value when
// only other is empty, and otherwise the difference between the leading
// sequence numbers. Only the first ID takes
// part; see the package documentation for why that is sufficient.
func (ids IDs) Compare(other IDs) int64 {
	if len(ids) == 0 {
		if len(other) == 0 {
			return 0
		}
		return 1
	}
	if len(other) == 0 {
		return -1
	}
	return ids[0].Seq - other[0].Seq
}

// IsCommit reports whether the batch is routed through the commit path.
// The leading ID decides for the whole run.
func (ids IDs) IsCommit() bool {
	return len(ids) > 0 && ids[0].Kind == KindCommit
}

// Equal reports whether both runs hold exactly the same IDs in order.
func (ids IDs) Equal(other IDs) bool {
	if len(ids) != len(other) {
		return false
	}
	for i := range ids {
		if ids[i] != other[i] {
			return false
		}
	}
	return true
}

// Key returns a string that is equal for two runs iff Equal reports true.
// Suitable as a map key.
func (ids IDs) Key() string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(id.String())
	}
	return b.String()
}

// Strings renders every ID with ID.String.
func (ids IDs) Strings() []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// Clone returns a copy that does not share backing storage.
func (ids IDs) Clone() IDs {
	if ids == nil {
		return nil
	}
	out := make(IDs, len(ids))
	copy(out, ids)
	return out
}

// ListenerID is the identity of a remote callback target.
type ListenerID string

// ListenerCallbacks identifies one registered batch: a listener and the
// callback IDs of one transaction. Two values are the same batch iff the
// listener matches and the ID runs are Equal.
type ListenerCallbacks struct {
	Listener    ListenerID
	CallbackIDs IDs
}

// Key returns the map key for the batch.
func (lc ListenerCallbacks) Key() BatchKey {
	return BatchKey{Listener: lc.Listener, IDs: lc.CallbackIDs.Key()}
}

// String renders the batch as "listener[ids]".
func (lc ListenerCallbacks) String() string {
	return fmt.Sprintf("%s[%s]", lc.Listener, lc.CallbackIDs.Key())
}

// BatchKey is the comparable form of ListenerCallbacks.
type BatchKey struct {
	Listener ListenerID
	IDs      string
}
