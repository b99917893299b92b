package graphqlwsclient

import (
	"strconv"
)

// SubscriptionID opaquely identifies one subscription on a Client. Its
// string form (a decimal integer) is an implementation detail of the wire
// protocol; callers should treat values of this type as opaque.
type SubscriptionID struct {
	value uint64
}

// newSubscriptionID wraps a non-zero counter value. Panics on zero, which
// would indicate a bug in the Client's id allocator, not caller input.
func newSubscriptionID(v uint64) SubscriptionID {
	if v == 0 {
		panic("graphqlwsclient: subscription id allocator produced zero")
	}
	return SubscriptionID{value: v}
}

// String renders the id as it appears on the wire.
func (id SubscriptionID) String() string {
	return strconv.FormatUint(id.value, 10)
}
