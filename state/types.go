package state

// NodeId identifies a neighbouring node on the underlying trust graph, eg a
// friend or buddy. Neighbour relationships are expected to be symmetric.
// Embedders render whatever identity they use (a normalized jid, a login
// name, a key hash) into the string. The empty string is not a valid id.
type NodeId string

func (n NodeId) String() string {
	return string(n)
}

// Advertisement is a message routed "over" the trust graph via random
// repeatable routes, eg a relay availability advertisement.
//
// Sender is the neighbour the message arrived from, not necessarily the
// originator. TTL is the remaining number of hops (including the receiving
// node) the message should travel before being dropped. The payload is
// opaque to the routing layer.
type Advertisement struct {
	Sender  NodeId
	TTL     int
	Payload string
}

// CopyWith returns a fresh advertisement carrying the same payload with a
// new sender and ttl.
func (a Advertisement) CopyWith(sender NodeId, ttl int) Advertisement {
	return Advertisement{Sender: sender, TTL: ttl, Payload: a.Payload}
}
