package types

// Event is the wire form of a ledger event: a dotted type such as
// "farm.deposit" and string attributes. Amounts are base-10 integers and
// accounts bech32 addresses.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
