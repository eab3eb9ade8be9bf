package state

var forwarderOwnerPrefix = []byte("forwarder/owner/")

func forwarderOwnerKey(forwarder [20]byte) []byte {
	return append(append([]byte(nil), forwarderOwnerPrefix...), forwarder[:]...)
}

// ForwarderOwner returns the owner registered for a forwarding account.
func (tx *Tx) ForwarderOwner(forwarder [20]byte) ([20]byte, bool, error) {
	var owner [20]byte
	ok, err := tx.KVGet(forwarderOwnerKey(forwarder), &owner)
	return owner, ok, err
}

// SetForwarderOwner records the owner of a forwarding account.
func (tx *Tx) SetForwarderOwner(forwarder, owner [20]byte) error {
	return tx.KVPut(forwarderOwnerKey(forwarder), owner)
}
