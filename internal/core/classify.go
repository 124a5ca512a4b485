package core

// IsThreat reports whether a verdict counts against the threats bucket of the
// daily stats. Anything that is not an explicit safe verdict is a threat,
// including suspicious and unknown results. The stats invariant
// total == safe + threats depends on this mapping being total.
func IsThreat(s Status) bool {
	return s != StatusSafe
}
