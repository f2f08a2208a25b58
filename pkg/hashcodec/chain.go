package hashcodec

// ChainApplicator reconstructs the head of a reverse-delta chain by applying
// deltas one at a time, retaining only the current intermediate document in
// memory. A store walking a chain of N deltas to reach some stored full
// version uses one of these rather than materializing all N intermediate
// documents at once, which is what keeps reconstruction of a long chain at
// O(1) peak memory beyond the current version.
type ChainApplicator struct {
	current []byte
}

// NewChainApplicator begins a reconstruction walk from base, which must be a
// fully materialized document (the chain's full-text root).
func NewChainApplicator(base []byte) *ChainApplicator {
	current := make([]byte, len(base))
	copy(current, base)
	return &ChainApplicator{current: current}
}

// Apply advances the walk by one step, applying delta to the document held
// so far and replacing it with the result. It returns any error Delta.Apply
// itself returns, wrapped with the chain position implicitly by the caller.
func (c *ChainApplicator) Apply(delta Delta) error {
	next, err := delta.Apply(c.current)
	if err != nil {
		return err
	}
	c.current = next
	return nil
}

// Next reports the document as reconstructed so far, without ending the
// walk. The returned slice must not be mutated by the caller.
func (c *ChainApplicator) Next() []byte {
	return c.current
}

// Finish ends the walk and returns the final reconstructed document.
func (c *ChainApplicator) Finish() []byte {
	return c.current
}
