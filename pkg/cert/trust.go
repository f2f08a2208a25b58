package cert

// Trust is the three-valued verdict a cert (or a set of certs sharing a
// name/target) can carry: ok means signature-valid and policy-approved,
// bad means signature-invalid or policy-rejected, unknown means signed by
// a key the caller has no opinion about.
type Trust int

const (
	TrustUnknown Trust = iota
	TrustOK
	TrustBad
)

func (t Trust) String() string {
	switch t {
	case TrustOK:
		return "ok"
	case TrustBad:
		return "bad"
	default:
		return "unknown"
	}
}

// Policy decides whether a cert whose signature has already verified as
// bytes-correct should actually be trusted. It stands in for the
// embedder-supplied trust hook (the original system exposed this as a Lua
// callback); here it's just a function value the caller plugs in.
type Policy func(c *Cert) bool

// DefaultPolicy trusts every signature-correct cert. Callers that need
// branch-restricted or multi-signer trust supply their own Policy.
func DefaultPolicy(*Cert) bool { return true }

// Check evaluates a single cert's trust. It looks up the signer's public
// key via keys; an unknown key id is reported as TrustUnknown rather than
// TrustBad, since "no opinion" and "actively distrusted" are different
// things a caller needs to distinguish (an unknown signer might simply not
// have been imported yet). A known key whose signature fails to verify, or
// whose cert the policy rejects, is TrustBad.
func Check(c *Cert, keys KeyLookup, policy Policy) Trust {
	pub, ok := keys(c.SignerKeyID)
	if !ok {
		return TrustUnknown
	}
	if err := c.Verify(pub); err != nil {
		return TrustBad
	}
	if policy == nil {
		policy = DefaultPolicy
	}
	if !policy(c) {
		return TrustBad
	}
	return TrustOK
}

// EraseBogus filters certs down to those Check reports as TrustOK,
// discarding TrustBad and TrustUnknown certs. This is the "erase_bogus_certs"
// step: once a target's certs are loaded, anything that doesn't check out
// should not influence further computation (branch membership, annotate
// attribution, and so on).
func EraseBogus(certs []*Cert, keys KeyLookup, policy Policy) []*Cert {
	var kept []*Cert
	for _, c := range certs {
		if Check(c, keys, policy) == TrustOK {
			kept = append(kept, c)
		}
	}
	return kept
}
