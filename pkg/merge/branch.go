package merge

import (
	"context"

	"github.com/strata-vcs/strata/pkg/cert"
	"github.com/strata-vcs/strata/pkg/hashcodec"
)

// CertSource is the store surface branch-head computation needs beyond
// RevisionSource: the ability to enumerate every cert recorded under a
// given name, regardless of target.
type CertSource interface {
	RevisionSource
	CertsByName(ctx context.Context, name string) ([]*cert.Cert, error)
}

// BranchHeads returns the revisions that are heads of branch: those
// carrying a trusted branch=name cert with no descendant in the set that
// also carries one. Certs from unknown or untrusted keys never enter the
// candidate set in the first place, so they cannot influence the result.
func BranchHeads(ctx context.Context, s CertSource, branch string, keys cert.KeyLookup, policy cert.Policy) ([]hashcodec.Hash, error) {
	certs, err := s.CertsByName(ctx, cert.NameBranch)
	if err != nil {
		return nil, err
	}
	trusted := cert.EraseBogus(certs, keys, policy)

	candidates := make(map[hashcodec.Hash]bool)
	for _, c := range trusted {
		if string(c.Value) == branch {
			candidates[c.Target] = true
		}
	}

	heads := make([]hashcodec.Hash, 0, len(candidates))
	for rev := range candidates {
		isHead := true
		for other := range candidates {
			if other == rev {
				continue
			}
			ok, err := IsAncestor(ctx, s, rev, other)
			if err != nil {
				return nil, err
			}
			if ok {
				// rev has a descendant (other) still in this branch.
				isHead = false
				break
			}
		}
		if isHead {
			heads = append(heads, rev)
		}
	}
	return heads, nil
}
