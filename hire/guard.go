package hire

import "gigflow/gig"

// AuthorizeHire allows only the gig's owner to hire on it.
func AuthorizeHire(actorID string, g gig.Gig) error {
	if !g.OwnedBy(actorID) {
		return ErrUnauthorized
	}
	return nil
}
