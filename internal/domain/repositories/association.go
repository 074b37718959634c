package repositories

import "context"

// AssociationStore persists the externalId -> accountId mapping.
// Each operation is atomic against the backing store.
type AssociationStore interface {
	// Put upserts the mapping. Last write wins.
	Put(ctx context.Context, externalID, userID string) error

	// Get returns the mapped account, with found=false when absent.
	Get(ctx context.Context, externalID string) (userID string, found bool, err error)

	// Delete removes the mapping. Deleting an absent key succeeds.
	Delete(ctx context.Context, externalID string) error
}
