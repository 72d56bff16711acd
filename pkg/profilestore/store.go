// Package profilestore defines C3: durable structured storage for Profiles
// (client/brand/person) and their Facts, with referential integrity against
// Document↔Profile links enforced atomically on both sides.
package profilestore

import (
	"context"

	"github.com/MrWong99/claimwright/pkg/coretypes"
)

// Store is the C3 Profile Store contract.
type Store interface {
	CreateProfile(ctx context.Context, p coretypes.Profile) (string, error)
	GetProfile(ctx context.Context, id string) (*coretypes.Profile, error)
	// ListProfiles returns profiles of the given kind (or every kind when
	// kind is empty) that carry every tag in tagFilter.
	ListProfiles(ctx context.Context, kind coretypes.ProfileKind, tagFilter []string) ([]coretypes.Profile, error)
	DeleteProfile(ctx context.Context, id string) error

	AddFact(ctx context.Context, profileID string, f coretypes.Fact) (string, error)
	RemoveFact(ctx context.Context, profileID, factID string) error

	// Link and Unlink update both the Document's linked-profile list and the
	// Profile's linked-document list atomically. Both are idempotent: a
	// repeated Link/Unlink is observationally equivalent to a single call.
	Link(ctx context.Context, documentID, profileID string) error
	Unlink(ctx context.Context, documentID, profileID string) error

	// LinkedDocuments returns the document ids linked to profileID.
	LinkedDocuments(ctx context.Context, profileID string) ([]string, error)
	// LinkedProfiles returns the profile ids linked to documentID.
	LinkedProfiles(ctx context.Context, documentID string) ([]string, error)

	// OnDocumentDeleted removes documentID from every profile's linked list.
	// Called by the knowledge base when a Document is deleted.
	OnDocumentDeleted(ctx context.Context, documentID string) error

	// RepairOrphanLinks sweeps for asymmetric links and repairs them. Run
	// on startup per the link-invariant-enforcement contract.
	RepairOrphanLinks(ctx context.Context) (repaired int, err error)
}
