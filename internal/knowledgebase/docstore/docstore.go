// Package docstore defines the durable Document metadata contract the
// knowledge base composes alongside the Vector Index and Profile Store.
// Document linked-profile membership is NOT stored here — per the link-graph
// design note it lives solely in the Profile Store's link relation — so
// DocumentStore only ever persists a Document's own fields.
package docstore

import (
	"context"

	"github.com/MrWong99/claimwright/pkg/coretypes"
)

// DocumentStore is the durable record of ingested Documents.
type DocumentStore interface {
	Put(ctx context.Context, d coretypes.Document) error
	Get(ctx context.Context, id string) (*coretypes.Document, error)
	List(ctx context.Context) ([]coretypes.Document, error)
	Delete(ctx context.Context, id string) error
}
