package store

import (
	"context"

	"github.com/google/uuid"
)

// Fields is the schemaless body of a document record.
type Fields map[string]any

// RecordStore is the document-store collaborator. The upload pipeline only
// ever creates placeholder records and patches them; everything else about
// the social data model lives behind this boundary.
type RecordStore interface {
	CreateRecord(ctx context.Context, collection string, fields Fields) (uuid.UUID, error)
	PatchRecord(ctx context.Context, collection string, id uuid.UUID, fields Fields) error
}
