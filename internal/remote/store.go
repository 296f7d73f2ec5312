// Package remote defines the contract of the authoritative document store
// that owns every week, and the addressing scheme of its documents.
//
// Implementations live in the mongostore (document database) and pgstore
// (PostgreSQL JSONB table) subpackages.
package remote

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/weeklog/internal/client/codec"
	"github.com/dmitrijs2005/weeklog/internal/client/models"
)

// DocumentPath addresses one owner's week.
type DocumentPath struct {
	OwnerID string
	WeekKey string
}

func PathFor(ownerID string, isoYear, isoWeek int) DocumentPath {
	return DocumentPath{OwnerID: ownerID, WeekKey: models.WeekKey(isoYear, isoWeek)}
}

// String renders the path as owners/{ownerId}/weeks/{weekKey}.
func (p DocumentPath) String() string {
	return fmt.Sprintf("owners/%s/weeks/%s", p.OwnerID, p.WeekKey)
}

// TxFunc decides what to write given the document currently stored (nil
// when there is none). Returning a nil document commits nothing; returning
// an error aborts and the error reaches the caller of RunTransaction as is.
type TxFunc func(ctx context.Context, existing *codec.StoredDocument) (*codec.WireDocument, error)

type Store interface {
	// Get returns common.ErrorNotFound when the document does not exist.
	Get(ctx context.Context, path DocumentPath) (*codec.StoredDocument, error)
	// RunTransaction reads the document at path and conditionally writes it
	// as a single atomic unit. Store failures wrap common.ErrRemoteUnavailable.
	RunTransaction(ctx context.Context, path DocumentPath, fn TxFunc) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
