package shortener

import (
	"context"
	"time"
)

// Repository defines the storage operations the service relies on.
// Implementations must enforce hash and code uniqueness among non-deleted
// records themselves; the service's existence checks are not atomic.
type Repository interface {
	// Insert stores a provisional record and sets its ID.
	// Returns ErrHashTaken if a non-deleted record already has the same hash.
	Insert(ctx context.Context, shortURL *ShortURL) error

	// AssignCode sets the code of the record with the given ID.
	// Returns ErrCodeTaken if the code is already assigned to another record
	// and ErrRecordNotFound if no such record exists.
	AssignCode(ctx context.Context, id int64, code Code, updatedAt time.Time) error

	ExistsByHash(ctx context.Context, hash URLHash) (bool, error)
	ExistsByCode(ctx context.Context, code Code) (bool, error)

	// GetByCode returns the non-deleted record with the code, or ErrRecordNotFound.
	GetByCode(ctx context.Context, code Code) (*ShortURL, error)

	// Discard removes a provisional record. Records that already carry a code
	// are left untouched and ErrRecordNotFound is returned.
	Discard(ctx context.Context, id int64) error
}

// ProvisionalPurger is implemented by repositories that can garbage-collect
// provisional records left behind by interrupted requests.
type ProvisionalPurger interface {
	PurgeProvisional(ctx context.Context, createdBefore time.Time) (int64, error)
}
