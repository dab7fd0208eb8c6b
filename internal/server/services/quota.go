package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/repomanager"
)

// Usage is an owner's committed storage against its limit. A Limit of
// zero or below means unlimited.
type Usage struct {
	Used  int64
	Limit int64
}

// Unlimited reports whether no limit applies.
func (u *Usage) Unlimited() bool {
	return u.Limit <= 0
}

// Remaining returns the bytes still available, or -1 when unlimited.
func (u *Usage) Remaining() int64 {
	if u.Unlimited() {
		return -1
	}
	if u.Used >= u.Limit {
		return 0
	}
	return u.Limit - u.Used
}

// QuotaTracker admits uploads against per-owner limits. Usage is always
// recomputed from the files table.
type QuotaTracker struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	limitFor    func(owner string) int64
}

func NewQuotaTracker(db *sql.DB, repomanager repomanager.RepositoryManager, limitFor func(owner string) int64) *QuotaTracker {
	return &QuotaTracker{db: db, repomanager: repomanager, limitFor: limitFor}
}

// Usage returns the owner's used bytes and limit.
func (q *QuotaTracker) Usage(ctx context.Context, owner string) (*Usage, error) {
	used, err := q.repomanager.Files(q.db).SumActiveSize(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &Usage{Used: used, Limit: q.limitFor(owner)}, nil
}

// HasCapacity reports whether additionalBytes fit into the owner's quota.
func (q *QuotaTracker) HasCapacity(ctx context.Context, owner string, additionalBytes int64) (bool, error) {
	u, err := q.Usage(ctx, owner)
	if err != nil {
		return false, err
	}
	if u.Unlimited() {
		return true, nil
	}
	return u.Used+additionalBytes <= u.Limit, nil
}
