package readmodel

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for unit tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	views map[uuid.UUID]LoanView
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		views: make(map[uuid.UUID]LoanView),
	}
}

func (r *MemoryRepository) Save(ctx context.Context, view *LoanView) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.views[view.LoanID] = *view
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, loanID uuid.UUID) (*LoanView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	view, ok := r.views[loanID]
	if !ok {
		return nil, ErrNotFound
	}
	return &view, nil
}

func (r *MemoryRepository) FindByMemberID(ctx context.Context, memberID uuid.UUID) ([]*LoanView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*LoanView
	for _, view := range r.views {
		if view.MemberID == memberID {
			v := view
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LoanedAt.After(out[j].LoanedAt)
	})
	return out, nil
}

func (r *MemoryRepository) CountActiveForMember(ctx context.Context, memberID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, view := range r.views {
		if view.MemberID == memberID && (view.Status == "active" || view.Status == "overdue") {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) FindOverdueCandidates(ctx context.Context, cutoff time.Time) ([]*LoanView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*LoanView
	for _, view := range r.views {
		if view.Status == "active" && view.DueDate.Before(cutoff) {
			v := view
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out, nil
}
