package app

import (
	"context"
	"fmt"

	"frontdesk/internal/domain"
)

type HistoryService struct {
	repo  domain.HistoryRepository
	reads *ReadCache
}

func NewHistoryService(repo domain.HistoryRepository, reads *ReadCache) *HistoryService {
	return &HistoryService{repo: repo, reads: reads}
}

// ListHistory returns one page of archived stays, newest first, together with
// analytics computed over the whole archive.
func (s *HistoryService) ListHistory(ctx context.Context, pg domain.PageQuery) (domain.HistoryPage, error) {
	pg = pg.Normalize()
	key := fmt.Sprintf("list:%d:%d", pg.Page, pg.Limit)
	return readThrough(ctx, s.reads, domain.EntityHistory, key, func() (domain.HistoryPage, error) {
		page, err := s.repo.ListHistory(ctx, pg)
		if err != nil {
			return domain.HistoryPage{}, err
		}
		a, err := s.repo.Analytics(ctx)
		if err != nil {
			return domain.HistoryPage{}, err
		}
		return domain.HistoryPage{Items: page.Items, Analytics: a, Pagination: page.Pagination}, nil
	})
}
