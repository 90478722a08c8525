package item

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lostfound-api/internal/domain"
)

// StatusCounts maps a status label to the number of postings in it.
type StatusCounts map[string]int

type Statistics struct {
	Lost   StatusCounts `json:"lost"`
	Found  StatusCounts `json:"found"`
	Totals StatusCounts `json:"totals"`
}

// Statistics counts postings per status for both variants. Every
// (type, status) pair is an independent index query run concurrently.
func (s *service) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{Lost: StatusCounts{}, Found: StatusCounts{}, Totals: StatusCounts{}}
	byType := map[domain.ItemType]StatusCounts{
		domain.ItemTypeLost:  stats.Lost,
		domain.ItemTypeFound: stats.Found,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, t := range domain.ItemTypes {
		for _, st := range domain.AllItemStatuses {
			t, st := t, st
			g.Go(func() error {
				n, err := s.repo.CountByStatus(gctx, t, st)
				if err != nil {
					return fmt.Errorf("count %s %s: %w", t, st, err)
				}
				mu.Lock()
				byType[t][st.Label()] = n
				stats.Totals[st.Label()] += n
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
