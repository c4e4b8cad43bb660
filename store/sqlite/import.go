package sqlite

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/warp/staffing-engine/factory"
	"github.com/warp/staffing-engine/forecast"
	"github.com/warp/staffing-engine/overtime"
)

// ImportStats counts what an import wrote.
type ImportStats struct {
	People      int `json:"people"`
	Projects    int `json:"projects"`
	Leave       int `json:"leave"`
	TimeEntries int `json:"timeEntries"`
	Approvals   int `json:"approvals"`
	Holidays    int `json:"holidays"`
	Bonuses     int `json:"bonuses"`
}

// Import writes a parsed document in one transaction. Records with ids
// are upserted, so importing the same document twice is harmless.
func (s *Store) Import(ctx context.Context, doc *factory.Document) (ImportStats, error) {
	var stats ImportStats
	err := s.inTx(ctx, func(q querier) error {
		for _, p := range doc.People {
			if err := s.savePerson(ctx, q, p); err != nil {
				return err
			}
			stats.People++
		}
		for _, p := range doc.Projects {
			if err := s.saveProject(ctx, q, p); err != nil {
				return err
			}
			stats.Projects++
		}
		for _, r := range doc.Leave {
			if r.ID == "" {
				r.ID = uuid.NewString()
			}
			if err := saveLeave(ctx, q, r); err != nil {
				return err
			}
			stats.Leave++
		}
		for _, te := range doc.TimeEntries {
			if te.ID == "" {
				te.ID = uuid.NewString()
			}
			if err := saveTimeEntry(ctx, q, te); err != nil {
				return err
			}
			stats.TimeEntries++
		}
		for _, a := range doc.Approvals {
			if err := saveApproval(ctx, q, a); err != nil {
				return err
			}
			stats.Approvals++
		}
		for _, h := range doc.Holidays {
			if h.ID == "" {
				h.ID = h.Date.String()
			}
			if err := saveHoliday(ctx, q, h); err != nil {
				return err
			}
			stats.Holidays++
		}
		for _, b := range doc.Bonuses {
			if err := saveBonus(ctx, q, b.PersonID, b.Month, b.Amount); err != nil {
				return err
			}
			stats.Bonuses++
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}

	log.WithFields(log.Fields{
		"people":       stats.People,
		"projects":     stats.Projects,
		"leave":        stats.Leave,
		"time_entries": stats.TimeEntries,
		"approvals":    stats.Approvals,
		"holidays":     stats.Holidays,
		"bonuses":      stats.Bonuses,
	}).Info("imported document")
	return stats, nil
}

var (
	_ forecast.Source = (*Store)(nil)
	_ overtime.Source = (*Store)(nil)
)
