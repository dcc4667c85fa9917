package analytics

import (
	"context"
	"sort"
	"time"

	"sentinel-support/internal/storage"
)

// Source lists audit entries for a guild.
type Source interface {
	ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]storage.AuditLog, error)
}

type Service struct {
	source Source
}

func New(source Source) *Service {
	return &Service{source: source}
}

type Report struct {
	Total   int
	ByLevel map[string]int
	ByEvent map[string]int
}

// EventCount is one row of a report's event breakdown.
type EventCount struct {
	Event string
	Count int
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	logs, err := s.source.ListAuditLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{ByLevel: make(map[string]int), ByEvent: make(map[string]int)}
	for _, log := range logs {
		report.Total++
		report.ByLevel[log.Level]++
		report.ByEvent[log.Event]++
	}
	return report, nil
}

// TopEvents returns the n most frequent events, ties broken by name.
func (r Report) TopEvents(n int) []EventCount {
	out := make([]EventCount, 0, len(r.ByEvent))
	for event, count := range r.ByEvent {
		out = append(out, EventCount{Event: event, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Event < out[j].Event
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
