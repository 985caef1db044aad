package sync

import (
	"time"

	"github.com/tidesys/dagmirror/pkg/domain"
)

type Error struct {
	SpecPath  string `json:"specPath,omitempty"`
	ErrorType string `json:"errorType"`
	Message   string `json:"message"`
}

type Result struct {
	TotalProcessed int       `json:"totalProcessed"`
	Created        int       `json:"created"`
	Updated        int       `json:"updated"`
	Failed         int       `json:"failed"`
	Errors         []Error   `json:"errors"`
	SyncedAt       time.Time `json:"syncedAt"`
}

func ComposeResult(r domain.SyncResult) Result {
	errs := make([]Error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, Error{
			SpecPath:  e.SpecPath,
			ErrorType: string(e.Type),
			Message:   e.Message,
		})
	}
	return Result{
		TotalProcessed: r.TotalProcessed,
		Created:        r.Created,
		Updated:        r.Updated,
		Failed:         r.Failed,
		Errors:         errs,
		SyncedAt:       r.SyncedAt,
	}
}

type Stats struct {
	Total       int `json:"total"`
	Synced      int `json:"synced"`
	PendingSync int `json:"pendingSync"`
	Stale       int `json:"stale"`
}

func ComposeStats(s domain.SyncStats) Stats {
	return Stats{
		Total:       s.Total,
		Synced:      s.Synced,
		PendingSync: s.PendingSync,
		Stale:       s.Stale,
	}
}
