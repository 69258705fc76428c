package query

import (
	"context"
	"time"

	"github.com/classhub/classbot/internal/domain/homework"
)

// HomeworkSource yields the swept homework map.
type HomeworkSource interface {
	Current(ctx context.Context) (homework.Map, error)
	Expiry(d time.Time) time.Time
	Today() time.Time
}

// GetHomeworkResult is the entry for one date.
type GetHomeworkResult struct {
	Date   time.Time
	Task   string
	Found  bool
	Expiry time.Time
}

// GetHomeworkHandler reads homework for a date.
type GetHomeworkHandler struct {
	source HomeworkSource
}

// NewGetHomeworkHandler creates a GetHomeworkHandler.
func NewGetHomeworkHandler(source HomeworkSource) *GetHomeworkHandler {
	return &GetHomeworkHandler{source: source}
}

// Handle returns the task for date, if any.
func (h *GetHomeworkHandler) Handle(ctx context.Context, date time.Time) (*GetHomeworkResult, error) {
	m, err := h.source.Current(ctx)
	if err != nil {
		return nil, err
	}
	task, ok := m[homework.KeyOf(date)]
	return &GetHomeworkResult{
		Date:   date,
		Task:   task,
		Found:  ok,
		Expiry: h.source.Expiry(date),
	}, nil
}

// ListedHomework is one line of the upcoming list.
type ListedHomework struct {
	Date    time.Time
	Expiry  time.Time
	Preview string
}

// ListHomeworkHandler lists upcoming homework.
type ListHomeworkHandler struct {
	source HomeworkSource
}

// NewListHomeworkHandler creates a ListHomeworkHandler.
func NewListHomeworkHandler(source HomeworkSource) *ListHomeworkHandler {
	return &ListHomeworkHandler{source: source}
}

// Handle returns at most n upcoming entries, n clamped to the list limits.
func (h *ListHomeworkHandler) Handle(ctx context.Context, n int) ([]ListedHomework, error) {
	m, err := h.source.Current(ctx)
	if err != nil {
		return nil, err
	}
	items := homework.Upcoming(m, h.source.Today(), homework.ClampCount(n))
	out := make([]ListedHomework, 0, len(items))
	for _, it := range items {
		out = append(out, ListedHomework{
			Date:    it.Date,
			Expiry:  h.source.Expiry(it.Date),
			Preview: homework.Preview(it.Task),
		})
	}
	return out, nil
}
