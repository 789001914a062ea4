// Package gamify journals experience awards and announces them.
package gamify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/studyd/internal/storage"
)

// XPPerLevel is the experience needed to go up one level.
const XPPerLevel = 1000

// AwardStore persists awards.
type AwardStore interface {
	SaveAward(a storage.Award) error
	TotalXP() (int, error)
	RecentAwards(limit int) ([]storage.Award, error)
	AwardsByReason() (map[string]int, error)
}

// Notifier shows a celebration to the user.
type Notifier interface {
	Celebrate(msg string)
}

var labels = map[string]string{
	"focus_session":       "focus session",
	"checkin":             "study check-in",
	"milestone_completed": "milestone",
	"calendar_sync":       "calendar sync",
}

// Journal records awards locally. Award never fails; storage errors are
// logged and the celebration is still shown.
type Journal struct {
	store  AwardStore
	notify Notifier
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Journal. notify may be nil.
func New(store AwardStore, notify Notifier) *Journal {
	return &Journal{
		store:  store,
		notify: notify,
		now:    time.Now,
		logger: slog.Default().With("component", "gamify"),
	}
}

// Award journals xp for reason and celebrates it.
func (j *Journal) Award(ctx context.Context, reason string, xp int) {
	a := storage.Award{
		ID:        uuid.New().String(),
		CreatedAt: j.now(),
		Reason:    reason,
		XP:        xp,
	}
	if err := j.store.SaveAward(a); err != nil {
		j.logger.Error("saving award failed", "reason", reason, "xp", xp, "error", err)
	} else {
		j.logger.Info("xp awarded", "reason", reason, "xp", xp)
	}

	if j.notify != nil {
		j.notify.Celebrate(fmt.Sprintf("+%d XP for your %s!", xp, Label(reason)))
	}
}

// Label is the human name of an award reason.
func Label(reason string) string {
	if l, ok := labels[reason]; ok {
		return l
	}
	return reason
}

// Summary is the local tally of the journal.
type Summary struct {
	Total     int             `json:"total"`
	Level     int             `json:"level"`
	IntoLevel int             `json:"into_level"`
	NextLevel int             `json:"next_level"`
	ByReason  map[string]int  `json:"by_reason"`
	Recent    []storage.Award `json:"recent"`
}

// Summary returns the totals and the most recent awards.
func (j *Journal) Summary(recent int) (Summary, error) {
	total, err := j.store.TotalXP()
	if err != nil {
		return Summary{}, fmt.Errorf("summing awards: %w", err)
	}
	awards, err := j.store.RecentAwards(recent)
	if err != nil {
		return Summary{}, fmt.Errorf("listing awards: %w", err)
	}
	byReason, err := j.store.AwardsByReason()
	if err != nil {
		return Summary{}, fmt.Errorf("grouping awards: %w", err)
	}
	return Summary{
		Total:     total,
		Level:     total/XPPerLevel + 1,
		IntoLevel: total % XPPerLevel,
		NextLevel: XPPerLevel,
		ByReason:  byReason,
		Recent:    awards,
	}, nil
}
