package api

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/studyd/internal/gamify"
	"github.com/kalambet/studyd/internal/session"
	"github.com/kalambet/studyd/internal/storage"
)

var (
	_ session.View    = (*NoticeBoard)(nil)
	_ gamify.Notifier = (*NoticeBoard)(nil)
)

// Notice kinds.
const (
	NoticeAlert       = "alert"
	NoticeCelebration = "celebration"
)

// NoticeStore persists notices.
type NoticeStore interface {
	SaveNotice(n storage.Notice) error
	ListNotices(limit int, unreadOnly bool) ([]storage.Notice, error)
	MarkNoticeRead(id string) error
	MarkAllNoticesRead() (int, error)
}

// NoticeBoard is the daemon's view: alerts from the session and
// celebrations from the award journal are kept until a client reads them.
// Transcript changes bump a revision clients can poll instead.
type NoticeBoard struct {
	store    NoticeStore
	now      func() time.Time
	logger   *slog.Logger
	revision atomic.Uint64
}

func NewNoticeBoard(store NoticeStore) *NoticeBoard {
	return &NoticeBoard{
		store:  store,
		now:    time.Now,
		logger: slog.Default().With("component", "notices"),
	}
}

// ScrollToBottom records that the transcript changed.
func (b *NoticeBoard) ScrollToBottom() {
	b.revision.Add(1)
}

// Revision counts transcript changes since start.
func (b *NoticeBoard) Revision() uint64 {
	return b.revision.Load()
}

func (b *NoticeBoard) Alert(msg string) {
	b.post(NoticeAlert, msg)
}

func (b *NoticeBoard) Celebrate(msg string) {
	b.post(NoticeCelebration, msg)
}

func (b *NoticeBoard) post(kind, msg string) {
	n := storage.Notice{
		ID:        uuid.New().String(),
		CreatedAt: b.now(),
		Kind:      kind,
		Message:   msg,
	}
	if err := b.store.SaveNotice(n); err != nil {
		b.logger.Error("saving notice failed", "kind", kind, "error", err)
		return
	}
	b.logger.Info("notice", "kind", kind, "message", msg)
}

func (b *NoticeBoard) List(limit int, unreadOnly bool) ([]storage.Notice, error) {
	return b.store.ListNotices(limit, unreadOnly)
}

func (b *NoticeBoard) MarkRead(id string) error {
	return b.store.MarkNoticeRead(id)
}

func (b *NoticeBoard) MarkAllRead() (int, error) {
	return b.store.MarkAllNoticesRead()
}
