package storage

import (
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestMigrationsOrdered verifies migrations are applied in ascending numeric order.
func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}

	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

// TestIndexesExist verifies the journal indexes are created by the migration.
func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	for _, idx := range []string{"idx_xp_awards_created", "idx_notices_seen_created"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found in sqlite_master", idx)
		}
	}
}

func TestAwards_TotalAndRecent(t *testing.T) {
	s := openTestStore(t)

	if total, err := s.TotalXP(); err != nil || total != 0 {
		t.Fatalf("TotalXP on empty journal = %d, %v", total, err)
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	awards := []Award{
		{ID: "a1", CreatedAt: base, Reason: "focus_session", XP: 100},
		{ID: "a2", CreatedAt: base.Add(time.Hour), Reason: "milestone_completed", XP: 200},
		{ID: "a3", CreatedAt: base.Add(2 * time.Hour), Reason: "focus_session", XP: 100},
	}
	for _, a := range awards {
		if err := s.SaveAward(a); err != nil {
			t.Fatalf("SaveAward(%s): %v", a.ID, err)
		}
	}

	total, err := s.TotalXP()
	if err != nil {
		t.Fatalf("TotalXP: %v", err)
	}
	if total != 400 {
		t.Errorf("TotalXP = %d, want 400", total)
	}

	recent, err := s.RecentAwards(2)
	if err != nil {
		t.Fatalf("RecentAwards: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "a3" || recent[1].ID != "a2" {
		t.Fatalf("RecentAwards = %+v, want a3, a2", recent)
	}
	if !recent[0].CreatedAt.Equal(awards[2].CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", recent[0].CreatedAt, awards[2].CreatedAt)
	}

	byReason, err := s.AwardsByReason()
	if err != nil {
		t.Fatalf("AwardsByReason: %v", err)
	}
	if byReason["focus_session"] != 200 || byReason["milestone_completed"] != 200 {
		t.Errorf("AwardsByReason = %v", byReason)
	}
}

func TestSaveAward_DuplicateID(t *testing.T) {
	s := openTestStore(t)

	a := Award{ID: "dup", CreatedAt: time.Now(), Reason: "checkin", XP: 150}
	if err := s.SaveAward(a); err != nil {
		t.Fatalf("SaveAward: %v", err)
	}
	if err := s.SaveAward(a); err == nil {
		t.Error("expected primary key violation")
	}
}

func TestNotices_ListAndMarkRead(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i := range 3 {
		n := Notice{
			ID:        fmt.Sprintf("n%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Kind:      "alert",
			Message:   fmt.Sprintf("message %d", i),
		}
		if err := s.SaveNotice(n); err != nil {
			t.Fatalf("SaveNotice: %v", err)
		}
	}

	if err := s.MarkNoticeRead("n2"); err != nil {
		t.Fatalf("MarkNoticeRead: %v", err)
	}

	unread, err := s.ListNotices(10, true)
	if err != nil {
		t.Fatalf("ListNotices: %v", err)
	}
	if len(unread) != 2 || unread[0].ID != "n1" || unread[1].ID != "n0" {
		t.Errorf("unread = %+v, want n1, n0", unread)
	}

	all, err := s.ListNotices(10, false)
	if err != nil {
		t.Fatalf("ListNotices: %v", err)
	}
	if len(all) != 3 || !all[0].Read || all[1].Read {
		t.Errorf("all = %+v", all)
	}

	n, err := s.MarkAllNoticesRead()
	if err != nil {
		t.Fatalf("MarkAllNoticesRead: %v", err)
	}
	if n != 2 {
		t.Errorf("MarkAllNoticesRead changed %d, want 2", n)
	}
}

func TestMarkNoticeRead_NotFound(t *testing.T) {
	s := openTestStore(t)

	if err := s.MarkNoticeRead("missing"); err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
