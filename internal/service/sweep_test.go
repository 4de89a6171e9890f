package service

import (
	"context"
	"testing"
	"time"

	"DocTrack/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSweepFixture(t *testing.T) (*SweepService, *gorm.DB, *fakeNotifier, *model.User) {
	t.Helper()
	db := newTestDB(t)
	notify := &fakeNotifier{}
	svc := NewSweepService(db, nil, testComplianceConfig(), notify, testLogger())
	user := makeUser(t, db, "Alice", "alice@corp.test", model.RoleDepartmentUser, "Engineering")
	return svc, db, notify, user
}

func seedTask(t *testing.T, db *gorm.DB, user *model.User, status string, due time.Time, lastReminder *time.Time) *model.ComplianceTask {
	t.Helper()
	doc := &model.Document{
		Title: "doc", Description: "d", Department: "Engineering",
		Status: model.DocStatusPendingReview, Access: model.AccessDepartment,
		UploadedByID: user.ID, CurrentVersion: 1,
	}
	require.NoError(t, db.Create(doc).Error)

	task := &model.ComplianceTask{
		DocumentID: doc.ID, Department: "Engineering", DueDate: due, Status: status,
		ComplianceType: "ISO", Description: "d", AssignedToID: user.ID,
		Reminders: true, LastReminderSent: lastReminder, IsActive: true,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func TestSweepMarksOverdue(t *testing.T) {
	svc, db, _, user := newSweepFixture(t)
	now := time.Now()

	pastPending := seedTask(t, db, user, model.ComplianceStatusPending, now.Add(-time.Hour), nil)
	pastOnTrack := seedTask(t, db, user, model.ComplianceStatusOnTrack, now.Add(-time.Hour), nil)
	pastResolved := seedTask(t, db, user, model.ComplianceStatusResolved, now.Add(-time.Hour), nil)
	future := seedTask(t, db, user, model.ComplianceStatusPending, now.Add(time.Hour), nil)

	n, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	status := func(id uint) string {
		var task model.ComplianceTask
		require.NoError(t, db.First(&task, id).Error)
		return task.Status
	}
	assert.Equal(t, model.ComplianceStatusOverdue, status(pastPending.ID))
	assert.Equal(t, model.ComplianceStatusOverdue, status(pastOnTrack.ID))
	// 已解决的不回头
	assert.Equal(t, model.ComplianceStatusResolved, status(pastResolved.ID))
	assert.Equal(t, model.ComplianceStatusPending, status(future.ID))
}

func TestSweepIsIdempotent(t *testing.T) {
	svc, db, _, user := newSweepFixture(t)
	seedTask(t, db, user, model.ComplianceStatusPending, time.Now().Add(-time.Hour), nil)

	n1, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n1)

	// 第二轮没有可推进的行
	n2, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n2)
}

func TestRemindersCooldown(t *testing.T) {
	svc, db, notify, user := newSweepFixture(t)
	now := time.Now()

	// 临期、从未提醒过 -> 发
	fresh := seedTask(t, db, user, model.ComplianceStatusPending, now.Add(48*time.Hour), nil)

	// 临期、1 小时前刚提醒过（冷却 72h）-> 不发
	recent := now.Add(-time.Hour)
	seedTask(t, db, user, model.ComplianceStatusPending, now.Add(48*time.Hour), &recent)

	// 逾期、上次通知 25 小时前（冷却 24h）-> 发
	stale := now.Add(-25 * time.Hour)
	seedTask(t, db, user, model.ComplianceStatusOverdue, now.Add(-time.Hour), &stale)

	// 已解决的不提醒
	seedTask(t, db, user, model.ComplianceStatusResolved, now.Add(-time.Hour), nil)

	sent, err := svc.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, notify.count(TplComplianceReminder))
	assert.Equal(t, 1, notify.count(TplComplianceOverdue))

	// 发送成功后盖章
	var after model.ComplianceTask
	require.NoError(t, db.First(&after, fresh.ID).Error)
	assert.True(t, after.ReminderSent)
	require.NotNil(t, after.LastReminderSent)

	// 冷却期内立即重跑不再发
	sent, err = svc.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestReminderFailureLeavesBookkeepingUntouched(t *testing.T) {
	svc, db, notify, user := newSweepFixture(t)
	notify.fail = true

	task := seedTask(t, db, user, model.ComplianceStatusPending, time.Now().Add(48*time.Hour), nil)

	sent, err := svc.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	// 发送失败不盖章，下一轮还会重试
	var after model.ComplianceTask
	require.NoError(t, db.First(&after, task.ID).Error)
	assert.False(t, after.ReminderSent)
	assert.Nil(t, after.LastReminderSent)

	notify.fail = false
	sent, err = svc.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestRunLockedWithoutRedisRunsInline(t *testing.T) {
	svc, _, _, _ := newSweepFixture(t)

	ran := false
	err := svc.RunLocked(context.Background(), "test:lock", time.Minute, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}
