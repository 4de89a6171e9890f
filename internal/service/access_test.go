package service

import (
	"errors"
	"testing"

	"DocTrack/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func seedDoc(t *testing.T, db *gorm.DB, doc *model.Document) *model.Document {
	t.Helper()
	if doc.Status == "" {
		doc.Status = model.DocStatusPendingReview
	}
	require.NoError(t, db.Create(doc).Error)
	return doc
}

func visibleIDs(t *testing.T, db *gorm.DB, user *model.User) []uint {
	t.Helper()
	var docs []model.Document
	require.NoError(t, db.Model(&model.Document{}).
		Scopes(NotArchivedScope, VisibleScope(user)).
		Find(&docs).Error)
	ids := make([]uint, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids
}

func TestVisibleScope(t *testing.T) {
	db := newTestDB(t)

	engUser := makeUser(t, db, "Alice", "alice@corp.test", model.RoleDepartmentUser, "Engineering")
	engAdmin := makeUser(t, db, "Erin", "erin@corp.test", model.RoleAdmin, "Engineering")
	salesUser := makeUser(t, db, "Bob", "bob@corp.test", model.RoleDepartmentUser, "Sales")

	// 规则 1: self + 本人上传
	ownSelf := seedDoc(t, db, &model.Document{
		Title: "own notes", Description: "d", Department: "Engineering",
		Access: model.AccessSelf, UploadedByID: engUser.ID, CurrentVersion: 1,
	})

	// 规则 2: self + allowedUsers 授权（跨部门也算）
	grantedSelf := seedDoc(t, db, &model.Document{
		Title: "granted", Description: "d", Department: "Sales",
		Access: model.AccessSelf, UploadedByID: salesUser.ID, CurrentVersion: 1,
		AllowedUsers: []model.User{*engUser},
	})

	// 规则 3: department + 同部门
	deptDoc := seedDoc(t, db, &model.Document{
		Title: "eng handbook", Description: "d", Department: "Engineering",
		Access: model.AccessDepartment, UploadedByID: engAdmin.ID, CurrentVersion: 1,
	})

	// 规则 4: cross-department，Engineering 在共享列表里
	crossDoc := seedDoc(t, db, &model.Document{
		Title: "policy", Description: "d", Department: "Sales",
		Access: model.AccessCrossDepartment, UploadedByID: salesUser.ID, CurrentVersion: 1,
		AllowedDepartments: datatypes.NewJSONSlice([]string{"Engineering", "HR"}),
	})

	// 对照组：别人的 self 文档
	otherSelf := seedDoc(t, db, &model.Document{
		Title: "bob private", Description: "d", Department: "Sales",
		Access: model.AccessSelf, UploadedByID: salesUser.ID, CurrentVersion: 1,
	})

	t.Run("department user sees own, granted and department docs", func(t *testing.T) {
		ids := visibleIDs(t, db, engUser)
		assert.Contains(t, ids, ownSelf.ID)
		assert.Contains(t, ids, grantedSelf.ID)
		assert.Contains(t, ids, deptDoc.ID)
		// cross-department 共享只对 admin 生效
		assert.NotContains(t, ids, crossDoc.ID)
		assert.NotContains(t, ids, otherSelf.ID)
	})

	t.Run("admin additionally sees cross-department shares", func(t *testing.T) {
		ids := visibleIDs(t, db, engAdmin)
		assert.Contains(t, ids, deptDoc.ID)
		assert.Contains(t, ids, crossDoc.ID)
		// admin 也不偷看别人的 self 文档
		assert.NotContains(t, ids, ownSelf.ID)
		assert.NotContains(t, ids, otherSelf.ID)
	})

	t.Run("uploader department user does not see own department-level doc from elsewhere", func(t *testing.T) {
		ids := visibleIDs(t, db, salesUser)
		assert.Contains(t, ids, grantedSelf.ID)
		assert.Contains(t, ids, otherSelf.ID)
		assert.NotContains(t, ids, deptDoc.ID)
		// 普通成员部门在 allowedDepartments 里也不行
		assert.NotContains(t, ids, crossDoc.ID)
	})
}

func TestCheckDepartmentAccess(t *testing.T) {
	admin := &model.User{Role: model.RoleAdmin, Department: "Engineering"}
	user := &model.User{Role: model.RoleDepartmentUser, Department: "Engineering"}

	assert.NoError(t, CheckDepartmentAccess(admin, "Sales"))
	assert.NoError(t, CheckDepartmentAccess(user, "Engineering"))

	err := CheckDepartmentAccess(user, "Sales")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForbidden))
}
