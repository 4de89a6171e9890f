package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"DocTrack/internal/dto"
	"DocTrack/internal/model"
	"DocTrack/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileUpload 上传文件的流式句柄，Handler 从 multipart 里拆出来
type FileUpload struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

type DocumentService struct {
	db     *gorm.DB
	blobs  BlobStore
	users  repository.UserRepository
	notify Notifier
	logger *zap.Logger
}

func NewDocumentService(db *gorm.DB, blobs BlobStore, users repository.UserRepository, notify Notifier, logger *zap.Logger) *DocumentService {
	return &DocumentService{
		db:     db,
		blobs:  blobs,
		users:  users,
		notify: notify,
		logger: logger.With(zap.String("service", "document")),
	}
}

// Upload 上传新文档：先落文件再写元数据，元数据失败则删掉已传的文件
// 归属部门取自上传者，客户端传什么都不认
func (s *DocumentService) Upload(ctx context.Context, user *model.User, req dto.UploadDocumentReq, file FileUpload) (*model.Document, error) {
	access := req.Access
	if access == "" {
		access = model.AccessSelf
	}
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	// 1. 按访问级别整理 allowedDepartments
	allowedDepartments, err := s.resolveAllowedDepartments(user, access, req.AllowedDepartments)
	if err != nil {
		return nil, err
	}

	// 2. 文件先进 Blob 存储（不可逆操作靠前）
	key := fmt.Sprintf("documents/%s%s", uuid.New().String(), filepath.Ext(file.Name))
	url, err := s.blobs.Put(ctx, key, file.Reader, file.Size, file.ContentType)
	if err != nil {
		return nil, err
	}

	// 3. 组装 Model：版本 1，初始状态 Pending Review
	now := time.Now()
	doc := &model.Document{
		Title:              req.Title,
		Description:        req.Description,
		Department:         user.Department,
		Status:             model.DocStatusPendingReview,
		Category:           req.Category,
		Language:           req.Language,
		Priority:           priority,
		Tags:               req.Tags,
		CurrentVersion:     1,
		UploadedByID:       user.ID,
		Access:             access,
		AllowedDepartments: allowedDepartments,
		Versions: []model.DocumentVersion{{
			FileURL:       url,
			StorageKey:    key,
			UploadedByID:  user.ID,
			VersionNumber: 1,
			UploadedAt:    now,
		}},
	}

	// 4. 落库失败时补偿清理，不留孤儿文件
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		if rmErr := s.blobs.Remove(ctx, key); rmErr != nil {
			s.logger.Error("orphan cleanup failed", zap.String("key", key), zap.Error(rmErr))
		}
		return nil, err
	}

	return doc, nil
}

// resolveAllowedDepartments 上传时的共享范围推导：
//   - self: 清空（只有显式 allowedUsers 授权）
//   - department: 记自己的部门
//   - cross-department: 用请求里的列表；没给就默认共享给所有其他已知部门
func (s *DocumentService) resolveAllowedDepartments(user *model.User, access string, requested []string) ([]string, error) {
	switch access {
	case model.AccessSelf:
		return nil, nil
	case model.AccessDepartment:
		return []string{user.Department}, nil
	case model.AccessCrossDepartment:
		if len(requested) > 0 {
			return requested, nil
		}
		all, err := s.users.ActiveDepartments()
		if err != nil {
			return nil, err
		}
		others := make([]string, 0, len(all))
		for _, d := range all {
			if d != user.Department {
				others = append(others, d)
			}
		}
		return others, nil
	default:
		return nil, fmt.Errorf("unknown access level %q: %w", access, ErrInvalidInput)
	}
}

// listQuery 每次新建查询链，避免 GORM 条件在 Count/Find 之间串味
func (s *DocumentService) listQuery(user *model.User, q dto.ListDocumentsQuery) *gorm.DB {
	db := s.db.Model(&model.Document{}).
		Scopes(NotArchivedScope, VisibleScope(user))

	// 检索是在已过滤集合上的再收窄，不会扩大可见范围
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		db = db.Where(
			s.db.Where("LOWER(documents.title) LIKE LOWER(?)", pattern).
				Or("LOWER(documents.description) LIKE LOWER(?)", pattern).
				Or("LOWER(CAST(documents.tags AS TEXT)) LIKE LOWER(?)", pattern))
	}
	if q.Status != "" {
		db = db.Where("documents.status = ?", q.Status)
	}
	return db
}

func (s *DocumentService) List(ctx context.Context, user *model.User, q dto.ListDocumentsQuery) ([]model.Document, dto.Pagination, []dto.StatusCount, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.SortBy == "" {
		q.SortBy = "created_at"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}

	var total int64
	if err := s.listQuery(user, q).WithContext(ctx).Count(&total).Error; err != nil {
		return nil, dto.Pagination{}, nil, err
	}

	var docs []model.Document
	err := s.listQuery(user, q).WithContext(ctx).
		Preload("UploadedBy").
		Preload("ReviewedBy").
		Preload("AllowedUsers").
		Preload("Versions", func(db *gorm.DB) *gorm.DB { return db.Order("version_number") }).
		Order(fmt.Sprintf("documents.%s %s", q.SortBy, q.SortOrder)).
		Limit(q.Limit).
		Offset((q.Page - 1) * q.Limit).
		Find(&docs).Error
	if err != nil {
		return nil, dto.Pagination{}, nil, err
	}

	// 状态分布，前端做筛选器用
	var counts []dto.StatusCount
	if err := s.listQuery(user, q).WithContext(ctx).
		Select("documents.status AS key, COUNT(*) AS count").
		Group("documents.status").
		Scan(&counts).Error; err != nil {
		return nil, dto.Pagination{}, nil, err
	}

	return docs, dto.NewPagination(q.Page, q.Limit, total), counts, nil
}

func (s *DocumentService) Get(ctx context.Context, user *model.User, id uint) (*model.Document, error) {
	var doc model.Document
	err := s.db.WithContext(ctx).
		Preload("UploadedBy").
		Preload("ReviewedBy").
		Preload("AllowedUsers").
		Preload("Versions", func(db *gorm.DB) *gorm.DB { return db.Order("version_number") }).
		First(&doc, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document not found: %w", ErrNotFound)
		}
		return nil, err
	}

	if err := CheckDepartmentAccess(user, doc.Department); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *DocumentService) Versions(ctx context.Context, user *model.User, id uint) (*model.Document, error) {
	return s.Get(ctx, user, id)
}

// AddVersion 追加新版本：versionNumber 单调 +1
// 不管之前是 Approved 还是 Rejected，状态一律拉回 Pending Review，评审记录清空
func (s *DocumentService) AddVersion(ctx context.Context, user *model.User, id uint, changeDescription string, file FileUpload) (*model.Document, error) {
	var doc model.Document
	if err := s.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document not found: %w", ErrNotFound)
		}
		return nil, err
	}
	if err := CheckDepartmentAccess(user, doc.Department); err != nil {
		return nil, err
	}

	// 1. 文件先落 Blob
	key := fmt.Sprintf("documents/%s%s", uuid.New().String(), filepath.Ext(file.Name))
	url, err := s.blobs.Put(ctx, key, file.Reader, file.Size, file.ContentType)
	if err != nil {
		return nil, err
	}

	// 2. 版本行 + 文档字段在同一事务里更新
	newVersion := model.DocumentVersion{
		DocumentID:        doc.ID,
		FileURL:           url,
		StorageKey:        key,
		UploadedByID:      user.ID,
		VersionNumber:     doc.CurrentVersion + 1,
		UploadedAt:        time.Now(),
		ChangeDescription: changeDescription,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newVersion).Error; err != nil {
			return err
		}
		return tx.Model(&model.Document{}).Where("id = ?", doc.ID).
			Updates(map[string]interface{}{
				"current_version": newVersion.VersionNumber,
				"status":          model.DocStatusPendingReview,
				"reviewed_by_id":  nil,
				"reviewed_at":     nil,
				"review_comments": "",
			}).Error
	})
	if err != nil {
		// 元数据写失败 → 删掉刚传的文件（补偿清理）
		if rmErr := s.blobs.Remove(ctx, key); rmErr != nil {
			s.logger.Error("orphan cleanup failed", zap.String("key", key), zap.Error(rmErr))
		}
		return nil, err
	}

	return s.Get(ctx, user, doc.ID)
}

// UpdateStatus 评审（仅 admin 路由可达）
// 状态改为 Approved 时级联解决该文档的所有活跃合规任务——
// 级联失败不回滚审批（审批写入已成功，级联只记日志重试靠人工）
func (s *DocumentService) UpdateStatus(ctx context.Context, reviewer *model.User, id uint, req dto.UpdateDocumentStatusReq) (*model.Document, error) {
	var doc model.Document
	if err := s.db.WithContext(ctx).Preload("UploadedBy").First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document not found: %w", ErrNotFound)
		}
		return nil, err
	}

	now := time.Now()
	err := s.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          req.Status,
			"reviewed_by_id":  reviewer.ID,
			"reviewed_at":     now,
			"review_comments": req.ReviewComments,
		}).Error
	if err != nil {
		return nil, err
	}

	if req.Status == model.DocStatusApproved {
		res := s.db.WithContext(ctx).Model(&model.ComplianceTask{}).
			Where("document_id = ? AND is_active = ?", id, true).
			Updates(map[string]interface{}{
				"status":           model.ComplianceStatusResolved,
				"resolved_at":      now,
				"resolved_by_id":   reviewer.ID,
				"resolution_notes": "Document approved",
			})
		if res.Error != nil {
			s.logger.Error("compliance cascade failed", zap.Uint("document_id", id), zap.Error(res.Error))
		} else if res.RowsAffected > 0 {
			s.logger.Info("compliance tasks auto-resolved",
				zap.Uint("document_id", id),
				zap.Int64("count", res.RowsAffected))
		}
	}

	// 通知上传者，失败只记日志
	if doc.UploadedBy != nil {
		tpl := ""
		switch req.Status {
		case model.DocStatusApproved:
			tpl = TplDocumentApproved
		case model.DocStatusRejected:
			tpl = TplDocumentRejected
		}
		if tpl != "" {
			_ = s.notify.Send(ctx, doc.UploadedBy.Email, tpl, map[string]string{
				"uploader":       doc.UploadedBy.Name,
				"document_title": doc.Title,
				"reviewer":       reviewer.Name,
				"comments":       req.ReviewComments,
			})
		}
	}

	return s.Get(ctx, reviewer, id)
}

// Archive 软删除：打归档标记并停用关联的合规任务，不物理删除
func (s *DocumentService) Archive(ctx context.Context, user *model.User, id uint, reason string) error {
	var doc model.Document
	if err := s.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("document not found: %w", ErrNotFound)
		}
		return err
	}
	if err := CheckDepartmentAccess(user, doc.Department); err != nil {
		return err
	}

	if reason == "" {
		reason = fmt.Sprintf("Deleted by %s", user.Name)
	}

	err := s.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_archived":    true,
			"archive_reason": reason,
		}).Error
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(&model.ComplianceTask{}).
		Where("document_id = ?", id).
		Update("is_active", false).Error
}

// SharedWithDepartment 跨部门共享给 admin 所在部门的文档列表
func (s *DocumentService) SharedWithDepartment(ctx context.Context, admin *model.User) ([]model.Document, error) {
	var docs []model.Document
	err := s.db.WithContext(ctx).Model(&model.Document{}).
		Scopes(NotArchivedScope).
		Where("CAST(documents.allowed_departments AS TEXT) LIKE ?", fmt.Sprintf(`%%"%s"%%`, admin.Department)).
		Preload("UploadedBy").
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}
