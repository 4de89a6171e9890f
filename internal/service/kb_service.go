package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"DocTrack/internal/conf"
	"DocTrack/internal/dto"
	"DocTrack/internal/model"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// KnowledgeService AI 知识库：条目索引、语义/全文双路检索
type KnowledgeService struct {
	db       *gorm.DB
	cfg      *conf.KBConfig
	embedder EmbeddingProvider
	index    VectorIndex
	logger   *zap.Logger
}

func NewKnowledgeService(db *gorm.DB, cfg *conf.KBConfig, embedder EmbeddingProvider, index VectorIndex, logger *zap.Logger) *KnowledgeService {
	return &KnowledgeService{
		db:       db,
		cfg:      cfg,
		embedder: embedder,
		index:    index,
		logger:   logger.With(zap.String("service", "knowledge")),
	}
}

// Index 把文档内容收进知识库
// 向量化失败直接报错——没有向量的条目语义检索查不到，宁可让调用方重试
func (s *KnowledgeService) Index(ctx context.Context, user *model.User, req dto.IndexEntryReq) (*model.KnowledgeEntry, error) {
	var doc model.Document
	if err := s.db.WithContext(ctx).First(&doc, req.DocumentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document not found: %w", ErrNotFound)
		}
		return nil, err
	}
	if err := CheckDepartmentAccess(user, doc.Department); err != nil {
		return nil, err
	}

	vector, err := s.embedder.Embed(ctx, req.Content)
	if err != nil {
		return nil, err
	}

	language := req.Language
	if language == "" {
		language = doc.Language
	}
	if language == "" {
		language = "en"
	}

	entry := &model.KnowledgeEntry{
		DocumentID:  req.DocumentID,
		Title:       req.Title,
		Content:     req.Content,
		Summary:     req.Summary,
		Embeddings:  vector,
		Category:    req.Category,
		Department:  doc.Department, // 部门镜像自源文档
		Language:    language,
		Tags:        req.Tags,
		Keywords:    req.Keywords,
		CreatedByID: user.ID,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}

	// 向量索引失败不回滚条目，store 后端下这一步本来就是空操作
	if err := s.index.Upsert(ctx, entry.ID, vector); err != nil {
		s.logger.Warn("vector index upsert failed", zap.Uint("entry_id", entry.ID), zap.Error(err))
	}

	return entry, nil
}

// deptScope 非 admin 只能看本部门条目；admin 可带 department 过滤
func (s *KnowledgeService) deptScope(user *model.User, requested string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !user.IsAdmin() {
			return db.Where("knowledge_entries.department = ?", user.Department)
		}
		if requested != "" {
			return db.Where("knowledge_entries.department = ?", requested)
		}
		return db
	}
}

// SemanticSearch 先全局按相似度排序，再做精确条件过滤，最后分页
// （和 TextSearch 的 "先过滤再分页" 顺序相反，相似度排名是全局的）
func (s *KnowledgeService) SemanticSearch(ctx context.Context, user *model.User, q dto.SearchQuery) ([]dto.SearchHit, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}

	vector, err := s.embedder.Embed(ctx, q.Q)
	if err != nil {
		return nil, err
	}

	// 排名是全量的：过滤在排名之后做，候选不能预先截断，
	// 否则深分页会翻不到排名靠后但过阈值的条目
	candidates, err := s.index.Search(ctx, vector, 0)
	if err != nil {
		return nil, err
	}

	hits := make([]dto.SearchHit, 0, q.Limit)
	matched := make([]uint, 0, q.Limit)
	skipped := 0
	for _, c := range candidates {
		if c.Score < s.cfg.SimilarityThreshold {
			continue // 候选按分数降序，其后的全低于阈值
		}

		var entry model.KnowledgeEntry
		err := s.db.WithContext(ctx).
			Scopes(s.deptScope(user, q.Department)).
			Where("knowledge_entries.is_active = ?", true).
			First(&entry, c.EntryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if q.Category != "" && entry.Category != q.Category {
			continue
		}
		if len(q.Tags) > 0 && !containsAny(entry.Tags, q.Tags) {
			continue
		}

		if skipped < q.Skip {
			skipped++
			continue
		}

		hit := toSearchHit(&entry)
		hit.Similarity = c.Score
		hits = append(hits, hit)
		matched = append(matched, entry.ID)

		if len(hits) >= q.Limit {
			break
		}
	}

	s.touchEntries(ctx, matched)
	return hits, nil
}

// TextSearch 语义检索的退路：LIKE 扫 title/content/summary/tags/keywords
func (s *KnowledgeService) TextSearch(ctx context.Context, user *model.User, q dto.SearchQuery) ([]dto.SearchHit, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}

	pattern := "%" + q.Q + "%"
	db := s.db.WithContext(ctx).Model(&model.KnowledgeEntry{}).
		Scopes(s.deptScope(user, q.Department)).
		Where("knowledge_entries.is_active = ?", true).
		Where(
			s.db.Where("LOWER(knowledge_entries.title) LIKE LOWER(?)", pattern).
				Or("LOWER(knowledge_entries.content) LIKE LOWER(?)", pattern).
				Or("LOWER(knowledge_entries.summary) LIKE LOWER(?)", pattern).
				Or("LOWER(CAST(knowledge_entries.tags AS TEXT)) LIKE LOWER(?)", pattern).
				Or("LOWER(CAST(knowledge_entries.keywords AS TEXT)) LIKE LOWER(?)", pattern))

	if q.Category != "" {
		db = db.Where("knowledge_entries.category = ?", q.Category)
	}

	var entries []model.KnowledgeEntry
	if err := db.Order("search_count DESC, created_at DESC").
		Limit(q.Limit).
		Offset(q.Skip).
		Find(&entries).Error; err != nil {
		return nil, err
	}

	hits := make([]dto.SearchHit, 0, len(entries))
	matched := make([]uint, 0, len(entries))
	for i := range entries {
		if len(q.Tags) > 0 && !containsAny(entries[i].Tags, q.Tags) {
			continue
		}
		hits = append(hits, toSearchHit(&entries[i]))
		matched = append(matched, entries[i].ID)
	}

	s.touchEntries(ctx, matched)
	return hits, nil
}

func (s *KnowledgeService) listQuery(ctx context.Context, user *model.User, q dto.ListEntriesQuery) *gorm.DB {
	db := s.db.WithContext(ctx).Model(&model.KnowledgeEntry{}).
		Scopes(s.deptScope(user, q.Department)).
		Where("knowledge_entries.is_active = ?", true)

	if q.Category != "" {
		db = db.Where("knowledge_entries.category = ?", q.Category)
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		db = db.Where(
			s.db.Where("LOWER(knowledge_entries.title) LIKE LOWER(?)", pattern).
				Or("LOWER(knowledge_entries.summary) LIKE LOWER(?)", pattern))
	}
	return db
}

func (s *KnowledgeService) List(ctx context.Context, user *model.User, q dto.ListEntriesQuery) ([]model.KnowledgeEntry, dto.Pagination, []dto.StatusCount, error) {
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
	if err := s.listQuery(ctx, user, q).Count(&total).Error; err != nil {
		return nil, dto.Pagination{}, nil, err
	}

	var entries []model.KnowledgeEntry
	err := s.listQuery(ctx, user, q).
		Omit("embeddings", "content").
		Preload("CreatedBy").
		Order(fmt.Sprintf("knowledge_entries.%s %s", q.SortBy, q.SortOrder)).
		Limit(q.Limit).
		Offset((q.Page - 1) * q.Limit).
		Find(&entries).Error
	if err != nil {
		return nil, dto.Pagination{}, nil, err
	}

	// 分类分布
	var categories []dto.StatusCount
	if err := s.listQuery(ctx, user, q).
		Select("knowledge_entries.category AS key, COUNT(*) AS count").
		Group("knowledge_entries.category").
		Scan(&categories).Error; err != nil {
		return nil, dto.Pagination{}, nil, err
	}

	return entries, dto.NewPagination(q.Page, q.Limit, total), categories, nil
}

func (s *KnowledgeService) Get(ctx context.Context, user *model.User, id uint) (*model.KnowledgeEntry, error) {
	var entry model.KnowledgeEntry
	err := s.db.WithContext(ctx).
		Preload("Document").
		Preload("CreatedBy").
		Preload("UpdatedBy").
		Where("is_active = ?", true).
		First(&entry, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("knowledge entry not found: %w", ErrNotFound)
		}
		return nil, err
	}
	if err := CheckDepartmentAccess(user, entry.Department); err != nil {
		return nil, err
	}

	s.touchEntries(ctx, []uint{entry.ID})
	return &entry, nil
}

// Update 修改条目；Content 变了就重算向量
func (s *KnowledgeService) Update(ctx context.Context, user *model.User, id uint, req dto.UpdateEntryReq) (*model.KnowledgeEntry, error) {
	var entry model.KnowledgeEntry
	err := s.db.WithContext(ctx).Where("is_active = ?", true).First(&entry, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("knowledge entry not found: %w", ErrNotFound)
		}
		return nil, err
	}
	if err := CheckDepartmentAccess(user, entry.Department); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"updated_by_id": user.ID}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Summary != "" {
		updates["summary"] = req.Summary
	}
	if req.Category != "" {
		updates["category"] = req.Category
	}
	if req.Tags != nil {
		updates["tags"] = datatypes.NewJSONSlice(req.Tags)
	}
	if req.Keywords != nil {
		updates["keywords"] = datatypes.NewJSONSlice(req.Keywords)
	}

	var newVector []float64
	if req.Content != "" && req.Content != entry.Content {
		newVector, err = s.embedder.Embed(ctx, req.Content)
		if err != nil {
			return nil, err
		}
		updates["content"] = req.Content
		updates["embeddings"] = datatypes.NewJSONSlice(newVector)
	}

	if err := s.db.WithContext(ctx).Model(&model.KnowledgeEntry{}).
		Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}

	if newVector != nil {
		if err := s.index.Upsert(ctx, id, newVector); err != nil {
			s.logger.Warn("vector index upsert failed", zap.Uint("entry_id", id), zap.Error(err))
		}
	}

	return s.Get(ctx, user, id)
}

// Delete 软删除并摘掉向量索引
func (s *KnowledgeService) Delete(ctx context.Context, user *model.User, id uint) error {
	var entry model.KnowledgeEntry
	err := s.db.WithContext(ctx).Where("is_active = ?", true).First(&entry, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("knowledge entry not found: %w", ErrNotFound)
		}
		return err
	}
	if err := CheckDepartmentAccess(user, entry.Department); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(&model.KnowledgeEntry{}).
		Where("id = ?", id).Update("is_active", false).Error; err != nil {
		return err
	}

	if err := s.index.Remove(ctx, id); err != nil {
		s.logger.Warn("vector index remove failed", zap.Uint("entry_id", id), zap.Error(err))
	}
	return nil
}

// Stats 知识库面板：总量、分类分布、热门条目
func (s *KnowledgeService) Stats(ctx context.Context, user *model.User) (map[string]interface{}, error) {
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&model.KnowledgeEntry{}).
			Scopes(s.deptScope(user, "")).
			Where("knowledge_entries.is_active = ?", true)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, err
	}

	var categories []dto.StatusCount
	if err := base().
		Select("knowledge_entries.category AS key, COUNT(*) AS count").
		Group("knowledge_entries.category").
		Scan(&categories).Error; err != nil {
		return nil, err
	}

	var top []model.KnowledgeEntry
	if err := base().
		Omit("embeddings", "content").
		Preload("Document").
		Order("search_count DESC").
		Limit(10).
		Find(&top).Error; err != nil {
		return nil, err
	}

	var recent []model.KnowledgeEntry
	if err := base().
		Omit("embeddings", "content").
		Preload("Document").Preload("CreatedBy").
		Order("created_at DESC").
		Limit(10).
		Find(&recent).Error; err != nil {
		return nil, err
	}

	stats := map[string]interface{}{
		"total_entries":  total,
		"by_category":    categories,
		"top_searched":   top,
		"recent_entries": recent,
	}

	// 跨部门分布只给 admin 看，统计范围为全量活跃条目
	if user.IsAdmin() {
		var departments []dto.StatusCount
		if err := s.db.WithContext(ctx).Model(&model.KnowledgeEntry{}).
			Where("is_active = ?", true).
			Select("department AS key, COUNT(*) AS count").
			Group("department").
			Scan(&departments).Error; err != nil {
			return nil, err
		}
		stats["by_department"] = departments
	}

	return stats, nil
}

// touchEntries 检索记账：search_count +1，last_accessed 置当前时间
// 失败只记日志，不影响检索结果返回
func (s *KnowledgeService) touchEntries(ctx context.Context, ids []uint) {
	if len(ids) == 0 {
		return
	}
	err := s.db.WithContext(ctx).Model(&model.KnowledgeEntry{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"search_count":  gorm.Expr("search_count + 1"),
			"last_accessed": time.Now(),
		}).Error
	if err != nil {
		s.logger.Warn("search bookkeeping failed", zap.Error(err))
	}
}

func toSearchHit(e *model.KnowledgeEntry) dto.SearchHit {
	return dto.SearchHit{
		ID:         e.ID,
		DocumentID: e.DocumentID,
		Title:      e.Title,
		Summary:    e.Summary,
		Category:   e.Category,
		Department: e.Department,
		Tags:       e.Tags,
		CreatedAt:  e.CreatedAt,
	}
}

func containsAny(have []string, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
