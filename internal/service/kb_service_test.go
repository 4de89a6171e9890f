package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"DocTrack/internal/conf"
	"DocTrack/internal/dto"
	"DocTrack/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func testKBConfig() *conf.KBConfig {
	return &conf.KBConfig{
		VectorBackend:       "store",
		SimilarityThreshold: 0.7,
	}
}

func newKnowledgeFixture(t *testing.T, embedder EmbeddingProvider) (*KnowledgeService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewKnowledgeService(db, testKBConfig(), embedder, NewStoreIndex(db), testLogger())
	return svc, db
}

func seedKBDoc(t *testing.T, db *gorm.DB, uploader *model.User, department string) *model.Document {
	t.Helper()
	doc := &model.Document{
		Title: "source doc", Description: "d", Department: department,
		Status: model.DocStatusApproved, Access: model.AccessDepartment,
		Language: "en", UploadedByID: uploader.ID, CurrentVersion: 1,
	}
	require.NoError(t, db.Create(doc).Error)
	return doc
}

func seedEntry(t *testing.T, db *gorm.DB, doc *model.Document, creator *model.User, title string, vec []float64, tags []string) *model.KnowledgeEntry {
	t.Helper()
	entry := &model.KnowledgeEntry{
		DocumentID: doc.ID, Title: title, Content: "content of " + title,
		Summary: "summary", Embeddings: vec, Category: "Runbooks",
		Department: doc.Department, Language: "en",
		Tags:        datatypes.NewJSONSlice(tags),
		CreatedByID: creator.ID, IsActive: true,
	}
	require.NoError(t, db.Create(entry).Error)
	return entry
}

func TestKnowledgeIndex(t *testing.T) {
	embedder := &fakeEmbedder{fallbackVec: []float64{1, 0, 0}}
	svc, db := newKnowledgeFixture(t, embedder)
	ctx := context.Background()

	user := makeUser(t, db, "Alice", "alice@corp.test", model.RoleDepartmentUser, "Engineering")
	outsider := makeUser(t, db, "Bob", "bob@corp.test", model.RoleDepartmentUser, "Sales")
	doc := seedKBDoc(t, db, user, "Engineering")

	t.Run("entry mirrors document department and stores vector", func(t *testing.T) {
		entry, err := svc.Index(ctx, user, dto.IndexEntryReq{
			DocumentID: doc.ID, Title: "deploy runbook", Content: "how to deploy",
			Category: "Runbooks",
		})
		require.NoError(t, err)
		assert.Equal(t, "Engineering", entry.Department)
		assert.Equal(t, "en", entry.Language)
		assert.Equal(t, []float64{1, 0, 0}, []float64(entry.Embeddings))
	})

	t.Run("cross-department indexing denied", func(t *testing.T) {
		_, err := svc.Index(ctx, outsider, dto.IndexEntryReq{
			DocumentID: doc.ID, Title: "x", Content: "c", Category: "Runbooks",
		})
		assert.True(t, errors.Is(err, ErrForbidden))
	})

	t.Run("embedding outage surfaces as unavailable", func(t *testing.T) {
		embedder.unavailable = true
		defer func() { embedder.unavailable = false }()

		_, err := svc.Index(ctx, user, dto.IndexEntryReq{
			DocumentID: doc.ID, Title: "x", Content: "c", Category: "Runbooks",
		})
		assert.True(t, errors.Is(err, ErrEmbeddingsUnavailable))
	})
}

func TestSemanticSearch(t *testing.T) {
	// 查询 "deploy" 映射到 [1,0,0]
	embedder := &fakeEmbedder{vectors: map[string][]float64{"deploy": {1, 0, 0}}}
	svc, db := newKnowledgeFixture(t, embedder)
	ctx := context.Background()

	user := makeUser(t, db, "Alice", "alice@corp.test", model.RoleDepartmentUser, "Engineering")
	salesUser := makeUser(t, db, "Bob", "bob@corp.test", model.RoleDepartmentUser, "Sales")
	engDoc := seedKBDoc(t, db, user, "Engineering")
	salesDoc := seedKBDoc(t, db, salesUser, "Sales")

	// 相似度：exact=1.0, near≈0.89, far=0
	exact := seedEntry(t, db, engDoc, user, "deploy runbook", []float64{1, 0, 0}, []string{"ops"})
	near := seedEntry(t, db, engDoc, user, "release guide", []float64{0.9, 0.45, 0}, []string{"release"})
	seedEntry(t, db, engDoc, user, "holiday policy", []float64{0, 1, 0}, nil)
	seedEntry(t, db, salesDoc, salesUser, "sales deploy notes", []float64{1, 0, 0}, nil)

	t.Run("ranked above threshold, department scoped", func(t *testing.T) {
		hits, err := svc.SemanticSearch(ctx, user, dto.SearchQuery{Q: "deploy", Limit: 10})
		require.NoError(t, err)

		require.Len(t, hits, 2) // 低于阈值和别的部门的都被滤掉
		assert.Equal(t, exact.ID, hits[0].ID)
		assert.Equal(t, near.ID, hits[1].ID)
		assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
	})

	t.Run("tag filter applies after ranking", func(t *testing.T) {
		hits, err := svc.SemanticSearch(ctx, user, dto.SearchQuery{
			Q: "deploy", Limit: 10, Tags: []string{"release"},
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, near.ID, hits[0].ID)
	})

	t.Run("search bumps counters", func(t *testing.T) {
		var before model.KnowledgeEntry
		require.NoError(t, db.First(&before, exact.ID).Error)

		_, err := svc.SemanticSearch(ctx, user, dto.SearchQuery{Q: "deploy", Limit: 10})
		require.NoError(t, err)

		var after model.KnowledgeEntry
		require.NoError(t, db.First(&after, exact.ID).Error)
		assert.Equal(t, before.SearchCount+1, after.SearchCount)
		assert.NotNil(t, after.LastAccessed)
	})

	t.Run("unavailable embeddings propagate", func(t *testing.T) {
		embedder.unavailable = true
		defer func() { embedder.unavailable = false }()

		_, err := svc.SemanticSearch(ctx, user, dto.SearchQuery{Q: "deploy", Limit: 10})
		assert.True(t, errors.Is(err, ErrEmbeddingsUnavailable))
	})
}

// recordingIndex 记录传给底层索引的候选上限
type recordingIndex struct {
	VectorIndex
	lastLimit int
}

func (r *recordingIndex) Search(ctx context.Context, vector []float64, limit int) ([]ScoredEntry, error) {
	r.lastLimit = limit
	return r.VectorIndex.Search(ctx, vector, limit)
}

func TestSemanticSearchRanksAllCandidates(t *testing.T) {
	embedder := &fakeEmbedder{fallbackVec: []float64{1, 0, 0}}
	db := newTestDB(t)
	index := &recordingIndex{VectorIndex: NewStoreIndex(db), lastLimit: -1}
	svc := NewKnowledgeService(db, testKBConfig(), embedder, index, testLogger())
	ctx := context.Background()

	user := makeUser(t, db, "Alice", "alice@corp.test", model.RoleDepartmentUser, "Engineering")
	doc := seedKBDoc(t, db, user, "Engineering")
	first := seedEntry(t, db, doc, user, "entry a", []float64{1, 0, 0}, nil)
	second := seedEntry(t, db, doc, user, "entry b", []float64{0.95, 0.31, 0}, nil)

	// 候选集不预先截断：深分页也能翻到排名靠后但过阈值的条目
	hits, err := svc.SemanticSearch(ctx, user, dto.SearchQuery{Q: "anything", Skip: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, index.lastLimit)
	require.Len(t, hits, 1)
	assert.Equal(t, second.ID, hits[0].ID)
	assert.NotEqual(t, first.ID, hits[0].ID)
}

func TestStoreIndexUnlimitedSearch(t *testing.T) {
	db := newTestDB(t)
	index := NewStoreIndex(db)
	ctx := context.Background()

	user := makeUser(t, db, "Alice", "alice@corp.test", model.RoleDepartmentUser, "Engineering")
	doc := seedKBDoc(t, db, user, "Engineering")
	for i := 0; i < 5; i++ {
		seedEntry(t, db, doc, user, fmt.Sprintf("entry %d", i), []float64{1, float64(i) / 10, 0}, nil)
	}

	all, err := index.Search(ctx, []float64{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	capped, err := index.Search(ctx, []float64{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}

func TestTextSearch(t *testing.T) {
	embedder := &fakeEmbedder{}
	svc, db := newKnowledgeFixture(t, embedder)
	ctx := context.Background()

	user := makeUser(t, db, "Alice", "alice@corp.test", model.RoleDepartmentUser, "Engineering")
	doc := seedKBDoc(t, db, user, "Engineering")

	seedEntry(t, db, doc, user, "deploy runbook", nil, []string{"ops"})
	seedEntry(t, db, doc, user, "escalation matrix", nil, []string{"deploy-window"})
	seedEntry(t, db, doc, user, "holiday policy", nil, nil)

	hits, err := svc.TextSearch(ctx, user, dto.SearchQuery{Q: "deploy", Limit: 10})
	require.NoError(t, err)

	// 标题命中 + 标签命中，大小写无关的子串匹配
	assert.Len(t, hits, 2)
	for _, h := range hits {
		assert.Zero(t, h.Similarity)
	}
}

func TestKnowledgeUpdateReembedsOnContentChange(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors: map[string][]float64{"new content": {0, 1, 0}},
		fallbackVec: []float64{1, 0, 0},
	}
	svc, db := newKnowledgeFixture(t, embedder)
	ctx := context.Background()

	user := makeUser(t, db, "Alice", "alice@corp.test", model.RoleDepartmentUser, "Engineering")
	doc := seedKBDoc(t, db, user, "Engineering")

	entry, err := svc.Index(ctx, user, dto.IndexEntryReq{
		DocumentID: doc.ID, Title: "t", Content: "old content", Category: "Runbooks",
	})
	require.NoError(t, err)
	require.Equal(t, []float64{1, 0, 0}, []float64(entry.Embeddings))

	t.Run("metadata-only update keeps vector", func(t *testing.T) {
		_, err := svc.Update(ctx, user, entry.ID, dto.UpdateEntryReq{Title: "renamed"})
		require.NoError(t, err)

		var after model.KnowledgeEntry
		require.NoError(t, db.First(&after, entry.ID).Error)
		assert.Equal(t, "renamed", after.Title)
		assert.Equal(t, []float64{1, 0, 0}, []float64(after.Embeddings))
		require.NotNil(t, after.UpdatedByID)
		assert.Equal(t, user.ID, *after.UpdatedByID)
	})

	t.Run("content change recomputes vector", func(t *testing.T) {
		_, err := svc.Update(ctx, user, entry.ID, dto.UpdateEntryReq{Content: "new content"})
		require.NoError(t, err)

		var after model.KnowledgeEntry
		require.NoError(t, db.First(&after, entry.ID).Error)
		assert.Equal(t, []float64{0, 1, 0}, []float64(after.Embeddings))
	})
}

func TestKnowledgeDeleteIsSoft(t *testing.T) {
	embedder := &fakeEmbedder{fallbackVec: []float64{1, 0, 0}}
	svc, db := newKnowledgeFixture(t, embedder)
	ctx := context.Background()

	user := makeUser(t, db, "Alice", "alice@corp.test", model.RoleDepartmentUser, "Engineering")
	doc := seedKBDoc(t, db, user, "Engineering")
	entry, err := svc.Index(ctx, user, dto.IndexEntryReq{
		DocumentID: doc.ID, Title: "t", Content: "c", Category: "Runbooks",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, user, entry.ID))

	_, err = svc.Get(ctx, user, entry.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	// 行还在
	var raw model.KnowledgeEntry
	require.NoError(t, db.First(&raw, entry.ID).Error)
	assert.False(t, raw.IsActive)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 0}, []float64{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float64{1, 0}, []float64{1, 0, 0})) // 维度不一致
	assert.Zero(t, CosineSimilarity(nil, nil))
	assert.Zero(t, CosineSimilarity([]float64{0, 0}, []float64{1, 0})) // 零向量
}

func TestKnowledgeStats(t *testing.T) {
	svc, db := newKnowledgeFixture(t, &fakeEmbedder{unavailable: true})
	ctx := context.Background()

	engUser := makeUser(t, db, "Alice", "alice@corp.test", model.RoleDepartmentUser, "Engineering")
	admin := makeUser(t, db, "Root", "root@corp.test", model.RoleAdmin, "Engineering")
	salesUser := makeUser(t, db, "Bob", "bob@corp.test", model.RoleDepartmentUser, "Sales")

	engDoc := seedKBDoc(t, db, engUser, "Engineering")
	salesDoc := seedKBDoc(t, db, salesUser, "Sales")
	seedEntry(t, db, engDoc, engUser, "eng entry 1", []float64{1, 0, 0}, nil)
	seedEntry(t, db, engDoc, engUser, "eng entry 2", []float64{0, 1, 0}, nil)
	seedEntry(t, db, salesDoc, salesUser, "sales entry", []float64{0, 0, 1}, nil)

	t.Run("department user sees own scope without breakdown", func(t *testing.T) {
		stats, err := svc.Stats(ctx, engUser)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats["total_entries"])
		assert.NotContains(t, stats, "by_department")
		assert.Len(t, stats["recent_entries"], 2)
	})

	t.Run("admin sees global department breakdown", func(t *testing.T) {
		stats, err := svc.Stats(ctx, admin)
		require.NoError(t, err)

		breakdown, ok := stats["by_department"].([]dto.StatusCount)
		require.True(t, ok)
		counts := map[string]int64{}
		for _, b := range breakdown {
			counts[b.Key] = b.Count
		}
		assert.Equal(t, map[string]int64{"Engineering": 2, "Sales": 1}, counts)
	})
}
