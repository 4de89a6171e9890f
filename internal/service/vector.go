package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"DocTrack/internal/model"

	"github.com/qdrant/go-client/qdrant"
	"gorm.io/gorm"
)

// ScoredEntry 向量检索的命中项，Score 为余弦相似度
type ScoredEntry struct {
	EntryID uint
	Score   float64
}

// VectorIndex 语义检索的后端抽象
// store 实现直接扫库算余弦（小数据量够用），qdrant 实现走向量库
type VectorIndex interface {
	Upsert(ctx context.Context, entryID uint, vector []float64) error
	Remove(ctx context.Context, entryID uint) error
	// Search 按相似度降序返回，limit<=0 表示不截断
	Search(ctx context.Context, vector []float64, limit int) ([]ScoredEntry, error)
}

// ---------- 库内余弦扫描 ----------

type storeIndex struct {
	db *gorm.DB
}

func NewStoreIndex(db *gorm.DB) VectorIndex {
	return &storeIndex{db: db}
}

// Upsert 向量本来就存在 knowledge_entries.embeddings 列里，无需额外写
func (s *storeIndex) Upsert(ctx context.Context, entryID uint, vector []float64) error {
	return nil
}

func (s *storeIndex) Remove(ctx context.Context, entryID uint) error {
	return nil
}

func (s *storeIndex) Search(ctx context.Context, vector []float64, limit int) ([]ScoredEntry, error) {
	var entries []model.KnowledgeEntry
	err := s.db.WithContext(ctx).Model(&model.KnowledgeEntry{}).
		Select("id", "embeddings").
		Where("is_active = ?", true).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	hits := make([]ScoredEntry, 0, len(entries))
	for i := range entries {
		if len(entries[i].Embeddings) == 0 {
			continue
		}
		score := CosineSimilarity(vector, entries[i].Embeddings)
		hits = append(hits, ScoredEntry{EntryID: entries[i].ID, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// CosineSimilarity 维度不一致或零向量时返回 0
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ---------- Qdrant ----------

type qdrantIndex struct {
	client     *qdrant.Client
	collection string
}

func NewQdrantIndex(client *qdrant.Client, collection string) VectorIndex {
	return &qdrantIndex{client: client, collection: collection}
}

func (q *qdrantIndex) Upsert(ctx context.Context, entryID uint, vector []float64) error {
	vec := make([]float32, len(vector))
	for i, v := range vector {
		vec[i] = float32(v)
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDNum(uint64(entryID)),
				Vectors: qdrant.NewVectors(vec...),
				Payload: qdrant.NewValueMap(map[string]any{"entry_id": int64(entryID)}),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (q *qdrantIndex) Remove(ctx context.Context, entryID uint) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{qdrant.NewIDNum(uint64(entryID))},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant delete: %w", err)
	}
	return nil
}

func (q *qdrantIndex) Search(ctx context.Context, vector []float64, limit int) ([]ScoredEntry, error) {
	vec := make([]float32, len(vector))
	for i, v := range vector {
		vec[i] = float32(v)
	}

	// limit<=0 表示全量排名，Qdrant 的 Limit 必填，给个够大的上限
	if limit <= 0 {
		limit = math.MaxInt32
	}
	topK := uint64(limit)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &topK,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}

	hits := make([]ScoredEntry, 0, len(points))
	for _, p := range points {
		hits = append(hits, ScoredEntry{
			EntryID: uint(p.GetId().GetNum()),
			Score:   float64(p.GetScore()),
		})
	}
	return hits, nil
}
