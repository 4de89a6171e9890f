package model

import (
	"time"

	"gorm.io/datatypes"
)

// KnowledgeEntry 知识库条目：文档内容的可检索、可向量化表示
type KnowledgeEntry struct {
	BaseModel
	DocumentID uint      `gorm:"index;not null" json:"document_id"`
	Document   *Document `gorm:"foreignKey:DocumentID" json:"document,omitempty"`

	Title   string `gorm:"size:200;not null" json:"title"`
	Content string `gorm:"type:text;not null" json:"content"`
	Summary string `gorm:"size:500" json:"summary"`

	// 定长向量，列表接口不返回（payload 太大）
	Embeddings datatypes.JSONSlice[float64] `json:"-"`

	Category string `gorm:"size:100;not null;index" json:"category"`
	// 镜像自源文档的部门
	Department string                      `gorm:"size:100;not null;index" json:"department"`
	Language   string                      `gorm:"size:10;default:'en'" json:"language"`
	Tags       datatypes.JSONSlice[string] `json:"tags"`
	Keywords   datatypes.JSONSlice[string] `json:"keywords"`

	// 检索记账：每次被检索命中 / 单条读取时 +1
	SearchCount  int        `gorm:"default:0" json:"search_count"`
	LastAccessed *time.Time `json:"last_accessed"`

	CreatedByID uint  `gorm:"index;not null" json:"created_by_id"`
	CreatedBy   *User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	UpdatedByID *uint `json:"updated_by_id"`
	UpdatedBy   *User `gorm:"foreignKey:UpdatedByID" json:"updated_by,omitempty"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`
}
