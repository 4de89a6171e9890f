package dto

import "time"

type IndexEntryReq struct {
	DocumentID uint     `json:"document_id" binding:"required"`
	Title      string   `json:"title" binding:"required,max=200"`
	Content    string   `json:"content" binding:"required"`
	Summary    string   `json:"summary" binding:"max=500"`
	Category   string   `json:"category" binding:"required,max=100"`
	Tags       []string `json:"tags"`
	Keywords   []string `json:"keywords"`
	Language   string   `json:"language" binding:"omitempty,max=10"`
}

type SearchQuery struct {
	Q          string   `form:"q" binding:"required,min=2"`
	Department string   `form:"department"`
	Category   string   `form:"category"`
	Tags       []string `form:"tags"`
	Limit      int      `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	Skip       int      `form:"skip,default=0" binding:"omitempty,min=0"`
}

type ListEntriesQuery struct {
	Page       int    `form:"page,default=1" binding:"omitempty,min=1"`
	Limit      int    `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	SortBy     string `form:"sort_by,default=created_at" binding:"omitempty,oneof=created_at title category search_count"`
	SortOrder  string `form:"sort_order,default=desc" binding:"omitempty,oneof=asc desc"`
	Category   string `form:"category"`
	Department string `form:"department"`
	Search     string `form:"search"`
}

type UpdateEntryReq struct {
	Title    string   `json:"title" binding:"omitempty,max=200"`
	Content  string   `json:"content"`
	Summary  string   `json:"summary" binding:"omitempty,max=500"`
	Category string   `json:"category" binding:"omitempty,max=100"`
	Tags     []string `json:"tags"`
	Keywords []string `json:"keywords"`
}

// SearchHit 检索命中项：列表里带上相似度（纯文本检索时为 0）
type SearchHit struct {
	ID         uint      `json:"id"`
	DocumentID uint      `json:"document_id"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	Category   string    `json:"category"`
	Department string    `json:"department"`
	Tags       []string  `json:"tags"`
	Similarity float64   `json:"similarity,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
