package dto

// UploadDocumentReq 随 multipart form 一起提交（file 字段单独取）
type UploadDocumentReq struct {
	Title              string   `form:"title" binding:"required,max=200"`
	Description        string   `form:"description" binding:"required,max=1000"`
	Category           string   `form:"category" binding:"required,max=100"`
	Language           string   `form:"language" binding:"required,max=10"`
	Priority           string   `form:"priority" binding:"omitempty,oneof=Low Medium High"`
	Access             string   `form:"access" binding:"omitempty,oneof=self department cross-department"`
	Tags               []string `form:"tags"`
	AllowedDepartments []string `form:"allowed_departments"`
}

type ListDocumentsQuery struct {
	Page      int    `form:"page,default=1" binding:"omitempty,min=1"`
	Limit     int    `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	SortBy    string `form:"sort_by,default=created_at" binding:"omitempty,oneof=created_at title status department"`
	SortOrder string `form:"sort_order,default=desc" binding:"omitempty,oneof=asc desc"`
	Search    string `form:"search"`
	Status    string `form:"status" binding:"omitempty,oneof=Draft 'Pending Review' 'Under Review' Approved Rejected"`
}

type UpdateDocumentStatusReq struct {
	Status         string `json:"status" binding:"required,oneof=Draft 'Pending Review' 'Under Review' Approved Rejected"`
	ReviewComments string `json:"review_comments" binding:"max=1000"`
}

// AddVersionReq 也是 multipart form
type AddVersionReq struct {
	ChangeDescription string `form:"change_description" binding:"max=500"`
}

type AssignUsersReq struct {
	UserIDs []uint `json:"user_ids" binding:"required,min=1"`
}
