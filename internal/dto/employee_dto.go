package dto

type InviteEmployeeReq struct {
	Name  string `json:"name" binding:"required,min=2,max=100"`
	Email string `json:"email" binding:"required,email"`
}

type DashboardQuery struct {
	Department string `form:"department"`
}
