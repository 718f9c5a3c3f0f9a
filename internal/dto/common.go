package dto

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PaginationRequest 列表接口共用的分页参数，page 从 1 开始
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (p *PaginationRequest) GetPage() int {
	return max(p.Page, 1)
}

func (p *PaginationRequest) GetPageSize() int {
	switch {
	case p.PageSize <= 0:
		return defaultPageSize
	case p.PageSize > maxPageSize:
		return maxPageSize
	}
	return p.PageSize
}

func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// EmployeeBrief 员工在名册、排班与预约中的简要展示
type EmployeeBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
