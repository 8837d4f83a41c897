package web

import "time"

type PaginationData struct {
	BasePath   string `json:"-"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
	HasPrev    bool   `json:"has_prev"`
	HasNext    bool   `json:"has_next"`
	PrevPage   int    `json:"prev_page,omitempty"`
	NextPage   int    `json:"next_page,omitempty"`
	PrevURL    string `json:"prev_url,omitempty"`
	NextURL    string `json:"next_url,omitempty"`
}

// WithLinks fills PrevURL and NextURL from BasePath.
func (p PaginationData) WithLinks() PaginationData {
	if p.HasPrev {
		p.PrevURL = pageURL(p.BasePath, p.PrevPage, p.PerPage)
	}
	if p.HasNext {
		p.NextURL = pageURL(p.BasePath, p.NextPage, p.PerPage)
	}
	return p
}

type AdminData struct {
	Email       string
	DisplayName string
	Role        string
	Via         string
	LastLoginAt *time.Time
	Firebase    bool
}

type AdminLoginData struct {
	Code  string
	Error string
}
