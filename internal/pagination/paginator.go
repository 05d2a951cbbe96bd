package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Defaults used by table views
const (
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

// Paginator pages in-memory result rows
type Paginator struct {
	DefaultPageSize int
	MaxPageSize     int
}

// PageRequest represents pagination parameters. PageToken takes precedence
// over Page (1-based) when both are set.
type PageRequest struct {
	PageSize  int    `json:"page_size"`
	PageToken string `json:"page_token,omitempty"`
	Page      int    `json:"page,omitempty"`
}

// Page is one page of items
type Page[T any] struct {
	Data          []T    `json:"data"`
	NextPageToken string `json:"next_page_token,omitempty"`
	PrevPageToken string `json:"prev_page_token,omitempty"`
	TotalCount    int    `json:"total_count"`
	PageSize      int    `json:"page_size"`
	Page          int    `json:"page"`
	TotalPages    int    `json:"total_pages"`
	HasMore       bool   `json:"has_more"`
}

// CursorToken represents pagination cursor information
type CursorToken struct {
	Offset int `json:"offset"`
}

// NewPaginator creates a new paginator
func NewPaginator(defaultSize, maxSize int) *Paginator {
	return &Paginator{
		DefaultPageSize: defaultSize,
		MaxPageSize:     maxSize,
	}
}

// ValidateRequest validates and normalizes pagination request
func (p *Paginator) ValidateRequest(req *PageRequest) error {
	if req.PageSize <= 0 {
		req.PageSize = p.DefaultPageSize
	}
	if req.PageSize > p.MaxPageSize {
		req.PageSize = p.MaxPageSize
	}
	if req.Page < 0 {
		return fmt.Errorf("invalid page: %d", req.Page)
	}

	if req.PageToken != "" {
		if _, err := p.DecodeToken(req.PageToken); err != nil {
			return fmt.Errorf("invalid page token: %w", err)
		}
	}

	return nil
}

// Paginate slices items according to req
func Paginate[T any](p *Paginator, items []T, req PageRequest) (*Page[T], error) {
	if err := p.ValidateRequest(&req); err != nil {
		return nil, err
	}

	offset, err := p.offset(req, len(items))
	if err != nil {
		return nil, err
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + req.PageSize
	if end > len(items) {
		end = len(items)
	}

	page := &Page[T]{
		Data:       items[offset:end],
		TotalCount: len(items),
		PageSize:   req.PageSize,
		Page:       offset/req.PageSize + 1,
		TotalPages: (len(items) + req.PageSize - 1) / req.PageSize,
		HasMore:    end < len(items),
	}
	if page.Data == nil {
		page.Data = []T{}
	}

	if page.HasMore {
		page.NextPageToken = p.EncodeToken(&CursorToken{Offset: end})
	}
	if offset > 0 {
		prev := offset - req.PageSize
		if prev < 0 {
			prev = 0
		}
		page.PrevPageToken = p.EncodeToken(&CursorToken{Offset: prev})
	}

	return page, nil
}

// offset resolves the start row, clamped to total so huge pages cannot
// overflow
func (p *Paginator) offset(req PageRequest, total int) (int, error) {
	if req.PageToken != "" {
		token, err := p.DecodeToken(req.PageToken)
		if err != nil {
			return 0, err
		}
		if token.Offset < 0 {
			return 0, fmt.Errorf("invalid page token offset: %d", token.Offset)
		}
		if token.Offset > total {
			return total, nil
		}
		return token.Offset, nil
	}
	if req.Page > 1 {
		if req.Page-1 > total/req.PageSize {
			return total, nil
		}
		return (req.Page - 1) * req.PageSize, nil
	}
	return 0, nil
}

// EncodeToken encodes cursor token to string
func (p *Paginator) EncodeToken(token *CursorToken) string {
	data, _ := json.Marshal(token)
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeToken decodes cursor token from string
func (p *Paginator) DecodeToken(tokenStr string) (*CursorToken, error) {
	data, err := base64.URLEncoding.DecodeString(tokenStr)
	if err != nil {
		return nil, err
	}

	var token CursorToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}

	return &token, nil
}

var (
	limitRegex  = regexp.MustCompile(`(?i)\s+LIMIT\s+\d+(\s*,\s*\d+)?\s*;?\s*$`)
	offsetRegex = regexp.MustCompile(`(?i)\s+OFFSET\s+\d+\s*;?\s*$`)
)

// ApplyLimit caps a preview query at limit rows. A trailing LIMIT/OFFSET
// written by the user is replaced.
func ApplyLimit(query string, limit int) string {
	query = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if limit <= 0 {
		return query
	}
	query = offsetRegex.ReplaceAllString(query, "")
	query = limitRegex.ReplaceAllString(query, "")
	return fmt.Sprintf("%s LIMIT %d", strings.TrimSpace(query), limit)
}
