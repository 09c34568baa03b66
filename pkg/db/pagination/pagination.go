package pagination

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=50"`
}

// Size clamps the requested page size into [1, MaxPageSize].
func (p Pagination) Size() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// BuildCursorPageInfo expects data fetched with limit+1 rows and returns the trimmed page.
func BuildCursorPageInfo[T any](data []*T, limit int, extractCursor func(*T) string) ([]*T, *PageInfo) {
	if len(data) == 0 {
		return data, &PageInfo{HasMore: false}
	}

	hasMore := false
	if len(data) > limit {
		hasMore = true
		data = data[:limit]
	}

	pageInfo := &PageInfo{HasMore: hasMore}
	if hasMore {
		pageInfo.NextPageToken = extractCursor(data[len(data)-1])
	}

	return data, pageInfo
}
