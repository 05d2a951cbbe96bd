package pagination

import (
	"math"
	"testing"
)

func numbers(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginate_DefaultsAndTokens(t *testing.T) {
	p := NewPaginator(DefaultPageSize, MaxPageSize)

	first, err := Paginate(p, numbers(25), PageRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Data) != 10 || first.Data[0] != 0 || !first.HasMore || first.TotalPages != 3 {
		t.Fatalf("first page = %+v", first)
	}
	if first.PrevPageToken != "" {
		t.Error("first page should have no prev token")
	}

	second, err := Paginate(p, numbers(25), PageRequest{PageToken: first.NextPageToken})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Data[0] != 10 || second.Page != 2 || second.PrevPageToken == "" {
		t.Errorf("second page = %+v", second)
	}

	last, err := Paginate(p, numbers(25), PageRequest{Page: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(last.Data) != 5 || last.HasMore || last.NextPageToken != "" {
		t.Errorf("last page = %+v", last)
	}
}

func TestPaginate_ClampsPageSize(t *testing.T) {
	p := NewPaginator(DefaultPageSize, MaxPageSize)
	page, err := Paginate(p, numbers(2000), PageRequest{PageSize: 5000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.PageSize != MaxPageSize || len(page.Data) != MaxPageSize {
		t.Errorf("page size = %d, rows = %d", page.PageSize, len(page.Data))
	}
}

func TestPaginate_PastEnd(t *testing.T) {
	p := NewPaginator(DefaultPageSize, MaxPageSize)
	page, err := Paginate(p, numbers(3), PageRequest{Page: 9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Data) != 0 || page.HasMore {
		t.Errorf("page = %+v", page)
	}
}

func TestPaginate_HugePageDoesNotOverflow(t *testing.T) {
	p := NewPaginator(DefaultPageSize, MaxPageSize)
	for _, req := range []PageRequest{
		{Page: math.MaxInt64/10 + 2, PageSize: 10},
		{Page: math.MaxInt, PageSize: MaxPageSize},
		{PageToken: p.EncodeToken(&CursorToken{Offset: math.MaxInt})},
	} {
		page, err := Paginate(p, []int{1, 2, 3}, req)
		if err != nil {
			t.Fatalf("Paginate(%+v) error = %v", req, err)
		}
		if len(page.Data) != 0 || page.HasMore {
			t.Errorf("Paginate(%+v) = %+v", req, page)
		}
	}
}

func TestPaginate_InvalidToken(t *testing.T) {
	p := NewPaginator(DefaultPageSize, MaxPageSize)
	if _, err := Paginate(p, numbers(3), PageRequest{PageToken: "%%%"}); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestApplyLimit(t *testing.T) {
	tests := []struct {
		query string
		limit int
		want  string
	}{
		{"SELECT * FROM t", 100, "SELECT * FROM t LIMIT 100"},
		{"SELECT * FROM t LIMIT 5;", 100, "SELECT * FROM t LIMIT 100"},
		{"SELECT * FROM t limit 5 offset 10", 50, "SELECT * FROM t LIMIT 50"},
		{"SELECT * FROM t", 0, "SELECT * FROM t"},
	}
	for _, tt := range tests {
		if got := ApplyLimit(tt.query, tt.limit); got != tt.want {
			t.Errorf("ApplyLimit(%q, %d) = %q, want %q", tt.query, tt.limit, got, tt.want)
		}
	}
}
