package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(query string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor("")
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_Clamps(t *testing.T) {
	p := paramsFor("?limit=500&offset=-3")
	if p.Limit != MaxLimit {
		t.Errorf("expected limit clamped to %d, got %d", MaxLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected negative offset clamped to 0, got %d", p.Offset)
	}

	p = paramsFor("?limit=5&offset=10")
	if p.Limit != 5 || p.Offset != 10 {
		t.Errorf("unexpected params %+v", p)
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		p          Params
		total      int
		start, end int
	}{
		{Params{Limit: 10, Offset: 0}, 25, 0, 10},
		{Params{Limit: 10, Offset: 20}, 25, 20, 25},
		{Params{Limit: 10, Offset: 30}, 25, 25, 25},
		{Params{Limit: 10, Offset: 0}, 0, 0, 0},
	}
	for _, tt := range tests {
		start, end := tt.p.Window(tt.total)
		if start != tt.start || end != tt.end {
			t.Errorf("Window(%d) with %+v = [%d,%d), want [%d,%d)", tt.total, tt.p, start, end, tt.start, tt.end)
		}
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	resp := Page(items, Params{Limit: 2, Offset: 2}, "/api/v1/history/u1")

	got, ok := resp.Data.([]int)
	if !ok || len(got) != 2 || got[0] != 3 {
		t.Fatalf("unexpected page %v", resp.Data)
	}
	if resp.Total != 5 || !resp.HasMore {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(resp.Links) != 3 {
		t.Fatalf("expected self, next, previous links, got %+v", resp.Links)
	}
	if resp.Links[1].URL != "/api/v1/history/u1?offset=4&limit=2" {
		t.Errorf("unexpected next link %s", resp.Links[1].URL)
	}
}

func TestPage_PastEndIsEmpty(t *testing.T) {
	resp := Page([]string{"a"}, Params{Limit: 10, Offset: 5}, "/x")
	got, ok := resp.Data.([]string)
	if !ok || got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil page, got %#v", resp.Data)
	}
	if resp.HasMore {
		t.Error("expected no more results")
	}
}

func TestPreviousOffset(t *testing.T) {
	p := Params{Limit: 10, Offset: 5}
	if p.PreviousOffset() != 0 {
		t.Errorf("expected 0, got %d", p.PreviousOffset())
	}
	p.Offset = 25
	if p.PreviousOffset() != 15 {
		t.Errorf("expected 15, got %d", p.PreviousOffset())
	}
}
