package testutil

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestMockStore_Routing(t *testing.T) {
	m := NewMockStore()
	defer m.Close()

	m.SetReviews(AppStore, "42", 2, Entry{Title: "ios", Review: "r"})
	m.SetReviews(PlayStore, "com.example", 0, Entry{Title: "android", Review: "r"})
	m.FailPage(AppStore, "42", 3, http.StatusServiceUnavailable)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"configured feed", "/us/rss/customerreviews/id=42/page=2/sortby=mostrecent/xml", 200, "<title>ios</title>"},
		{"default feed", "/us/rss/customerreviews/id=42/page=1/sortby=mostrecent/xml", 200, "<feed"},
		{"failed page", "/us/rss/customerreviews/id=42/page=3/sortby=mostrecent/xml", 503, "Service Unavailable"},
		{"play page", "/store/getreviews?hl=us&gl=us&reviewType=0&reviewSortOrder=4&pageNum=0&id=com.example", 200, "android"},
		{"unknown path", "/nope", 404, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, m.URL()+tt.path)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if !strings.Contains(body, tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", body, tt.wantBody)
			}
		})
	}

	if got := m.RequestCount(); got != 4 {
		t.Errorf("RequestCount() = %d, want 4", got)
	}
	if got := m.AppRequests(AppStore, "42"); got != 3 {
		t.Errorf("AppRequests() = %d, want 3", got)
	}
	if got := m.PageRequests(PlayStore, "com.example", 0); got != 1 {
		t.Errorf("PageRequests() = %d, want 1", got)
	}

	m.Reset()
	if m.RequestCount() != 0 {
		t.Error("Reset() did not clear counters")
	}
}

func TestPlayStorePayload(t *testing.T) {
	body := PlayStorePayload(Entry{Title: "<t>", Review: "r", Star: 4, Like: 2})

	if !strings.HasPrefix(body, ")]}'\n[[\"ecr\",1,") {
		t.Errorf("unexpected payload prefix: %q", body)
	}
	if !strings.Contains(body, "width: 80%") {
		t.Errorf("payload missing rating width: %q", body)
	}
}
