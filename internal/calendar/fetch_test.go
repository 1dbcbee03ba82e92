package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/minyanim/internal/model"
	"github.com/hitoshi/minyanim/internal/security"
)

// stubValidator はテスト用のURL検証。errが設定されていればそれを返す。
type stubValidator struct {
	err error
}

func (v *stubValidator) ValidateURL(string) error { return v.err }

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   FetchStatus
	}{
		{200, FetchStatusOK},
		{204, FetchStatusOK},
		{404, FetchStatusGone},
		{410, FetchStatusGone},
		{401, FetchStatusGone},
		{403, FetchStatusGone},
		{429, FetchStatusRetryLater},
		{500, FetchStatusRetryLater},
		{503, FetchStatusRetryLater},
		{302, FetchStatusUnknown},
		{400, FetchStatusUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyHTTPStatus(tt.status); got != tt.want {
			t.Errorf("ClassifyHTTPStatus(%d) = %d, want %d", tt.status, got, tt.want)
		}
	}
}

func TestFetcher_Fetch(t *testing.T) {
	var gotUA, gotAccept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		switch r.URL.Path {
		case "/cal.csv":
			w.Header().Set("Content-Type", "text/csv")
			fmt.Fprint(w, "Start,Name\n1/8/2024 7:00 AM,Shacharis\n")
		case "/big":
			fmt.Fprint(w, strings.Repeat("x", 2048))
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer ts.Close()

	f := NewFetcher(&stubValidator{}, ts.Client(), 1024, newTestLogger())

	t.Run("取得成功", func(t *testing.T) {
		doc, err := f.Fetch(context.Background(), ts.URL+"/cal.csv")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.ContentType != "text/csv" {
			t.Errorf("ContentType = %q", doc.ContentType)
		}
		if !strings.HasPrefix(string(doc.Body), "Start,Name") {
			t.Errorf("Body = %q", doc.Body)
		}
		if !strings.Contains(gotUA, "Calendar Import Bot") {
			t.Errorf("User-Agent = %q", gotUA)
		}
		if !strings.Contains(gotAccept, "text/csv") {
			t.Errorf("Accept = %q", gotAccept)
		}
	})

	tests := []struct {
		name          string
		path          string
		wantRetryable bool
	}{
		{name: "サイズ上限超過", path: "/big"},
		{name: "404", path: "/gone"},
		{name: "503", path: "/busy", wantRetryable: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), ts.URL+tt.path)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeFetchFailed {
				t.Errorf("error = %v, want FETCH_FAILED", err)
			}
			if got := model.IsRetryable(err); got != tt.wantRetryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.wantRetryable)
			}
		})
	}
}

func TestFetcher_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "内部ネットワーク", err: fmt.Errorf("%w: 10.0.0.1", security.ErrBlockedURL), wantCode: model.ErrCodeSSRFBlocked},
		{name: "不正なURL", err: errors.New("disallowed scheme"), wantCode: model.ErrCodeInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(&stubValidator{err: tt.err}, http.DefaultClient, 0, newTestLogger())
			_, err := f.Fetch(context.Background(), "http://10.0.0.1/cal")
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != tt.wantCode {
				t.Errorf("error = %v, want %s", err, tt.wantCode)
			}
		})
	}
}
