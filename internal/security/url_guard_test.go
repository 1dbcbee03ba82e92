package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewSafeClient(t *testing.T) {
	guard := NewURLGuard()
	timeout := 5 * time.Second
	client := guard.NewSafeClient(timeout)

	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
	if client.Timeout != timeout {
		t.Errorf("expected timeout %v, got %v", timeout, client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Fatal("expected custom Transport")
	}
}

// TestNewSafeClientBlocksLoopback はhttptestサーバー（127.0.0.1）への接続が拒否されることを検証する。
func TestNewSafeClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewURLGuard().NewSafeClient(5 * time.Second)
	resp, err := client.Get(ts.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatal("expected error for loopback address request, got nil")
	}
}

func TestValidateURL(t *testing.T) {
	guard := NewURLGuard()

	tests := []struct {
		name        string
		url         string
		wantErr     bool
		wantBlocked bool
	}{
		{name: "公開URL", url: "https://www.example.org/calendar", wantErr: false},
		{name: "公開URL（http）", url: "http://shul.example.com/events.ics", wantErr: false},
		{name: "前後の空白", url: "  https://example.com/cal.csv  ", wantErr: false},
		{name: "空文字列", url: "", wantErr: true},
		{name: "ftpスキーム", url: "ftp://example.com/cal.csv", wantErr: true},
		{name: "webcalスキーム", url: "webcal://example.com/cal.ics", wantErr: true},
		{name: "ホストなし", url: "https:///cal.ics", wantErr: true},
		{name: "プライベートIP 10/8", url: "http://10.0.0.1/cal", wantErr: true, wantBlocked: true},
		{name: "プライベートIP 172.16/12", url: "http://172.31.255.255/cal", wantErr: true, wantBlocked: true},
		{name: "プライベートIP 192.168/16", url: "http://192.168.1.100/cal", wantErr: true, wantBlocked: true},
		{name: "ループバック", url: "http://127.0.0.1:8080/cal", wantErr: true, wantBlocked: true},
		{name: "メタデータIP", url: "http://169.254.169.254/latest/meta-data", wantErr: true, wantBlocked: true},
		{name: "IPv6ループバック", url: "http://[::1]/cal", wantErr: true, wantBlocked: true},
		{name: "ゼロアドレス", url: "http://0.0.0.0/cal", wantErr: true, wantBlocked: true},
		{name: "localhost", url: "http://LOCALHOST/cal", wantErr: true, wantBlocked: true},
		{name: "localhostのサブドメイン", url: "http://api.localhost/cal", wantErr: true, wantBlocked: true},
		{name: "公開IP", url: "http://93.184.216.34/cal", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if got := errors.Is(err, ErrBlockedURL); got != tt.wantBlocked {
				t.Errorf("errors.Is(err, ErrBlockedURL) = %v, want %v (err=%v)", got, tt.wantBlocked, err)
			}
		})
	}
}
