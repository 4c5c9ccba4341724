package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestURLGuard_NewSafeClient(t *testing.T) {
	client := NewURLGuard().NewSafeClient(5 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want %v", client.Timeout, 5*time.Second)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Error("safeurlのカスタムTransportが設定されているべき")
	}
}

// httptestサーバーは127.0.0.1で起動されるため、safeurlがブロックする。
func TestURLGuard_NewSafeClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewURLGuard().NewSafeClient(5 * time.Second)
	resp, err := client.Get(ts.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatal("ループバックへのリクエストはブロックされるべき")
	}
}

func TestURLGuard_ValidateURL(t *testing.T) {
	g := NewURLGuard()

	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/rss.xml", false},
		{"http://feeds.bbci.co.uk/news/rss.xml", false},
		{"", true},
		{"ftp://example.com/feed", true},
		{"file:///etc/passwd", true},
		{"https://", true},
		{"http://localhost/feed", true},
		{"http://127.0.0.1/feed", true},
		{"http://10.0.0.5/feed", true},
		{"http://192.168.1.1/feed", true},
		{"http://169.254.169.254/latest/meta-data", true},
		{"http://[::1]/feed", true},
		{"://bad", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := g.ValidateURL(tt.url)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateURL(%q) はエラーを返すべき", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateURL(%q) returned error: %v", tt.url, err)
			}
		})
	}
}
