// Package security はカレンダー取り込み時の外部アクセスの安全性を担う。
//
// URLGuard は団体が登録したカレンダーURLへのアクセスを公開ネットワークに限定する。
// TextSanitizer は取り込んだタイトルや説明からHTMLを取り除く。
package security

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// ErrBlockedURL は内部ネットワークを指すURLであることを示す。
var ErrBlockedURL = errors.New("blocked destination")

// allowedSchemes はカレンダーURLとして許可するスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks は接続を拒否するネットワーク範囲。
var blockedNetworks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	// クラウドメタデータ (169.254.169.254) を含む
	"169.254.0.0/16",
	"0.0.0.0/8",
	"100.64.0.0/10",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
)

// blockedHostnames は名前で拒否するホスト。
var blockedHostnames = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		out = append(out, network)
	}
	return out
}

// URLGuard はカレンダーURLの静的検証と、接続先を検証するHTTPクライアントの生成を行う。
type URLGuard struct {
	allowedPorts []int
}

// NewURLGuard はURLGuardを生成する。接続を許可するポートは80と443。
func NewURLGuard() *URLGuard {
	return &URLGuard{allowedPorts: []int{80, 443}}
}

// NewSafeClient は接続時にDNS解決後のIPアドレスを検証するHTTPクライアントを返す。
// レスポンスサイズの上限は呼び出し側で適用する。
func (g *URLGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(g.allowedPorts...).
		Build()

	return safeurl.Client(config).Client
}

// ValidateURL はDNS解決を伴わない事前検証を行う。
// 禁止された接続先の場合はErrBlockedURLをラップしたエラーを返す。
func (g *URLGuard) ValidateURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return errors.New("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("disallowed scheme: %q (allowed: %v)", scheme, allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("%w: IP address %s", ErrBlockedURL, ip)
		}
		return nil
	}

	lower := strings.ToLower(strings.TrimSuffix(host, "."))
	if blockedHostnames[lower] || strings.HasSuffix(lower, ".localhost") {
		return fmt.Errorf("%w: host %s", ErrBlockedURL, host)
	}
	return nil
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
