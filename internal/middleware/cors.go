package middleware

import (
	"net/http"
	"strings"
)

// NewCORSMiddleware はCORSヘッダーを付与するミドルウェアを返す。
// allowedOriginsはカンマ区切りのオリジン一覧で、"*"は全オリジンを許可する。
// 空の場合はヘッダーを付与しない。OPTIONSプリフライトには204で応答する。
func NewCORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	allowed := parseOrigins(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin, ok := allowed.match(r.Header.Get("Origin")); ok {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
				h.Set("Access-Control-Expose-Headers", RequestIDHeader+", Retry-After")
				h.Set("Access-Control-Max-Age", "86400")
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type originSet struct {
	any     bool
	origins map[string]bool
	single  string
}

func parseOrigins(s string) originSet {
	set := originSet{origins: make(map[string]bool)}
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			set.any = true
		default:
			set.origins[o] = true
			set.single = o
		}
	}
	if len(set.origins) != 1 {
		set.single = ""
	}
	return set
}

// match は応答に設定するAllow-Originを返す。
// 許可オリジンが1つだけの場合はOriginヘッダーがなくてもそのオリジンを返す。
func (s originSet) match(origin string) (string, bool) {
	switch {
	case s.any:
		return "*", true
	case origin != "" && s.origins[origin]:
		return origin, true
	case origin == "" && s.single != "":
		return s.single, true
	}
	return "", false
}
