package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/minyanim/internal/model"
	"github.com/hitoshi/minyanim/internal/security"
)

const (
	// DefaultFetchTimeout はカレンダー取得のタイムアウト。
	DefaultFetchTimeout = 30 * time.Second
	// DefaultMaxBodySize はカレンダー取得で読み込む最大バイト数。
	DefaultMaxBodySize int64 = 10 * 1024 * 1024

	userAgent    = "Mozilla/5.0 (compatible; MinyanimBot/1.0; Calendar Import Bot)"
	acceptHeader = "text/csv, text/calendar, application/rss+xml, application/atom+xml, text/html;q=0.8, text/plain, */*"
)

// FetchStatus はHTTPステータスコードの分類。
type FetchStatus int

const (
	// FetchStatusOK は取得成功（2xx）。
	FetchStatusOK FetchStatus = iota
	// FetchStatusGone はURLの修正が必要なステータス（404/410/401/403）。
	FetchStatusGone
	// FetchStatusRetryLater は時間をおいて再試行すべきステータス（429/5xx）。
	FetchStatusRetryLater
	// FetchStatusUnknown はその他のステータス。
	FetchStatusUnknown
)

// ClassifyHTTPStatus はHTTPステータスコードを分類する。
func ClassifyHTTPStatus(statusCode int) FetchStatus {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return FetchStatusOK
	case statusCode == 404 || statusCode == 410:
		return FetchStatusGone
	case statusCode == 401 || statusCode == 403:
		return FetchStatusGone
	case statusCode == 429:
		return FetchStatusRetryLater
	case statusCode >= 500:
		return FetchStatusRetryLater
	default:
		return FetchStatusUnknown
	}
}

// URLValidator はURLの事前検証のインターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Document は取得したレスポンス。
type Document struct {
	URL         string
	ContentType string
	Body        []byte
}

// Fetcher はカレンダーURLを検証してから取得する。
type Fetcher struct {
	validator   URLValidator
	client      *http.Client
	maxBodySize int64
	logger      *slog.Logger
}

// NewFetcher はFetcherを生成する。clientには接続先を検証するクライアントを渡す。
// maxBodySizeが0以下の場合はDefaultMaxBodySizeを使う。
func NewFetcher(validator URLValidator, client *http.Client, maxBodySize int64, logger *slog.Logger) *Fetcher {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &Fetcher{
		validator:   validator,
		client:      client,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// Fetch はURLを取得する。失敗時は*model.APIErrorを返す。
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	if err := f.validator.ValidateURL(rawURL); err != nil {
		f.logger.Warn("カレンダーURLの検証に失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, security.ErrBlockedURL) {
			return nil, model.NewSSRFBlockedError()
		}
		return nil, model.NewInvalidURLError(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, model.NewFetchFailedError(err.Error())
		}
		return nil, model.NewTransientFetchError(err.Error())
	}
	defer resp.Body.Close()

	switch ClassifyHTTPStatus(resp.StatusCode) {
	case FetchStatusOK:
	case FetchStatusGone:
		return nil, model.NewFetchFailedError(fmt.Sprintf("HTTP %d: URLを確認してください", resp.StatusCode))
	case FetchStatusRetryLater:
		return nil, model.NewTransientFetchError(fmt.Sprintf("HTTP %d: 時間をおいて再試行してください", resp.StatusCode))
	default:
		return nil, model.NewFetchFailedError(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, model.NewFetchFailedError(fmt.Sprintf("レスポンスの読み取りに失敗: %v", err))
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, model.NewFetchFailedError(fmt.Sprintf("レスポンスが上限（%dバイト）を超えています", f.maxBodySize))
	}

	f.logger.Debug("カレンダーを取得しました",
		slog.String("url", rawURL),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return &Document{
		URL:         rawURL,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
