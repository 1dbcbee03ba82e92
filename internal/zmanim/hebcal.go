package zmanim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultHebcalEndpoint はHebcalのズマニームAPIのエンドポイント。
	DefaultHebcalEndpoint = "https://www.hebcal.com/zmanim"
	// maxResponseSize はレスポンスボディの読み取り上限（1MB）。
	maxResponseSize = 1 << 20
)

// hebcalKeys はHebcalレスポンスのキーとズマンの対応。
var hebcalKeys = map[Zman]string{
	AlosHashachar: "alotHaShachar",
	ETT:           "dawn",
	Misheyakir:    "misheyakir",
	Netz:          "sunrise",
	SZKS:          "sofZmanShma",
	MASZKS:        "sofZmanShmaMGA",
	SZT:           "sofZmanTfilla",
	MASZT:         "sofZmanTfillaMGA",
	Chatzos:       "chatzot",
	MinchaGedola:  "minchaGedola",
	MinchaKetana:  "minchaKetana",
	PlagHamincha:  "plagHaMincha",
	Shekiya:       "sunset",
	EarliestShema: "tzeit7083deg",
	Tzes:          "tzeit85deg",
	ChatzosLaila:  "chatzotNight",
}

type hebcalResponse struct {
	Date  string            `json:"date"`
	Times map[string]string `json:"times"`
}

// HebcalClient はHebcal APIからズマニームを取得するOracle。
// 呼び出しはlimiterで流量制限される。
type HebcalClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	location   Location
	limiter    *rate.Limiter
}

// NewHebcalClient はHebcalClientを生成する。
// endpointが空の場合はDefaultHebcalEndpointを使用する。limiterがnilの場合は流量制限しない。
func NewHebcalClient(httpClient *http.Client, location Location, endpoint string, limiter *rate.Limiter, logger *slog.Logger) *HebcalClient {
	if endpoint == "" {
		endpoint = DefaultHebcalEndpoint
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &HebcalClient{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		location:   location,
		limiter:    limiter,
	}
}

// TimesFor は指定日のズマニームを取得する。
// レスポンスに含まれないズマンや解析できない値は結果から除外する（その日は存在しない扱い）。
func (c *HebcalClient) TimesFor(ctx context.Context, date time.Time) (Times, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("レート制限の待機に失敗: %w", err)
	}

	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}
	q := reqURL.Query()
	q.Set("cfg", "json")
	q.Set("latitude", strconv.FormatFloat(c.location.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(c.location.Longitude, 'f', -1, 64))
	q.Set("tzid", c.location.TimeZone)
	q.Set("date", DateKey(date))
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "Minyanim/1.0 Schedule Service")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ズマニームAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("date", DateKey(date)),
		)
		return nil, fmt.Errorf("ズマニームAPIの呼び出しに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("ズマニームAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("date", DateKey(date)),
		)
		return nil, fmt.Errorf("ズマニームAPIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result hebcalResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("ズマニームAPIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	times := make(Times, len(hebcalKeys))
	for z, key := range hebcalKeys {
		raw, ok := result.Times[key]
		if !ok || raw == "" {
			continue
		}
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.logger.Warn("ズマンの時刻を解析できません",
				slog.String("zman", string(z)),
				slog.String("value", raw),
			)
			continue
		}
		times[z] = at
	}

	return times, nil
}

var _ Oracle = (*HebcalClient)(nil)
