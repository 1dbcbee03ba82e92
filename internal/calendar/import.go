package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hitoshi/minyanim/internal/model"
	"github.com/hitoshi/minyanim/internal/schedule"
	"github.com/hitoshi/minyanim/internal/security"
	"github.com/hitoshi/minyanim/internal/zmanim"
)

// OrganizationSource は取り込み対象の団体を取得するインターフェース。
type OrganizationSource interface {
	FindByID(ctx context.Context, id string) (*model.Organization, error)
	ListImportEnabled(ctx context.Context) ([]model.Organization, error)
}

// EntryStore は取り込み項目の永続化のインターフェース。
type EntryStore interface {
	FindByFingerprint(ctx context.Context, fingerprint string) (*model.CalendarEntry, error)
	ListByOrganizationAndDate(ctx context.Context, orgID string, date time.Time) ([]model.CalendarEntry, error)
	Create(ctx context.Context, entry *model.CalendarEntry) error
	Update(ctx context.Context, entry *model.CalendarEntry) error
	DeleteBefore(ctx context.Context, orgID string, before time.Time) (int64, error)
}

// DocumentFetcher はURLの内容を取得するインターフェース。
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Document, error)
}

// ImportRecorder は取り込み結果をメトリクスに記録するインターフェース。
type ImportRecorder interface {
	RecordImport(success bool, duration time.Duration, newEntries, updatedEntries, duplicates int)
}

// ImportResult は1団体分の取り込み結果。
type ImportResult struct {
	RunID             string    `json:"run_id"`
	Success           bool      `json:"success"`
	OrganizationID    string    `json:"organization_id"`
	SourceURL         string    `json:"source_url,omitempty"`
	Format            Format    `json:"format,omitempty"`
	TotalParsed       int       `json:"total_parsed"`
	NewEntries        int       `json:"new_entries"`
	UpdatedEntries    int       `json:"updated_entries"`
	DuplicatesSkipped int       `json:"duplicates_skipped"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	ImportedAt        time.Time `json:"imported_at"`
}

// ImportConfig は取り込み処理の設定。
type ImportConfig struct {
	Location    *time.Location
	PastDays    int
	AheadDays   int
	OrgInterval time.Duration
}

// ImportService は団体カレンダーの取得・解析・分類・保存を行う。
type ImportService struct {
	orgs      OrganizationSource
	entries   EntryStore
	fetcher   DocumentFetcher
	oracle    zmanim.Oracle
	recorder  ImportRecorder
	sanitizer *security.TextSanitizer
	limiter   *rate.Limiter
	cfg       ImportConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewImportService はImportServiceを生成する。oracleとrecorderはnilでもよい。
// cfgの期間が0以下の場合はDefaultPastDays/DefaultAheadDaysを使う。
func NewImportService(
	orgs OrganizationSource,
	entries EntryStore,
	fetcher DocumentFetcher,
	oracle zmanim.Oracle,
	recorder ImportRecorder,
	cfg ImportConfig,
	logger *slog.Logger,
) *ImportService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.PastDays <= 0 {
		cfg.PastDays = DefaultPastDays
	}
	if cfg.AheadDays <= 0 {
		cfg.AheadDays = DefaultAheadDays
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.OrgInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.OrgInterval), 1)
	}
	return &ImportService{
		orgs:      orgs,
		entries:   entries,
		fetcher:   fetcher,
		oracle:    oracle,
		recorder:  recorder,
		sanitizer: security.NewTextSanitizer(),
		limiter:   limiter,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// ImportOrganization は1団体のカレンダーを取り込む。
// 団体が存在しない場合や取り込みが無効な場合は*model.APIErrorを返す。
// 取得・解析に失敗した場合も、Success=falseの結果とエラーの両方を返す。
func (s *ImportService) ImportOrganization(ctx context.Context, orgID string) (*ImportResult, error) {
	start := s.now()
	result := &ImportResult{
		RunID:          uuid.NewString(),
		OrganizationID: orgID,
		ImportedAt:     start,
	}

	org, err := s.orgs.FindByID(ctx, orgID)
	if err != nil {
		err = fmt.Errorf("団体の取得に失敗: %w", err)
		return s.finish(result, start, err)
	}
	if org == nil {
		return s.finish(result, start, model.NewOrganizationNotFoundError(orgID))
	}
	if !org.ImportEnabled() {
		return s.finish(result, start, model.NewCalendarNotConfiguredError(orgID))
	}

	s.logger.Info("カレンダー取り込みを開始します",
		slog.String("run_id", result.RunID),
		slog.String("organization_id", org.ID),
		slog.String("calendar_url", org.CalendarURL),
	)
	return s.finish(result, start, s.importOrganization(ctx, org, result))
}

func (s *ImportService) finish(result *ImportResult, start time.Time, err error) (*ImportResult, error) {
	duration := s.now().Sub(start)
	result.Success = err == nil
	if err != nil {
		result.ErrorMessage = err.Error()
		s.logger.Error("カレンダー取り込みに失敗しました",
			slog.String("run_id", result.RunID),
			slog.String("organization_id", result.OrganizationID),
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.Info("カレンダー取り込みが完了しました",
			slog.String("run_id", result.RunID),
			slog.String("organization_id", result.OrganizationID),
			slog.String("format", string(result.Format)),
			slog.Int("total_parsed", result.TotalParsed),
			slog.Int("new_entries", result.NewEntries),
			slog.Int("updated_entries", result.UpdatedEntries),
			slog.Int("duplicates_skipped", result.DuplicatesSkipped),
			slog.Int64("duration_ms", duration.Milliseconds()),
		)
	}
	if s.recorder != nil {
		s.recorder.RecordImport(result.Success, duration, result.NewEntries, result.UpdatedEntries, result.DuplicatesSkipped)
	}
	return result, err
}

func (s *ImportService) importOrganization(ctx context.Context, org *model.Organization, result *ImportResult) error {
	if !IsValidCalendarURL(org.CalendarURL) {
		return model.NewInvalidURLError(org.CalendarURL)
	}
	w := NewWindow(s.now().In(s.cfg.Location), s.cfg.PastDays, s.cfg.AheadDays)
	exportURL, err := BuildExportURL(org.CalendarURL, w)
	if err != nil {
		return model.NewInvalidURLError(err.Error())
	}

	doc, format, err := s.load(ctx, exportURL)
	if err != nil {
		return err
	}
	result.SourceURL = doc.URL
	result.Format = format

	parsed, err := ParseDocument(format, doc.Body, w, s.cfg.Location, s.logger)
	if err != nil {
		s.logger.Warn("カレンダーの解析に失敗しました",
			slog.String("organization_id", org.ID),
			slog.String("format", string(format)),
			slog.String("error", err.Error()),
		)
		return model.NewParseFailedError(string(format))
	}
	result.TotalParsed = len(parsed)

	notes := make(map[string]string)
	for i := range parsed {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("取り込みが中断されました: %w", err)
		}
		s.storeEntry(ctx, org, &parsed[i], doc.URL, result, notes)
	}
	return nil
}

// load はURLを取得する。HTMLページの場合は、ページ内のリンクから最適なカレンダーデータを1回だけ辿る。
func (s *ImportService) load(ctx context.Context, rawURL string) (*Document, Format, error) {
	doc, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, FormatUnknown, err
	}
	format := DetectFormat(doc.ContentType, doc.Body)
	if format != FormatHTML {
		if format == FormatUnknown {
			return nil, format, model.NewParseFailedError(string(format))
		}
		return doc, format, nil
	}

	best := SelectBestLink(FindSourceLinks(doc.Body, doc.URL), doc.URL)
	if best == nil {
		return nil, format, model.NewParseFailedError(string(FormatHTML))
	}
	s.logger.Info("ページ内のカレンダーリンクを検出しました",
		slog.String("page_url", doc.URL),
		slog.String("link_url", best.URL),
		slog.String("format", string(best.Format)),
	)

	linked, err := s.fetcher.Fetch(ctx, best.URL)
	if err != nil {
		return nil, best.Format, err
	}
	format = DetectFormat(linked.ContentType, linked.Body)
	if format == FormatHTML || format == FormatUnknown {
		format = best.Format
	}
	return linked, format, nil
}

// storeEntry は1件を分類して保存する。保存に失敗した項目は記録してスキップする。
func (s *ImportService) storeEntry(ctx context.Context, org *model.Organization, p *ParsedEntry, sourceURL string, result *ImportResult, notes map[string]string) {
	title := s.sanitizer.PlainText(p.Title)
	if title == "" {
		title = untitledEvent
	}
	typ := s.sanitizer.PlainText(p.Type)
	description := s.sanitizer.PlainText(p.Description)
	classification := Classify(title, typ, description)
	now := s.now()

	entry := &model.CalendarEntry{
		OrganizationID:       org.ID,
		Date:                 p.Date,
		StartTime:            p.StartTime,
		StartDatetime:        p.StartDatetime,
		EndTime:              p.EndTime,
		EndDatetime:          p.EndDatetime,
		Title:                title,
		Type:                 typ,
		Name:                 s.sanitizer.PlainText(p.Name),
		Location:             s.sanitizer.PlainText(p.Location),
		Description:          description,
		HebrewDate:           p.HebrewDate,
		RawText:              s.sanitizer.PlainText(p.RawText),
		SourceURL:            sourceURL,
		Fingerprint:          GenerateFingerprint(org.ID, p.Date, title, p.StartTime),
		Enabled:              classification.Value != model.ClassificationNonMinyan,
		Classification:       classification.Value,
		ClassificationReason: classification.Reason,
		Notes:                s.shkiyaNote(ctx, classification.Value, p.Date, notes),
		ImportedAt:           now,
		UpdatedAt:            now,
		ScrapedAt:            &now,
	}

	existing, err := s.entries.FindByFingerprint(ctx, entry.Fingerprint)
	if err != nil {
		s.logEntryError("取り込み項目の検索に失敗しました", org.ID, entry, err)
		return
	}

	if existing != nil {
		entry.ID = existing.ID
		entry.ImportedAt = existing.ImportedAt
		// 有効フラグと重複理由は保存済みの値を引き継ぐ。分類による既定値は新規作成時のみ。
		entry.Enabled = existing.Enabled
		entry.DuplicateReason = existing.DuplicateReason
		if err := s.entries.Update(ctx, entry); err != nil {
			s.logEntryError("取り込み項目の更新に失敗しました", org.ID, entry, err)
			return
		}
		result.UpdatedEntries++
		return
	}

	duplicate, err := s.isDuplicate(ctx, org.ID, entry)
	if err != nil {
		s.logEntryError("同日の取り込み項目の取得に失敗しました", org.ID, entry, err)
		return
	}
	if duplicate {
		entry.Enabled = false
		entry.DuplicateReason = model.DuplicateReasonSimilar
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		s.logEntryError("取り込み項目の保存に失敗しました", org.ID, entry, err)
		return
	}
	if duplicate {
		result.DuplicatesSkipped++
	} else {
		result.NewEntries++
	}
}

// isDuplicate は同日に正規化タイトルと時刻（分単位）が同じ項目があるかどうかを返す。
func (s *ImportService) isDuplicate(ctx context.Context, orgID string, entry *model.CalendarEntry) (bool, error) {
	sameDay, err := s.entries.ListByOrganizationAndDate(ctx, orgID, entry.Date)
	if err != nil {
		return false, err
	}
	title := NormalizeTitle(entry.Title)
	for _, other := range sameDay {
		if NormalizeTitle(other.Title) == title && sameMinute(other.StartTime, entry.StartTime) {
			return true, nil
		}
	}
	return false, nil
}

func sameMinute(a, b *schedule.TimeOfDay) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.HHMM() == b.HHMM()
}

// shkiyaNote はミンハ・マアリブの項目に日没時刻の注記を返す。日付ごとに結果を再利用する。
func (s *ImportService) shkiyaNote(ctx context.Context, c model.MinyanClassification, date time.Time, cache map[string]string) string {
	switch c {
	case model.ClassificationMincha, model.ClassificationMaariv, model.ClassificationMinchaMaariv:
	default:
		return ""
	}
	if s.oracle == nil {
		return ""
	}
	key := zmanim.DateKey(date)
	if note, ok := cache[key]; ok {
		return note
	}

	note := ""
	times, err := s.oracle.TimesFor(ctx, date)
	if err != nil {
		s.logger.Warn("日没時刻の取得に失敗しました",
			slog.String("date", key),
			slog.String("error", err.Error()),
		)
	} else if at, ok := times.Get(zmanim.Shekiya); ok {
		note = "Shkiya: " + at.In(s.cfg.Location).Format("3:04 PM")
	}
	cache[key] = note
	return note
}

func (s *ImportService) logEntryError(msg, orgID string, entry *model.CalendarEntry, err error) {
	s.logger.Error(msg,
		slog.String("organization_id", orgID),
		slog.String("date", zmanim.DateKey(entry.Date)),
		slog.String("title", entry.Title),
		slog.String("error", err.Error()),
	)
}

// ImportAll は取り込みが有効なすべての団体を順に取り込む。団体間の間隔は設定に従う。
// 個々の団体の失敗は結果に記録し、処理を続ける。
func (s *ImportService) ImportAll(ctx context.Context) ([]*ImportResult, error) {
	orgs, err := s.orgs.ListImportEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("取り込み対象の団体一覧の取得に失敗: %w", err)
	}

	results := make([]*ImportResult, 0, len(orgs))
	succeeded := 0
	for _, org := range orgs {
		if err := s.limiter.Wait(ctx); err != nil {
			return results, fmt.Errorf("取り込みが中断されました: %w", err)
		}
		result, err := s.ImportOrganization(ctx, org.ID)
		results = append(results, result)
		if err == nil {
			succeeded++
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return results, fmt.Errorf("取り込みが中断されました: %w", ctx.Err())
		}
	}

	s.logger.Info("全団体のカレンダー取り込みが完了しました",
		slog.Int("organizations", len(orgs)),
		slog.Int("succeeded", succeeded),
		slog.Int("failed", len(orgs)-succeeded),
	)
	return results, nil
}

// CleanupOldEntries は団体のbeforeより前の取り込み項目を削除し、削除件数を返す。
func (s *ImportService) CleanupOldEntries(ctx context.Context, orgID string, before time.Time) (int64, error) {
	deleted, err := s.entries.DeleteBefore(ctx, orgID, before)
	if err != nil {
		return 0, fmt.Errorf("古い取り込み項目の削除に失敗: %w", err)
	}
	s.logger.Info("古い取り込み項目を削除しました",
		slog.String("organization_id", orgID),
		slog.String("before", zmanim.DateKey(before)),
		slog.Int64("deleted", deleted),
	)
	return deleted, nil
}
