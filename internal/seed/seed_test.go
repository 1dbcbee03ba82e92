package seed

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/minyanim/internal/model"
	"github.com/hitoshi/minyanim/internal/schedule"
)

// --- モック定義 ---

type memoryStore struct {
	orgs      []*model.Organization
	locations []*model.Location
	minyanim  []*model.Minyan
	failOn    string
}

func (m *memoryStore) stores() Stores {
	return Stores{
		Organizations: orgWriterFunc(func(_ context.Context, org *model.Organization) error {
			if org.ID == m.failOn {
				return errors.New("constraint violation")
			}
			m.orgs = append(m.orgs, org)
			return nil
		}),
		Locations: locationWriterFunc(func(_ context.Context, loc *model.Location) error {
			m.locations = append(m.locations, loc)
			return nil
		}),
		Minyanim: minyanWriterFunc(func(_ context.Context, mn *model.Minyan) error {
			if mn.ID == m.failOn {
				return errors.New("constraint violation")
			}
			m.minyanim = append(m.minyanim, mn)
			return nil
		}),
	}
}

type orgWriterFunc func(ctx context.Context, org *model.Organization) error

func (f orgWriterFunc) Upsert(ctx context.Context, org *model.Organization) error { return f(ctx, org) }

type locationWriterFunc func(ctx context.Context, loc *model.Location) error

func (f locationWriterFunc) Upsert(ctx context.Context, loc *model.Location) error { return f(ctx, loc) }

type minyanWriterFunc func(ctx context.Context, m *model.Minyan) error

func (f minyanWriterFunc) Upsert(ctx context.Context, m *model.Minyan) error { return f(ctx, m) }

func loadTestdata(t *testing.T) *File {
	t.Helper()
	fh, err := os.Open("testdata/teaneck.yaml")
	if err != nil {
		t.Fatalf("failed to open testdata: %v", err)
	}
	defer fh.Close()

	f, err := Load(fh)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return f
}

// --- Load / Validate ---

func TestLoad_Testdata(t *testing.T) {
	f := loadTestdata(t)

	if len(f.Organizations) != 2 {
		t.Fatalf("organizations = %d, want 2", len(f.Organizations))
	}
	by := f.Organizations[0]
	if by.ID != "bnai-yeshurun" || len(by.Locations) != 2 || len(by.Minyanim) != 2 {
		t.Errorf("bnai-yeshurun = %+v", by)
	}
	if by.Minyanim[1].Schedule["YOM_TOV"] != "none" {
		t.Errorf("mincha YOM_TOV = %q, want none", by.Minyanim[1].Schedule["YOM_TOV"])
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name:    "空のファイル",
			yaml:    "",
			wantMsg: "空です",
		},
		{
			name:    "未知のキー",
			yaml:    "organizations:\n  - id: a\n    name: A\n    colour: red\n",
			wantMsg: "colour",
		},
		{
			name:    "団体が0件",
			yaml:    "organizations: []\n",
			wantMsg: "Organizations",
		},
		{
			name:    "名前がない",
			yaml:    "organizations:\n  - id: a\n",
			wantMsg: "Name",
		},
		{
			name:    "カラーコードが不正",
			yaml:    "organizations:\n  - id: a\n    name: A\n    color: blue\n",
			wantMsg: "16進カラーコード",
		},
		{
			name:    "URLが不正",
			yaml:    "organizations:\n  - id: a\n    name: A\n    calendar_url: ftp://example.org/cal\n",
			wantMsg: "URL",
		},
		{
			name:    "流儀が不正",
			yaml:    "organizations:\n  - id: a\n    name: A\n    nusach: klingon\n",
			wantMsg: "流儀",
		},
		{
			name: "礼拝の種類が不正",
			yaml: "organizations:\n  - id: a\n    name: A\n    minyanim:\n      - id: m\n        type: BRUNCH\n" +
				"        schedule:\n          default: none\n",
			wantMsg: "礼拝の種類",
		},
		{
			name: "日の種別が不正",
			yaml: "organizations:\n  - id: a\n    name: A\n    minyanim:\n      - id: m\n        type: MINCHA\n" +
				"        schedule:\n          SATURDAY: none\n",
			wantMsg: "日の種別",
		},
		{
			name: "時刻の指定が不正",
			yaml: "organizations:\n  - id: a\n    name: A\n    minyanim:\n      - id: m\n        type: MINCHA\n" +
				"        schedule:\n          default: \"rule:SUNSET:-15\"\n",
			wantMsg: "時刻の指定",
		},
		{
			name: "defaultなしでスロットが不足",
			yaml: "organizations:\n  - id: a\n    name: A\n    minyanim:\n      - id: m\n        type: MINCHA\n" +
				"        schedule:\n          SUNDAY: \"fixed:13:30\"\n",
			wantMsg: "時刻表",
		},
		{
			name: "未定義の礼拝場所",
			yaml: "organizations:\n  - id: a\n    name: A\n    minyanim:\n      - id: m\n        type: MINCHA\n" +
				"        location_id: nowhere\n        schedule:\n          default: none\n",
			wantMsg: "nowhere",
		},
		{
			name:    "団体IDの重複",
			yaml:    "organizations:\n  - id: a\n    name: A\n  - id: a\n    name: B\n",
			wantMsg: "重複",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want to contain %q", err, tt.wantMsg)
			}
		})
	}
}

// --- buildSchedule ---

func TestBuildSchedule(t *testing.T) {
	t.Run("defaultで未指定の種別を埋める", func(t *testing.T) {
		s, err := buildSchedule(map[string]string{
			"default": "fixed:06:45",
			"sunday":  "fixed:08:00",
			"SHABBOS": "none",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := map[schedule.DayType]string{
			schedule.Sunday:      "fixed:08:00",
			schedule.Monday:      "fixed:06:45",
			schedule.Shabbos:     "none",
			schedule.RoshChodesh: "fixed:06:45",
		}
		for dt, w := range want {
			if got := s.Slot(dt).String(); got != w {
				t.Errorf("%s = %q, want %q", dt, got, w)
			}
		}
	})

	t.Run("全11種別の指定はdefaultなしでもよい", func(t *testing.T) {
		slots := make(map[string]string)
		for _, dt := range schedule.DayTypes {
			slots[dt.String()] = "rule:NETZ:-5"
		}
		if _, err := buildSchedule(slots); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("未設定の種別があればエラー", func(t *testing.T) {
		_, err := buildSchedule(map[string]string{"MONDAY": "fixed:07:00"})
		if !errors.Is(err, schedule.ErrUnresolvedSlot) {
			t.Errorf("err = %v, want ErrUnresolvedSlot", err)
		}
	})
}

// --- Apply ---

func TestApply(t *testing.T) {
	f := loadTestdata(t)
	now := time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC)

	t.Run("団体・場所・定例礼拝を登録する", func(t *testing.T) {
		mem := &memoryStore{}
		result, err := Apply(context.Background(), mem.stores(), f, now)
		if err != nil {
			t.Fatalf("Apply() error: %v", err)
		}
		if result.Organizations != 2 || result.Locations != 2 || result.Minyanim != 3 {
			t.Errorf("result = %+v", result)
		}

		by := mem.orgs[0]
		if by.Nusach != model.NusachAshkenaz || !by.ImportEnabled() || !by.CreatedAt.Equal(now) {
			t.Errorf("bnai-yeshurun = %+v", by)
		}
		if mem.orgs[1].Nusach != model.NusachSefard {
			t.Errorf("rinat-yisrael nusach = %s, want SEFARD", mem.orgs[1].Nusach)
		}
		if mem.locations[1].OrganizationID != "bnai-yeshurun" || mem.locations[1].Name != "Beis Medrash" {
			t.Errorf("location = %+v", mem.locations[1])
		}

		shacharis := mem.minyanim[0]
		if shacharis.Type != model.MinyanTypeShacharis || !shacharis.Enabled {
			t.Errorf("shacharis = %+v", shacharis)
		}
		// 流儀の指定がない定例礼拝は団体の流儀を引き継ぐ
		if shacharis.Nusach != model.NusachAshkenaz {
			t.Errorf("shacharis nusach = %s, want ASHKENAZ", shacharis.Nusach)
		}
		if got := shacharis.Schedule.Slot(schedule.Tuesday).String(); got != "fixed:06:45" {
			t.Errorf("shacharis TUESDAY = %q", got)
		}

		mincha := mem.minyanim[1]
		if got := mincha.Schedule.Slot(schedule.Monday).String(); got != "rule:SHEKIYA:-15:rounded" {
			t.Errorf("mincha MONDAY = %q", got)
		}
		if !mincha.Schedule.Slot(schedule.YomTov).IsNoService() {
			t.Error("mincha YOM_TOV should be no service")
		}

		maariv := mem.minyanim[2]
		if maariv.Enabled || maariv.OrganizationID != "rinat-yisrael" || maariv.Nusach != model.NusachSefard {
			t.Errorf("maariv = %+v", maariv)
		}
	})

	t.Run("登録に失敗したら中断する", func(t *testing.T) {
		mem := &memoryStore{failOn: "by-mincha"}
		result, err := Apply(context.Background(), mem.stores(), f, now)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "by-mincha") {
			t.Errorf("error should name the failing minyan: %v", err)
		}
		if result.Minyanim != 1 || len(mem.orgs) != 1 {
			t.Errorf("result = %+v, orgs = %d", result, len(mem.orgs))
		}
	})
}
