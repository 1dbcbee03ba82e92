// Package seed はYAMLファイルから団体・礼拝場所・定例礼拝を一括登録する。
package seed

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hitoshi/minyanim/internal/model"
	"github.com/hitoshi/minyanim/internal/schedule"
)

// DefaultSlotKey は時刻表で指定されなかった日の種別に使うキー。
const DefaultSlotKey = "default"

// File はシードファイルのルート。
type File struct {
	Organizations []Organization `yaml:"organizations" validate:"required,min=1,dive"`
}

// Organization は団体の定義。
type Organization struct {
	ID                  string     `yaml:"id" validate:"required,max=64"`
	Name                string     `yaml:"name" validate:"required"`
	Address             string     `yaml:"address"`
	Color               string     `yaml:"color" validate:"omitempty,hexcolor"`
	WebsiteURL          string     `yaml:"website_url" validate:"omitempty,http_url"`
	Nusach              string     `yaml:"nusach" validate:"omitempty,nusach"`
	CalendarURL         string     `yaml:"calendar_url" validate:"omitempty,http_url"`
	UseImportedCalendar bool       `yaml:"use_imported_calendar"`
	Locations           []Location `yaml:"locations" validate:"dive"`
	Minyanim            []Minyan   `yaml:"minyanim" validate:"dive"`
}

// Location は礼拝場所の定義。
type Location struct {
	ID   string `yaml:"id" validate:"required,max=64"`
	Name string `yaml:"name" validate:"required"`
}

// Minyan は定例礼拝の定義。
// Scheduleのキーは日の種別名（SUNDAY〜ROSH_CHODESH_CHANUKA）またはdefault。
type Minyan struct {
	ID         string            `yaml:"id" validate:"required,max=64"`
	Type       string            `yaml:"type" validate:"required,minyantype"`
	LocationID string            `yaml:"location_id" validate:"omitempty,max=64"`
	Nusach     string            `yaml:"nusach" validate:"omitempty,nusach"`
	Enabled    *bool             `yaml:"enabled"`
	Notes      string            `yaml:"notes"`
	Whatsapp   string            `yaml:"whatsapp" validate:"omitempty,http_url"`
	Schedule   map[string]string `yaml:"schedule" validate:"required,min=1,dive,keys,slotkey,endkeys,minyantime"`
}

// Load はYAMLを読み込んで検証する。未知のキーはエラーとする。
func Load(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("シードファイルが空です")
		}
		return nil, fmt.Errorf("シードファイルの解析に失敗: %w", err)
	}
	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate は構造の検証と、ID重複・場所の参照・時刻表の網羅性の検証を行う。
func Validate(f *File) error {
	if err := newValidator().Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), describeTag(fe)))
			}
			return fmt.Errorf("シードファイルの検証に失敗:\n  %s", strings.Join(msgs, "\n  "))
		}
		return fmt.Errorf("シードファイルの検証に失敗: %w", err)
	}

	var problems []string
	orgIDs := make(map[string]bool)
	locationIDs := make(map[string]bool)
	minyanIDs := make(map[string]bool)
	for _, org := range f.Organizations {
		if orgIDs[org.ID] {
			problems = append(problems, fmt.Sprintf("団体IDが重複しています: %s", org.ID))
		}
		orgIDs[org.ID] = true

		own := make(map[string]bool)
		for _, loc := range org.Locations {
			if locationIDs[loc.ID] {
				problems = append(problems, fmt.Sprintf("礼拝場所IDが重複しています: %s", loc.ID))
			}
			locationIDs[loc.ID] = true
			own[loc.ID] = true
		}
		for _, m := range org.Minyanim {
			if minyanIDs[m.ID] {
				problems = append(problems, fmt.Sprintf("定例礼拝IDが重複しています: %s", m.ID))
			}
			minyanIDs[m.ID] = true
			if m.LocationID != "" && !own[m.LocationID] {
				problems = append(problems, fmt.Sprintf("定例礼拝 %s の礼拝場所 %s は団体 %s に定義されていません", m.ID, m.LocationID, org.ID))
			}
			if _, err := buildSchedule(m.Schedule); err != nil {
				problems = append(problems, fmt.Sprintf("定例礼拝 %s の時刻表: %v", m.ID, err))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("シードファイルの検証に失敗:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "必須です"
	case "min":
		return "1件以上必要です"
	case "max":
		return fmt.Sprintf("%s文字以内で指定してください", fe.Param())
	case "hexcolor":
		return fmt.Sprintf("16進カラーコードではありません: %v", fe.Value())
	case "http_url":
		return fmt.Sprintf("http(s)のURLではありません: %v", fe.Value())
	case "nusach":
		return fmt.Sprintf("未定義の流儀です: %v", fe.Value())
	case "minyantype":
		return fmt.Sprintf("未定義の礼拝の種類です: %v", fe.Value())
	case "slotkey":
		return fmt.Sprintf("未定義の日の種別です: %v", fe.Value())
	case "minyantime":
		return fmt.Sprintf("時刻の指定が不正です: %v", fe.Value())
	default:
		return fmt.Sprintf("%s の検証に失敗しました", fe.Tag())
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("nusach", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return model.ParseNusach(s) != model.NusachUnspecified || strings.EqualFold(strings.TrimSpace(s), string(model.NusachUnspecified))
	})
	_ = v.RegisterValidation("minyantype", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return model.ParseMinyanType(s) != model.MinyanTypeOther || strings.EqualFold(strings.TrimSpace(s), string(model.MinyanTypeOther))
	})
	_ = v.RegisterValidation("slotkey", func(fl validator.FieldLevel) bool {
		_, _, err := parseSlotKey(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("minyantime", func(fl validator.FieldLevel) bool {
		_, err := schedule.ParseMinyanTime(fl.Field().String())
		return err == nil
	})
	return v
}

// parseSlotKey は時刻表のキーを解釈する。defaultの場合はisDefault=trueを返す。
func parseSlotKey(key string) (dt schedule.DayType, isDefault bool, err error) {
	k := strings.TrimSpace(key)
	if strings.EqualFold(k, DefaultSlotKey) {
		return 0, true, nil
	}
	dt, err = schedule.ParseDayType(strings.ToUpper(k))
	return dt, false, err
}

// buildSchedule はキーと時刻指定の組から11スロットの時刻表を作る。
// 指定のない種別にはdefaultを使い、defaultもない場合はエラーとする。
func buildSchedule(slots map[string]string) (schedule.Schedule, error) {
	var fallback *schedule.MinyanTime
	byType := make(map[schedule.DayType]schedule.MinyanTime, len(slots))
	for key, value := range slots {
		dt, isDefault, err := parseSlotKey(key)
		if err != nil {
			return schedule.Schedule{}, err
		}
		mt, err := schedule.ParseMinyanTime(value)
		if err != nil {
			return schedule.Schedule{}, fmt.Errorf("%s: %w", key, err)
		}
		if isDefault {
			fallback = &mt
			continue
		}
		byType[dt] = mt
	}
	if fallback != nil {
		for _, dt := range schedule.DayTypes {
			if _, ok := byType[dt]; !ok {
				byType[dt] = *fallback
			}
		}
	}
	return schedule.NewSchedule(byType)
}
