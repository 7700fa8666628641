package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/oncall-roster/pkg/core/availability"
	"github.com/jakechorley/oncall-roster/pkg/core/calendar"
	"github.com/jakechorley/oncall-roster/pkg/core/distribution"
	"github.com/jakechorley/oncall-roster/pkg/core/model"
	"github.com/jakechorley/oncall-roster/pkg/core/rules"
)

// DatabaseConfig selects and locates the planning store
type DatabaseConfig struct {
	Driver     string `yaml:"driver" env:"ROSTER_DATABASE_DRIVER" validate:"omitempty,oneof=postgres sqlite"`
	URL        string `yaml:"url,omitempty" env:"ROSTER_DATABASE_URL"`
	SQLitePath string `yaml:"sqlitePath,omitempty" env:"ROSTER_SQLITE_PATH"`
}

// ScoreWeightsConfig weighs the night-adjacent leftover score
type ScoreWeightsConfig struct {
	GroupDistance float64 `yaml:"groupDistance" validate:"min=0"`
	CrossType     float64 `yaml:"crossType" validate:"min=0"`
	Workload      float64 `yaml:"workload" validate:"min=0"`
}

// EngineConfig tunes distribution runs. Zero values keep the engine defaults.
type EngineConfig struct {
	CriticalUnavailability            float64            `yaml:"criticalUnavailability,omitempty" validate:"min=0,max=1"`
	GroupingTolerance                 float64            `yaml:"groupingTolerance,omitempty" validate:"min=0,max=1"`
	NightAdjacentCriticalAvailability float64            `yaml:"nightAdjacentCriticalAvailability,omitempty" validate:"min=0,max=1"`
	NLAbsoluteMaxFactor               float64            `yaml:"nlAbsoluteMaxFactor,omitempty" validate:"omitempty,gte=1"`
	TierWeights                       map[string]float64 `yaml:"tierWeights,omitempty" validate:"dive,min=0"`
	RefinementPasses                  int                `yaml:"refinementPasses,omitempty" validate:"min=0,max=10"`
	Jitter                            float64            `yaml:"jitter,omitempty"`
	TypeFlexMargin                    float64            `yaml:"typeFlexMargin,omitempty" validate:"min=0"`
	MultiplicityBonus                 float64            `yaml:"multiplicityBonus,omitempty" validate:"min=0"`
	NightAdjacentWeights              ScoreWeightsConfig `yaml:"nightAdjacentWeights,omitempty"`
}

// RestConfig tunes the rest rules. Zero values keep the standard rules.
type RestConfig struct {
	NightStart                string  `yaml:"nightStart,omitempty"`
	MinRestAfterNightHours    float64 `yaml:"minRestAfterNightHours,omitempty" validate:"min=0"`
	MaxConsecutiveNights      int     `yaml:"maxConsecutiveNights,omitempty" validate:"min=0"`
	MaxConsecutiveWorkingDays int     `yaml:"maxConsecutiveWorkingDays,omitempty" validate:"min=0"`
	MaxPostsPerDay            int     `yaml:"maxPostsPerDay,omitempty" validate:"min=0"`
}

// HolidayConfig lists public holidays as fixed dates and yearly recurrence rules
type HolidayConfig struct {
	Dates  []string `yaml:"dates,omitempty" validate:"dive,datetime=2006-01-02"`
	RRules []string `yaml:"rrules,omitempty"`
}

// CustomCombinationConfig pairs a custom post with a partner post
type CustomCombinationConfig struct {
	Partner string `yaml:"partner" validate:"required"`
	Code    string `yaml:"code,omitempty"`
	Tier    string `yaml:"tier" validate:"required,oneof=high medium low"`
}

// CustomPostConfig is a site-specific post added to the standard catalog
type CustomPostConfig struct {
	Name           string                    `yaml:"name" validate:"required"`
	Start          string                    `yaml:"start" validate:"required"`
	End            string                    `yaml:"end" validate:"required"`
	Audience       string                    `yaml:"audience" validate:"required,oneof=doctors auxiliaries both"`
	DayTypes       []string                  `yaml:"dayTypes,omitempty" validate:"dive,oneof=weekday saturday sunday_holiday"`
	StatisticGroup string                    `yaml:"statisticGroup,omitempty"`
	Combinations   []CustomCombinationConfig `yaml:"combinations,omitempty" validate:"dive"`
}

// SheetsConfig locates the staff and desiderata tabs
type SheetsConfig struct {
	SpreadsheetID string `yaml:"spreadsheetID,omitempty"`
	StaffTab      string `yaml:"staffTab,omitempty" validate:"required_with=SpreadsheetID"`
	DesiderataTab string `yaml:"desiderataTab,omitempty" validate:"required_with=SpreadsheetID"`
}

// GmailConfig configures shortfall notifications
type GmailConfig struct {
	UserID     string   `yaml:"userID,omitempty"`
	Sender     string   `yaml:"sender,omitempty"`
	Recipients []string `yaml:"recipients,omitempty" validate:"dive,email"`
}

// TelemetryConfig configures tracing export
type TelemetryConfig struct {
	OTelEndpoint string `yaml:"otelEndpoint,omitempty" env:"ROSTER_OTEL_ENDPOINT"`
	ServiceName  string `yaml:"serviceName,omitempty"`
}

// ServerConfig configures the HTTP service
type ServerConfig struct {
	Port string `yaml:"port,omitempty" env:"PORT"`
}

// Config represents the application configuration
type Config struct {
	RosterFile  string             `yaml:"rosterFile,omitempty" env:"ROSTER_FILE"`
	Seed        *uint64            `yaml:"seed,omitempty" env:"ROSTER_SEED"`
	Database    DatabaseConfig     `yaml:"database"`
	Engine      EngineConfig       `yaml:"engine,omitempty"`
	Rest        RestConfig         `yaml:"rest,omitempty"`
	Holidays    HolidayConfig      `yaml:"holidays,omitempty"`
	CustomPosts []CustomPostConfig `yaml:"customPosts,omitempty" validate:"dive"`
	Sheets      SheetsConfig       `yaml:"sheets,omitempty"`
	Gmail       GmailConfig        `yaml:"gmail,omitempty"`
	Telemetry   TelemetryConfig    `yaml:"telemetry,omitempty"`
	Server      ServerConfig       `yaml:"server,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from roster_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration with an environment suffix
// For example, env="test" will look for "roster_config.test.yaml"
func LoadWithEnv(envName string) (*Config, error) {
	configPath, err := findConfigFile(envName)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads the configuration from a specific path, applies environment overrides
// and validates the result
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from ROSTER_* environment variables
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate validates the configuration struct, then the values it can only check by parsing
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, r := range cfg.Holidays.RRules {
		if _, err := rrule.StrToRRule(r); err != nil {
			return fmt.Errorf("invalid rrule in holidays.rrules[%d]: %w", i, err)
		}
	}

	if _, err := cfg.Rest.Rules(); err != nil {
		return err
	}
	for tier := range cfg.Engine.TierWeights {
		if _, err := model.ParseTier(tier); err != nil {
			return fmt.Errorf("invalid engine.tierWeights: %w", err)
		}
	}
	if _, err := cfg.Catalog(); err != nil {
		return err
	}

	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.URL == "" {
			return fmt.Errorf("config validation failed: database.url is required for postgres")
		}
	case "sqlite":
		if cfg.Database.SQLitePath == "" {
			return fmt.Errorf("config validation failed: database.sqlitePath is required for sqlite")
		}
	}

	return nil
}

// Distribution converts the engine tuning into a distribution config
func (c *Config) Distribution(seed uint64) distribution.Config {
	e := c.Engine
	cfg := distribution.Config{
		Seed: seed,
		Thresholds: availability.Thresholds{
			CriticalUnavailability: e.CriticalUnavailability,
			GroupingTolerance:      e.GroupingTolerance,
		},
		NightAdjacentCriticalAvailability: e.NightAdjacentCriticalAvailability,
		NLAbsoluteMaxFactor:               e.NLAbsoluteMaxFactor,
		RefinementPasses:                  e.RefinementPasses,
		Jitter:                            e.Jitter,
		TypeFlexMargin:                    e.TypeFlexMargin,
		MultiplicityBonus:                 e.MultiplicityBonus,
		NightAdjacentWeights: distribution.ScoreWeights{
			GroupDistance: e.NightAdjacentWeights.GroupDistance,
			CrossType:     e.NightAdjacentWeights.CrossType,
			Workload:      e.NightAdjacentWeights.Workload,
		},
	}
	if len(e.TierWeights) > 0 {
		cfg.TierWeights = distribution.DefaultConfig().TierWeights
		for name, w := range e.TierWeights {
			// Validate has already rejected unknown tiers
			tier, _ := model.ParseTier(name)
			cfg.TierWeights[tier] = w
		}
	}
	return cfg
}

// Rules converts the rest tuning, filling zero fields from the standard rules
func (r RestConfig) Rules() (rules.RestConfig, error) {
	out := rules.DefaultRestConfig()
	if r.NightStart != "" {
		c, err := model.ParseClock(r.NightStart)
		if err != nil {
			return rules.RestConfig{}, fmt.Errorf("invalid rest.nightStart: %w", err)
		}
		out.NightStart = c
	}
	if r.MinRestAfterNightHours > 0 {
		out.MinRestAfterNight = time.Duration(r.MinRestAfterNightHours * float64(time.Hour))
	}
	if r.MaxConsecutiveNights > 0 {
		out.MaxConsecutiveNights = r.MaxConsecutiveNights
	}
	if r.MaxConsecutiveWorkingDays > 0 {
		out.MaxConsecutiveWorkingDays = r.MaxConsecutiveWorkingDays
	}
	if r.MaxPostsPerDay > 0 {
		out.MaxPostsPerDay = r.MaxPostsPerDay
	}
	return out, nil
}

// Calendar builds the holiday calendar
func (h HolidayConfig) Calendar() (*calendar.Calendar, error) {
	fixed := make([]time.Time, 0, len(h.Dates))
	for _, s := range h.Dates {
		d, err := model.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday date: %w", err)
		}
		fixed = append(fixed, d)
	}
	return calendar.New(fixed, h.RRules)
}

// Catalog returns the standard catalog extended with the configured custom posts
func (c *Config) Catalog() (*model.Catalog, error) {
	if len(c.CustomPosts) == 0 {
		return model.StandardCatalog(), nil
	}

	custom := make([]model.CustomPost, 0, len(c.CustomPosts))
	for _, cp := range c.CustomPosts {
		post, err := cp.toModel()
		if err != nil {
			return nil, fmt.Errorf("invalid custom post %s: %w", cp.Name, err)
		}
		custom = append(custom, post)
	}

	catalog, err := model.StandardCatalog().WithCustomPosts(custom)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}
	return catalog, nil
}

func (cp CustomPostConfig) toModel() (model.CustomPost, error) {
	start, err := model.ParseClock(cp.Start)
	if err != nil {
		return model.CustomPost{}, err
	}
	end, err := model.ParseClock(cp.End)
	if err != nil {
		return model.CustomPost{}, err
	}
	audience, err := model.ParseAudience(cp.Audience)
	if err != nil {
		return model.CustomPost{}, err
	}

	post := model.CustomPost{
		Name:           model.PostType(cp.Name),
		Start:          start,
		End:            end,
		Audience:       audience,
		StatisticGroup: model.Group(cp.StatisticGroup),
	}
	for _, s := range cp.DayTypes {
		dt, err := model.ParseDayType(s)
		if err != nil {
			return model.CustomPost{}, err
		}
		post.DayTypes = append(post.DayTypes, dt)
	}
	if len(post.DayTypes) == 0 {
		post.DayTypes = []model.DayType{model.DayTypeWeekday}
	}
	for _, cc := range cp.Combinations {
		tier, err := model.ParseTier(cc.Tier)
		if err != nil {
			return model.CustomPost{}, err
		}
		post.Combinations = append(post.Combinations, model.CustomCombination{
			Partner: model.PostType(cc.Partner),
			Code:    cc.Code,
			Tier:    tier,
		})
	}
	return post, nil
}

// findConfigFile searches for roster_config.yaml in current directory and home directory
// If env is provided, it adds it as an extension (e.g., "roster_config.test.yaml")
func findConfigFile(envName string) (string, error) {
	configFileName := "roster_config.yaml"
	if envName != "" {
		configFileName = "roster_config." + envName + ".yaml"
	}
	return findFile(configFileName)
}
