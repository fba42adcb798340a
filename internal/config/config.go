package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/planner"
)

// Config holds application configuration
type Config struct {
	Port         string
	DBConn       string
	LogLevel     string
	JWTSecret    string
	HMACSecret   string
	CBRURL       string
	CBRMarginBps int64
	RedisAddr    string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	PlannerEnabled      bool
	PlannerSafetyBuffer money.Cents
	PlannerCooldown     time.Duration
	PlannerShockMode    planner.ShockMode
	PlannerMaxPerRun    money.Cents
	PlannerCron         string
	PlannerHorizonDays  int
	ShockRatio          decimal.Decimal
}

// NewConfig loads configuration from environment variables, reading .env first if present
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBConn:       getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=planner sslmode=disable"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:    getEnv("JWT_SECRET", "secret"),
		HMACSecret:   getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		CBRURL:       getEnv("CBR_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "planner@localhost"),
		PlannerCron:  getEnv("PLANNER_CRON", "0 6 * * *"),
	}

	var err error
	if cfg.CBRMarginBps, err = getInt("CBR_MARGIN_BPS", 500); err != nil {
		return nil, err
	}
	if cfg.PlannerEnabled, err = getBool("PLANNER_ENABLED", true); err != nil {
		return nil, err
	}
	buffer, err := getInt("PLANNER_SAFETY_BUFFER_CENTS", 10000)
	if err != nil {
		return nil, err
	}
	cfg.PlannerSafetyBuffer = money.Cents(buffer)
	maxPerRun, err := getInt("PLANNER_MAX_PER_RUN_CENTS", 0)
	if err != nil {
		return nil, err
	}
	cfg.PlannerMaxPerRun = money.Cents(maxPerRun)
	if cfg.PlannerCooldown, err = time.ParseDuration(getEnv("PLANNER_COOLDOWN", "0s")); err != nil {
		return nil, fmt.Errorf("PLANNER_COOLDOWN is invalid: %w", err)
	}
	horizon, err := getInt("PLANNER_HORIZON_DAYS", 14)
	if err != nil {
		return nil, err
	}
	cfg.PlannerHorizonDays = int(horizon)
	if cfg.ShockRatio, err = decimal.NewFromString(getEnv("SHOCK_RATIO", "1.5")); err != nil {
		return nil, fmt.Errorf("SHOCK_RATIO is invalid: %w", err)
	}

	cfg.PlannerShockMode = planner.ShockMode(getEnv("PLANNER_SHOCK_MODE", string(planner.ShockObserve)))
	switch cfg.PlannerShockMode {
	case planner.ShockOff, planner.ShockObserve, planner.ShockApply:
	default:
		return nil, fmt.Errorf("PLANNER_SHOCK_MODE must be off, observe or apply")
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}
	if cfg.PlannerSafetyBuffer < 0 || cfg.PlannerMaxPerRun < 0 || cfg.PlannerHorizonDays < 1 {
		return nil, fmt.Errorf("planner buffer, ceiling and horizon must be positive")
	}

	return cfg, nil
}

// Planner builds the planner settings once; the planner itself never reads the environment.
func (c *Config) Planner() planner.Config {
	pc := planner.DefaultConfig()
	pc.Enabled = c.PlannerEnabled
	pc.SafetyBuffer = c.PlannerSafetyBuffer
	pc.Cooldown = c.PlannerCooldown
	pc.ShockMode = c.PlannerShockMode
	pc.MaxContributionPerRun = c.PlannerMaxPerRun
	pc.DefaultHorizonDays = c.PlannerHorizonDays
	return pc
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getInt(key string, defaultVal int64) (int64, error) {
	v, err := strconv.ParseInt(getEnv(key, strconv.FormatInt(defaultVal, 10)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getBool(key string, defaultVal bool) (bool, error) {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultVal)))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}
