package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server  ServerConfig
	MongoDB MongoDBConfig
	Sheets  SheetsConfig
	Alerts  AlertsConfig
	Sweep   SweepConfig
	Bank    BankConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration for the statistics spreadsheet
// export. Leaving SpreadsheetID empty disables the export.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// AlertsConfig contains the staff alert webhook settings. Leaving the
// URL empty disables outbound alerts.
type AlertsConfig struct {
	WebhookURL string
	AuthToken  string
	Channel    string
}

// SweepConfig holds scheduler-related settings.
type SweepConfig struct {
	ExpiryCronSchedule string
	ReportCronSchedule string
	Timezone           string
	LowStockML         float64
}

// BankConfig holds the clinical thresholds of the milk bank. Defaults
// follow the bank's standard operating procedure; they are tunable so
// a site can tighten them without a rebuild.
type BankConfig struct {
	MaxDonorsPerBatch int
	AcidityCutoffD    float64
	ReceptionTempMaxC float64
	AdminTempMinC     float64
	AdminTempMaxC     float64
	ShelfLifeMonths   int
}

// Load reads environment variables (optionally from the provided file)
// and materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes
		// from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "milkbank"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_STATS_ID"),
		},
		Alerts: AlertsConfig{
			WebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
			AuthToken:  os.Getenv("ALERT_WEBHOOK_TOKEN"),
			Channel:    getenvWithDefault("ALERT_CHANNEL", "banco-de-leche"),
		},
		Sweep: SweepConfig{
			ExpiryCronSchedule: getenvWithDefault("EXPIRY_CRON_SCHEDULE", "0 2 * * *"),
			ReportCronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 6 1 * *"),
			Timezone:           getenvWithDefault("TIMEZONE", "America/Mexico_City"),
			LowStockML:         getenvFloat("LOW_STOCK_THRESHOLD_ML", 500),
		},
		Bank: BankConfig{
			MaxDonorsPerBatch: getenvInt("MAX_DONORS_PER_BATCH", 3),
			AcidityCutoffD:    getenvFloat("ACIDITY_CUTOFF_D", 8.0),
			ReceptionTempMaxC: getenvFloat("RECEPTION_TEMP_MAX_C", 5.0),
			AdminTempMinC:     getenvFloat("ADMIN_TEMP_MIN_C", 14.0),
			AdminTempMaxC:     getenvFloat("ADMIN_TEMP_MAX_C", 18.0),
			ShelfLifeMonths:   getenvInt("SHELF_LIFE_MONTHS", 6),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated and
// the clinical thresholds make sense.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}
	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}
	if c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided when GOOGLE_SHEET_STATS_ID is set")
	}

	if c.Sweep.ExpiryCronSchedule == "" {
		return errors.New("EXPIRY_CRON_SCHEDULE must be provided")
	}
	if c.Sweep.ReportCronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}
	if c.Sweep.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	switch {
	case c.Bank.MaxDonorsPerBatch < 1:
		return errors.New("MAX_DONORS_PER_BATCH must be at least 1")
	case c.Bank.AcidityCutoffD <= 0:
		return errors.New("ACIDITY_CUTOFF_D must be positive")
	case c.Bank.AdminTempMinC >= c.Bank.AdminTempMaxC:
		return errors.New("ADMIN_TEMP_MIN_C must be below ADMIN_TEMP_MAX_C")
	case c.Bank.ShelfLifeMonths < 1:
		return errors.New("SHELF_LIFE_MONTHS must be at least 1")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
