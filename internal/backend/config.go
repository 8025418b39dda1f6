package backend

import (
	"errors"
	"fmt"
	"time"

	"finance/internal/config"
)

// ReportTarget selects where yearly reports are written.
type ReportTarget string

const (
	SheetsReports ReportTarget = "sheets"
	MemoryReports ReportTarget = "memory"
)

// String implements fmt.Stringer
func (rt ReportTarget) String() string {
	return string(rt)
}

// IsValid returns true if the report target is known
func (rt ReportTarget) IsValid() bool {
	switch rt {
	case SheetsReports, MemoryReports:
		return true
	default:
		return false
	}
}

// Config holds what the factory needs to assemble the application.
type Config struct {
	SQLiteDBPath string

	// AMQP is optional, an empty URL keeps everything local.
	AMQPURL      string
	AMQPExchange string

	SummaryCacheSize int
	SummaryCacheTTL  time.Duration

	Reports                  ReportTarget
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	reports := MemoryReports
	if appConfig.SheetsEnabled() {
		reports = SheetsReports
	}

	cfg := Config{
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,

		SummaryCacheSize: appConfig.SummaryCacheSize,
		SummaryCacheTTL:  appConfig.SummaryCacheTTL,

		Reports:                  reports,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}
	return cfg, cfg.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required")
	}
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		return errors.New("AMQP exchange is required when AMQP URL is set")
	}
	if !c.Reports.IsValid() {
		return fmt.Errorf("invalid report target: %s", c.Reports)
	}
	if c.Reports == SheetsReports && c.GoogleSpreadsheetID == "" {
		return errors.New("Google Spreadsheet ID is required for sheets reports")
	}
	return nil
}
