package database

import (
	"fmt"
	"time"

	"github.com/novahq/nova/pkg/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config contiene la configurazione del database
type Config struct {
	Type       string `yaml:"type" mapstructure:"type"`             // "postgres" or "sqlite"
	Connection string `yaml:"connection" mapstructure:"connection"` // Connection string
	MaxConns   int    `yaml:"max_conns" mapstructure:"max_conns"`
	LogLevel   string `yaml:"log_level" mapstructure:"log_level"`
}

// DB wrappa la connessione GORM
type DB struct {
	*gorm.DB
}

// New crea una nuova connessione al database
func New(cfg *Config) (*DB, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(cfg.Connection)
	case "sqlite":
		dialector = sqlite.Open(cfg.Connection)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	// Configure logger
	logLevel := logger.Silent
	switch cfg.LogLevel {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "error":
		logLevel = logger.Error
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &DB{DB: db}, nil
}

// AutoMigrate esegue le migrazioni del database
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&models.AskRecord{},
		&models.TaskRecord{},
		&models.ProviderStats{},
	)
}

// Close chiude la connessione al database
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveAskRecord persiste l'esito di una domanda
func (db *DB) SaveAskRecord(record *models.AskRecord) error {
	if err := record.BeforeCreate(); err != nil {
		return err
	}
	return db.Create(record).Error
}

// SaveTaskRecord persiste l'esito aggregato di un task
func (db *DB) SaveTaskRecord(record *models.TaskRecord) error {
	if err := record.BeforeCreate(); err != nil {
		return err
	}
	return db.Create(record).Error
}

// SaveProviderStats persiste una finestra di statistiche provider
func (db *DB) SaveProviderStats(stats *models.ProviderStats) error {
	if err := stats.BeforeCreate(); err != nil {
		return err
	}
	return db.Create(stats).Error
}

// GetRecentAsks restituisce le domande più recenti
func (db *DB) GetRecentAsks(limit int) ([]models.AskRecord, error) {
	var records []models.AskRecord
	err := db.Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// GetRecentTasks restituisce i task più recenti
func (db *DB) GetRecentTasks(limit int) ([]models.TaskRecord, error) {
	var records []models.TaskRecord
	err := db.Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// GetLatestStats restituisce le statistiche provider delle ultime 24 ore
func (db *DB) GetLatestStats() ([]models.ProviderStats, error) {
	var stats []models.ProviderStats
	err := db.Where("timestamp > ?", time.Now().Add(-24*time.Hour)).
		Order("timestamp DESC").
		Limit(100).
		Find(&stats).Error
	return stats, err
}
