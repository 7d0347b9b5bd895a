package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/Nearby/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// messageRow is the persisted form of a public message.
type messageRow struct {
	ID         uint      `gorm:"primarykey"`
	SenderID   string    `gorm:"size:64;index"`
	SenderName string    `gorm:"size:128"`
	Message    string    `gorm:"size:4000"`
	Latitude   float64   `gorm:"not null"`
	Longitude  float64   `gorm:"not null"`
	Timestamp  time.Time `gorm:"index;not null"`
}

func (messageRow) TableName() string {
	return "messages"
}

func (r messageRow) toDomain() domain.Message {
	return domain.Message{
		SenderID:   domain.UserID(r.SenderID),
		SenderName: r.SenderName,
		Text:       r.Message,
		Location:   domain.Location{Latitude: r.Latitude, Longitude: r.Longitude},
		Timestamp:  r.Timestamp,
	}
}

// SQLStore keeps public messages in a SQL database through GORM.
type SQLStore struct {
	db  *gorm.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the SQLite database at dsn.
func OpenSQLite(dsn string, debug bool) (*SQLStore, error) {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", dsn, err)
	}
	return NewSQLStore(db)
}

// NewSQLStore migrates the schema on db and wraps it.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	// A single connection keeps a :memory: database shared between calls.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&messageRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate messages: %w", err)
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

func (s *SQLStore) Append(ctx context.Context, msg domain.Message) error {
	row := messageRow{
		SenderID:   string(msg.SenderID),
		SenderName: msg.SenderName,
		Message:    msg.Text,
		Latitude:   msg.Latitude,
		Longitude:  msg.Longitude,
		Timestamp:  msg.Timestamp.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// QueryRecent returns up to limit messages newer than within, newest first.
func (s *SQLStore) QueryRecent(ctx context.Context, within time.Duration, limit int) ([]domain.Message, error) {
	var rows []messageRow
	q := s.db.WithContext(ctx).
		Where("timestamp > ?", s.now().Add(-within).UTC()).
		Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	out := make([]domain.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
