package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/teslashibe/go-posecam/pkg/ergonomics"
)

// sessionRow is the sessions table.
type sessionRow struct {
	ID         string    `gorm:"primaryKey"`
	StartTime  time.Time `gorm:"index"`
	EndTime    time.Time
	LastUpdate time.Time
	Duration   time.Duration
	Frames     int
	Detections int
	REBAScore  int
	RULAScore  int
	REBARisk   string
	RULARisk   string
	Status     string `gorm:"index"`

	REBAComponents ergonomics.Components `gorm:"embedded;embeddedPrefix:reba_"`
	RULAComponents ergonomics.Components `gorm:"embedded;embeddedPrefix:rula_"`
}

func (sessionRow) TableName() string { return "sessions" }

func toRow(s *Session) sessionRow {
	return sessionRow{
		ID:         s.ID,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		LastUpdate: s.LastUpdate,
		Duration:   s.Duration,
		Frames:     s.Frames,
		Detections: s.Detections,
		REBAScore:  s.REBAScore,
		RULAScore:  s.RULAScore,
		REBARisk:   string(s.REBARisk),
		RULARisk:   string(s.RULARisk),
		Status:     string(s.Status),

		REBAComponents: s.REBAComponents,
		RULAComponents: s.RULAComponents,
	}
}

func (r sessionRow) session() *Session {
	return &Session{
		ID:         r.ID,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		LastUpdate: r.LastUpdate,
		Duration:   r.Duration,
		Frames:     r.Frames,
		Detections: r.Detections,
		REBAScore:  r.REBAScore,
		RULAScore:  r.RULAScore,
		REBARisk:   ergonomics.Risk(r.REBARisk),
		RULARisk:   ergonomics.Risk(r.RULARisk),
		Status:     Status(r.Status),

		REBAComponents: r.REBAComponents,
		RULAComponents: r.RULAComponents,
	}
}

// SQLStore implements Store on a SQLite database.
type SQLStore struct {
	db   *gorm.DB
	path string
}

// NewSQLStore opens or creates the SQLite database at path.
func NewSQLStore(path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("session: create directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&sessionRow{}); err != nil {
		return nil, fmt.Errorf("session: migrate: %w", err)
	}
	return &SQLStore{db: db, path: path}, nil
}

// Save creates or updates a session.
func (s *SQLStore) Save(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	row := toRow(sess)
	if err := s.db.Save(&row).Error; err != nil {
		return fmt.Errorf("session: save %s: %w", sess.ID, err)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *SQLStore) Get(id string) (*Session, error) {
	var row sessionRow
	err := s.db.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("session: get %s: %w", id, err)
	}
	return row.session(), nil
}

// List returns all sessions, newest start first.
func (s *SQLStore) List() ([]*Session, error) {
	var rows []sessionRow
	if err := s.db.Order("start_time desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	out := make([]*Session, len(rows))
	for i, r := range rows {
		out[i] = r.session()
	}
	return out, nil
}

// Count returns the total number of sessions.
func (s *SQLStore) Count() int {
	var n int64
	s.db.Model(&sessionRow{}).Count(&n)
	return int(n)
}

// Path returns the database file path.
func (s *SQLStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Open picks a store by file extension: .db, .sqlite and .sqlite3 use
// SQLite, anything else the JSON file store.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLStore(path)
	default:
		return NewJSONStore(path)
	}
}
