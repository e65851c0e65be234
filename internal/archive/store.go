// Package archive keeps a record of finished matches.
package archive

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/DoyleJ11/number-duel-backend/internal/room"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Match struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	RoomID         string         `gorm:"index;not null" json:"roomId"`
	Players        []string       `gorm:"serializer:json" json:"players"`
	Winner         string         `gorm:"not null" json:"winner"`
	Reason         string         `json:"reason,omitempty"`
	CrossedNumbers []int          `gorm:"serializer:json" json:"crossedNumbers"`
	Scores         map[string]int `gorm:"serializer:json" json:"scores"`
	FinishedAt     time.Time      `gorm:"index" json:"finishedAt"`
	CreatedAt      time.Time      `json:"-"`
}

func FromResult(r room.Result) Match {
	return Match{
		RoomID:         r.RoomID,
		Players:        r.Players,
		Winner:         r.Winner,
		Reason:         r.Reason,
		CrossedNumbers: r.Crossed,
		Scores:         r.Scores,
		FinishedAt:     r.FinishedAt,
	}
}

type Store interface {
	Save(ctx context.Context, m *Match) error
	// Recent returns up to limit matches, newest first.
	Recent(ctx context.Context, limit int) ([]Match, error)
}

type GormStore struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the match table.
func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return NewGormStore(db)
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Match{}); err != nil {
		return nil, fmt.Errorf("migrate matches: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Save(ctx context.Context, m *Match) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *GormStore) Recent(ctx context.Context, limit int) ([]Match, error) {
	var out []Match
	err := s.db.WithContext(ctx).Order("finished_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MemoryStore keeps the last capacity matches in process. It backs the
// archive when no database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	matches  []Match
	capacity int
	nextID   uint
}

func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{capacity: capacity}
}

func (s *MemoryStore) Save(_ context.Context, m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	m.CreatedAt = time.Now()
	s.matches = append(s.matches, *m)
	if over := len(s.matches) - s.capacity; over > 0 {
		s.matches = slices.Delete(s.matches, 0, over)
	}
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.matches)
	slices.Reverse(out)
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
