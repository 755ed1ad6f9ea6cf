// Package historydb remembers which backends this client has connected to.
package historydb

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbmodel "automc/client/internal/db"
)

var errNotInitialized = errors.New("backend history is not initialized")

type Entry struct {
	Address        string
	FirstConnected time.Time
	LastConnected  time.Time
	Connects       int
}

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore shares the caller's DB handle; the store never closes it.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &Store{db: db, now: time.Now}, nil
}

// Touch records one successful connection to address.
func (s *Store) Touch(address string) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	addr := strings.TrimSpace(address)
	if addr == "" {
		return errors.New("address is required")
	}
	now := s.now().UTC().UnixMilli()
	row := dbmodel.BackendHistory{
		Address:          addr,
		FirstConnectedAt: now,
		LastConnectedAt:  now,
		ConnectCount:     1,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_connected_at": now,
			"connect_count":     gorm.Expr("backend_history.connect_count + 1"),
		}),
	}).Create(&row).Error
}

// List returns the most recently used backends first.
func (s *Store) List(limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialized
	}
	if limit <= 0 {
		limit = 20
	}
	rows := make([]dbmodel.BackendHistory, 0, limit)
	if err := s.db.Order("last_connected_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			Address:        row.Address,
			FirstConnected: time.UnixMilli(row.FirstConnectedAt).UTC(),
			LastConnected:  time.UnixMilli(row.LastConnectedAt).UTC(),
			Connects:       row.ConnectCount,
		})
	}
	return entries, nil
}

func (s *Store) Clear() error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	return s.db.Where("1 = 1").Delete(&dbmodel.BackendHistory{}).Error
}
