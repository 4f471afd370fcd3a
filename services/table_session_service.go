package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-qr/models"
	"github.com/yeremiapane/restaurant-qr/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTableNotFound  = errors.New("table_not_found")
	ErrNoSession      = errors.New("no_table_session")
	ErrSessionInvalid = errors.New("invalid_or_expired_session")
)

// Credential is the opaque session token a customer presents.
type Credential string

// TableIdentity is what the guard resolves a credential to.
type TableIdentity struct {
	TableID     uint
	TableNumber string
}

// CreatedSession is returned to the caller for delivery as a cookie.
type CreatedSession struct {
	TableIdentity
	Credential Credential
	ExpiresAt  time.Time
	// Superseded counts the previously active sessions this one replaced.
	Superseded int64
}

// Notifier is told whenever a table's status changes because of a session.
type Notifier interface {
	TableStatusChanged(table models.Table)
}

type TableSessionService struct {
	DB       *gorm.DB
	TTL      time.Duration
	notifier Notifier
	now      func() time.Time
}

// NewTableSessionService builds the session manager. notifier and now may be
// nil.
func NewTableSessionService(db *gorm.DB, ttl time.Duration, notifier Notifier, now func() time.Time) *TableSessionService {
	if now == nil {
		now = time.Now
	}
	return &TableSessionService{DB: db, TTL: ttl, notifier: notifier, now: now}
}

// Create opens a session for tableNumber, superseding any active one. The
// deactivate, insert and status update commit together, and the table row is
// locked for the duration so concurrent scans of one table serialize.
// The latest scan wins; the superseded client is not told.
func (s *TableSessionService) Create(ctx context.Context, tableNumber string) (*CreatedSession, error) {
	now := s.now()
	var (
		table   models.Table
		session models.TableSession
		result  CreatedSession
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("table_number = ?", tableNumber).
			First(&table).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTableNotFound
			}
			return fmt.Errorf("lookup table: %w", err)
		}

		res := tx.Model(&models.TableSession{}).
			Where("table_id = ? AND is_active = ?", table.ID, true).
			Update("is_active", false)
		if res.Error != nil {
			return fmt.Errorf("deactivate sessions: %w", res.Error)
		}
		result.Superseded = res.RowsAffected

		session = models.TableSession{
			TableID:      table.ID,
			SessionToken: newSessionToken(table.ID, now),
			ExpiresAt:    now.Add(s.TTL),
			IsActive:     true,
		}
		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		if err := tx.Model(&table).Update("status", models.TableStatusOccupied).Error; err != nil {
			return fmt.Errorf("occupy table: %w", err)
		}
		table.Status = models.TableStatusOccupied
		return nil
	})
	if err != nil {
		return nil, err
	}

	sessionEvents.WithLabelValues("created").Inc()
	if result.Superseded > 0 {
		sessionEvents.WithLabelValues("superseded").Add(float64(result.Superseded))
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"table_id":     table.ID,
		"table_number": table.TableNumber,
		"superseded":   result.Superseded,
	}).Info("table session created")
	s.notify(table)

	result.TableIdentity = TableIdentity{TableID: table.ID, TableNumber: table.TableNumber}
	result.Credential = Credential(session.SessionToken)
	result.ExpiresAt = session.ExpiresAt
	return &result, nil
}

// Authorize resolves cred to its table. Only an active session whose expiry is
// after the current time passes.
func (s *TableSessionService) Authorize(ctx context.Context, cred Credential) (*TableIdentity, error) {
	if cred == "" {
		guardResults.WithLabelValues("rejected").Inc()
		return nil, ErrNoSession
	}

	var session models.TableSession
	err := s.DB.WithContext(ctx).
		Preload("Table").
		Where("session_token = ? AND is_active = ?", string(cred), true).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			guardResults.WithLabelValues("rejected").Inc()
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	if !session.ExpiresAt.After(s.now()) {
		guardResults.WithLabelValues("rejected").Inc()
		return nil, ErrSessionInvalid
	}

	guardResults.WithLabelValues("authorized").Inc()
	return &TableIdentity{TableID: session.TableID, TableNumber: session.Table.TableNumber}, nil
}

// Release ends every active session of the table and frees it.
func (s *TableSessionService) Release(ctx context.Context, tableID uint) error {
	var table models.Table
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&table, tableID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTableNotFound
			}
			return fmt.Errorf("lookup table: %w", err)
		}
		if err := tx.Model(&models.TableSession{}).
			Where("table_id = ? AND is_active = ?", tableID, true).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate sessions: %w", err)
		}
		if err := tx.Model(&table).Update("status", models.TableStatusAvailable).Error; err != nil {
			return fmt.Errorf("free table: %w", err)
		}
		table.Status = models.TableStatusAvailable
		return nil
	})
	if err != nil {
		return err
	}

	sessionEvents.WithLabelValues("released").Inc()
	utils.InfoLogger.WithFields(logrus.Fields{
		"table_id":     table.ID,
		"table_number": table.TableNumber,
	}).Info("table released")
	s.notify(table)
	return nil
}

func (s *TableSessionService) notify(table models.Table) {
	if s.notifier != nil {
		s.notifier.TableStatusChanged(table)
	}
}

// newSessionToken hashes the table id, the time and a random UUID, so the
// token reveals none of them.
func newSessionToken(tableID uint, now time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d.%d.%s", tableID, now.UnixNano(), uuid.NewString())))
	return hex.EncodeToString(sum[:])
}
