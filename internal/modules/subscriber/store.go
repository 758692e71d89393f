package subscriber

import (
	"context"
	"errors"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/thekandidedit/core/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate is returned by InsertPending when a row for the email
	// already exists.
	ErrDuplicate = errors.New("subscriber: email already exists")
	// ErrNotFound is returned when no subscriber row matches.
	ErrNotFound = errors.New("subscriber: not found")
)

// Store is the row-level interface the lifecycle engine drives. The
// conditional updates express the idempotency and re-arm rules as atomic
// predicates instead of read-then-write races.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*models.SubscriberModel, error)

	// InsertPending creates a fresh pending row. Returns ErrDuplicate on a
	// unique-key conflict.
	InsertPending(ctx context.Context, email, confirmToken string) error

	// RearmPending resets a non-active row back to pending with a fresh
	// stored token and clears unsubscribed_at. Returns the number of rows
	// updated (0 means the row is active, or absent).
	RearmPending(ctx context.Context, email, confirmToken string) (int64, error)

	// Activate flips a row to active and clears confirm_token and
	// unsubscribed_at. matched reports whether a row for the email exists
	// at all; transitioned whether this call changed it.
	Activate(ctx context.Context, email string) (matched, transitioned bool, err error)

	// MarkUnsubscribed flips a not-yet-unsubscribed row to unsubscribed,
	// stamps unsubscribed_at and clears confirm_token. Returns the number
	// of rows updated.
	MarkUnsubscribed(ctx context.Context, email string, at time.Time) (int64, error)

	// AppendEmailLog records one outbound mail attempt. Append-only.
	AppendEmailLog(ctx context.Context, entry *models.EmailLogModel) error

	// List returns all subscriber rows, newest first.
	List(ctx context.Context) ([]models.SubscriberModel, error)
}

// gormStore is the MySQL-backed Store.
type gormStore struct {
	db *gorm.DB
}

// NewStore wraps a gorm connection in the Store interface.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) FindByEmail(ctx context.Context, email string) (*models.SubscriberModel, error) {
	var sub models.SubscriberModel
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (s *gormStore) InsertPending(ctx context.Context, email, confirmToken string) error {
	sub := models.SubscriberModel{
		Email:        email,
		Status:       models.SubscriberStatusPending,
		ConfirmToken: &confirmToken,
	}
	err := s.db.WithContext(ctx).Create(&sub).Error
	if err != nil && isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

func (s *gormStore) RearmPending(ctx context.Context, email, confirmToken string) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.SubscriberModel{}).
		Where("email = ? AND status <> ?", email, models.SubscriberStatusActive).
		Updates(map[string]interface{}{
			"status":          models.SubscriberStatusPending,
			"confirm_token":   confirmToken,
			"unsubscribed_at": nil,
		})
	return result.RowsAffected, result.Error
}

func (s *gormStore) Activate(ctx context.Context, email string) (bool, bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.SubscriberModel{}).
		Where("email = ? AND status <> ?", email, models.SubscriberStatusActive).
		Updates(map[string]interface{}{
			"status":          models.SubscriberStatusActive,
			"confirm_token":   nil,
			"unsubscribed_at": nil,
		})
	if result.Error != nil {
		return false, false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, true, nil
	}

	// Nothing transitioned: either the row is already active (a replay)
	// or it does not exist.
	sub, err := s.FindByEmail(ctx, email)
	if err != nil {
		return false, false, err
	}
	return sub != nil, false, nil
}

func (s *gormStore) MarkUnsubscribed(ctx context.Context, email string, at time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.SubscriberModel{}).
		Where("email = ? AND status <> ?", email, models.SubscriberStatusUnsubscribed).
		Updates(map[string]interface{}{
			"status":          models.SubscriberStatusUnsubscribed,
			"unsubscribed_at": at,
			"confirm_token":   nil,
		})
	return result.RowsAffected, result.Error
}

func (s *gormStore) AppendEmailLog(ctx context.Context, entry *models.EmailLogModel) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *gormStore) List(ctx context.Context) ([]models.SubscriberModel, error) {
	var subs []models.SubscriberModel
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *driver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
