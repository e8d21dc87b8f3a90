// Package audit persists an append-only trail of settled distributions and
// withdrawals. The trail is advisory bookkeeping for reconciliation and
// support tooling; the ledger itself never reads it back.
package audit

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"tuneledger/native/revenue"
)

// DistributionRecord mirrors a revenue.Distribution row for row-level audit
// queries. Amounts are stored as decimal strings to survive any int width.
type DistributionRecord struct {
	ID               string `gorm:"primaryKey;size:36"`
	TrackID          uint64 `gorm:"index"`
	Payer            string `gorm:"size:42;index"`
	Amount           string
	PlatformFee      string
	RoyaltyRecipient string `gorm:"size:42"`
	Royalty          string
	Seller           string `gorm:"size:42;index"`
	SellerProceeds   string
	DistributedAt    int64
	CreatedAt        time.Time
}

// WithdrawalRecord captures a completed payout.
type WithdrawalRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	Account     string `gorm:"size:42;index"`
	Amount      string
	WithdrawnAt int64
	CreatedAt   time.Time
}

// Store is a sqlite-backed audit log satisfying revenue.Auditor.
type Store struct {
	db *gorm.DB
}

var _ revenue.Auditor = (*Store)(nil)

// Open creates or opens the audit database at the supplied path and migrates
// the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	if err := db.AutoMigrate(&DistributionRecord{}, &WithdrawalRecord{}); err != nil {
		return nil, fmt.Errorf("audit: migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func addrString(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

// RecordDistribution appends a distribution row.
func (s *Store) RecordDistribution(d *revenue.Distribution) error {
	if s == nil || s.db == nil || d == nil {
		return nil
	}
	row := &DistributionRecord{
		ID:               uuid.NewString(),
		TrackID:          d.TrackID,
		Payer:            addrString(d.Payer),
		Amount:           bigString(d.Amount),
		PlatformFee:      bigString(d.PlatformFee),
		RoyaltyRecipient: addrString(d.RoyaltyRecipient),
		Royalty:          bigString(d.Royalty),
		Seller:           addrString(d.Seller),
		SellerProceeds:   bigString(d.SellerProceeds),
		DistributedAt:    d.DistributedAt,
	}
	return s.db.Create(row).Error
}

// RecordWithdrawal appends a withdrawal row.
func (s *Store) RecordWithdrawal(account [20]byte, amount *big.Int, at int64) error {
	if s == nil || s.db == nil {
		return nil
	}
	row := &WithdrawalRecord{
		ID:          uuid.NewString(),
		Account:     addrString(account),
		Amount:      bigString(amount),
		WithdrawnAt: at,
	}
	return s.db.Create(row).Error
}

// RecentDistributions returns the newest distribution rows, most recent first.
func (s *Store) RecentDistributions(limit int) ([]DistributionRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var rows []DistributionRecord
	err := s.db.Order("created_at desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// DistributionsForTrack returns every distribution recorded for a track.
func (s *Store) DistributionsForTrack(trackID uint64) ([]DistributionRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []DistributionRecord
	err := s.db.Where("track_id = ?", trackID).Order("created_at asc").Find(&rows).Error
	return rows, err
}
