package ledger

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aogosto/order-triage/pkg/db"
	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/migrate"
)

const saveBatchSize = 200

// ProcessedOrder is one ledger row. Source and OrderID form the key.
type ProcessedOrder struct {
	Source      string    `gorm:"primaryKey;size:16"`
	OrderID     string    `gorm:"primaryKey;size:64"`
	ProcessedAt time.Time `gorm:"not null"`
}

func (ProcessedOrder) TableName() string {
	return "processed_orders"
}

// SQLStore keeps one source's ledger in the processed_orders table.
type SQLStore struct {
	client *db.Client
	source string
	clock  func() time.Time
}

// NewSQLStore migrates the ledger table and binds the store to source.
func NewSQLStore(ctx context.Context, client *db.Client, source string) (*SQLStore, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "db client required")
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "ledger source required")
	}
	if err := migrate.Up(ctx, client); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "migrate processed_orders")
	}
	return &SQLStore{client: client, source: source, clock: time.Now}, nil
}

func (s *SQLStore) Load(ctx context.Context) (Set, error) {
	var ids []string
	if err := s.client.DB().WithContext(ctx).
		Model(&ProcessedOrder{}).
		Where("source = ?", s.source).
		Order("order_id ASC").
		Pluck("order_id", &ids).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load processed orders")
	}
	return NewSet(ids...), nil
}

// Save inserts ids not yet stored. Existing rows keep their processed_at.
func (s *SQLStore) Save(ctx context.Context, set Set) error {
	if len(set) == 0 {
		return nil
	}
	now := s.clock().UTC()
	rows := make([]ProcessedOrder, 0, len(set))
	for _, id := range set.Sorted() {
		rows = append(rows, ProcessedOrder{Source: s.source, OrderID: id, ProcessedAt: now})
	}
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, saveBatchSize).Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save processed orders")
	}
	return nil
}
