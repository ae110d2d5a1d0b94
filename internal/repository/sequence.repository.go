package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/nmcorpuz/pawnshop-core/pkg/pg"
)

// TicketSequence is a per-branch, per-document-type, per-period counter row.
// Ticket numbers are monotonically increasing and never duplicated; gaps are
// tolerated (a rolled-back operation leaves a hole).
type TicketSequence struct {
	ID       int64  `gorm:"primaryKey;autoIncrement;column:id"`
	BranchID int64  `gorm:"column:branch_id;not null;uniqueIndex:idx_seq_key"`
	DocType  string `gorm:"column:doc_type;not null;uniqueIndex:idx_seq_key"`
	Period   string `gorm:"column:period;not null;uniqueIndex:idx_seq_key"` // YYYYMM or YYYY
	Value    int64  `gorm:"column:value;not null"`
}

func (TicketSequence) TableName() string { return "ticket_sequences" }

const DocTypePawnTicket = "pawn_ticket"

type SequenceRepository struct {
	*pg.DB
}

func NewSequenceRepository(db *pg.DB) *SequenceRepository {
	return &SequenceRepository{
		db,
	}
}

// Next allocates the next counter value for (branch, docType, period) in a
// single upsert-increment statement. Counters live only in this row, never in
// process memory, so concurrent instances cannot hand out duplicates.
func (r *SequenceRepository) Next(ctx context.Context, branchID int64, docType, period string) (int64, error) {
	seq := &TicketSequence{
		BranchID: branchID,
		DocType:  docType,
		Period:   period,
		Value:    1,
	}

	err := r.Write(ctx).WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "branch_id"}, {Name: "doc_type"}, {Name: "period"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"value": clause.Expr{SQL: "ticket_sequences.value + 1"},
				}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "value"}}},
		).
		Create(seq).
		Error
	if err != nil {
		return 0, err
	}
	return seq.Value, nil
}

// Period formats the sequence reset bucket for a point in time.
func Period(t time.Time, resetPeriod string) string {
	if resetPeriod == "yearly" {
		return t.Format("2006")
	}
	return t.Format("200601")
}

// FormatTicketNumber renders PREFIX-YYYYMM-NNNNNN.
func FormatTicketNumber(prefix string, t time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%06d", prefix, t.Format("200601"), seq)
}
