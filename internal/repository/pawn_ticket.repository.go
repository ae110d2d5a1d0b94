package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/pkg/pg"
)

var ErrTicketNotFound = errors.New("pawn ticket not found")

type PawnTicketRepository struct {
	*pg.DB
}

func NewPawnTicketRepository(db *pg.DB) *PawnTicketRepository {
	return &PawnTicketRepository{
		db,
	}
}

func (r *PawnTicketRepository) Create(ctx context.Context, ticket *model.PawnTicket) (*model.PawnTicket, error) {
	if err := r.Write(ctx).WithContext(ctx).Create(ticket).Error; err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *PawnTicketRepository) GetByNumber(ctx context.Context, ticketNumber string) (*model.PawnTicket, error) {
	var ticket model.PawnTicket
	err := r.Read(ctx).WithContext(ctx).
		Where("ticket_number = ?", ticketNumber).
		First(&ticket).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// MarkPrinted records a print run. Reprints are allowed; the count keeps the
// audit trail.
func (r *PawnTicketRepository) MarkPrinted(ctx context.Context, ticketNumber string, printedBy int64, at time.Time) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&model.PawnTicket{}).
		Where("ticket_number = ?", ticketNumber).
		Updates(map[string]interface{}{
			"printed_at":  at,
			"printed_by":  printedBy,
			"print_count": gorm.Expr("print_count + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTicketNotFound
	}
	return nil
}
