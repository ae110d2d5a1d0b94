package printer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/internal/queue"
	"github.com/nmcorpuz/pawnshop-core/pkg/logger"
	"github.com/nmcorpuz/pawnshop-core/pkg/prom"
)

type TicketStore interface {
	GetByNumber(ctx context.Context, ticketNumber string) (*model.PawnTicket, error)
	MarkPrinted(ctx context.Context, ticketNumber string, printedBy int64, at time.Time) error
}

type TransactionReader interface {
	GetByNumber(ctx context.Context, number string) (*model.Transaction, error)
}

// Spooler hands a rendered document to the physical print path.
type Spooler interface {
	Spool(ctx context.Context, ticketNumber string, doc []byte) error
}

type TicketProcessor struct {
	tickets      TicketStore
	transactions TransactionReader
	spooler      Spooler
	idempotency  *IdempotencyService
}

func NewTicketProcessor(tickets TicketStore, transactions TransactionReader, spooler Spooler, idempotency *IdempotencyService) *TicketProcessor {
	return &TicketProcessor{
		tickets:      tickets,
		transactions: transactions,
		spooler:      spooler,
		idempotency:  idempotency,
	}
}

func (p *TicketProcessor) GetType() string {
	return "ticket_print"
}

// Process renders and spools one queued ticket with idempotency guarantees.
func (p *TicketProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	// Step 1: Parse job
	var job model.TicketPrintJob
	if err := json.Unmarshal(queueMessage.Data, &job); err != nil {
		logger.Error("Failed to unmarshal print job", "error", err)
		return err // Return error to trigger DLQ move
	}
	if job.TicketNumber == "" {
		logger.Error("Print job has no ticket number")
		return nil // ACK - malformed job won't improve on retry
	}

	// Step 2: Acquire processing lock and check idempotency
	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, job.TicketNumber)
	if err != nil {
		if errors.Is(err, ErrAlreadyPrinted) {
			// Already printed - ACK to remove from queue
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("Max retries exceeded", "ticket_number", job.TicketNumber)
			return nil // ACK to move to DLQ
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			// Another consumer is printing - NACK to retry later
			return errors.New("lock held by another consumer")
		}
		logger.Error("Failed to acquire lock", "ticket_number", job.TicketNumber, "error", err)
		return err
	}

	// Ensure lock is released on exit (if not already marked success/failure)
	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	logger.Info("Printing ticket",
		"ticket_number", job.TicketNumber,
		"transaction_type", job.TransactionType,
		"retry_count", procCtx.RetryCount,
		"is_retry", procCtx.IsRetry)

	// Step 3: Load the ticket and its transaction, render, spool
	start := time.Now()
	err = p.print(ctx, job)
	if err != nil {
		logger.Error("Failed to print ticket", "ticket_number", job.TicketNumber, "error", err)
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "ticket_number", job.TicketNumber, "error", markErr)
		}
		return err // NACK to retry from queue
	}

	prom.AddTicketPrintDuration(time.Since(start).Seconds(), string(job.TransactionType))

	// Step 4: Record the print run. A failure here is not retried; the
	// physical ticket is already out of the printer.
	if err := p.tickets.MarkPrinted(ctx, job.TicketNumber, job.RequestedBy, time.Now()); err != nil {
		logger.Error("Failed to record print run", "ticket_number", job.TicketNumber, "error", err)
	}

	if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
		logger.Error("Failed to mark success", "ticket_number", job.TicketNumber, "error", markErr)
	}

	return nil // ACK job
}

func (p *TicketProcessor) print(ctx context.Context, job model.TicketPrintJob) error {
	ticket, err := p.tickets.GetByNumber(ctx, job.TicketNumber)
	if err != nil {
		return err
	}
	txn, err := p.transactions.GetByNumber(ctx, job.TransactionNumber)
	if err != nil {
		return err
	}
	doc := RenderTicket(ticket, txn)
	return p.spooler.Spool(ctx, job.TicketNumber, doc)
}
