package printer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nmcorpuz/pawnshop-core/pkg/logger"
	"github.com/nmcorpuz/pawnshop-core/pkg/redis"
)

var (
	ErrAlreadyPrinted     = errors.New("ticket already printed")
	ErrLockAcquireFailed  = errors.New("failed to acquire processing lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL time.Duration

	PrintedTTL time.Duration

	MaxRetries int

	RetryKeyPrefix string

	LockKeyPrefix string

	PrintedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:          30 * time.Second,
		PrintedTTL:       24 * time.Hour,
		MaxRetries:       3,
		RetryKeyPrefix:   "print:retry:",
		LockKeyPrefix:    "print:lock:",
		PrintedKeyPrefix: "print:done:",
	}
}

// IdempotencyService keeps a reprint of the same queued job from producing
// duplicate physical tickets: a short lock serializes concurrent consumers
// and a 24-hour marker absorbs redeliveries.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

type ProcessingContext struct {
	TicketNumber string
	RetryCount   int
	IsRetry      bool
	lockAcquired bool
	service      *IdempotencyService
}

func (s *IdempotencyService) AcquireProcessingLock(ctx context.Context, ticketNumber string) (*ProcessingContext, error) {
	// Step 1: Check if already printed (long-term marker)
	printedKey := s.config.PrintedKeyPrefix + ticketNumber
	exists, err := s.redis.Exist(printedKey)
	if err != nil {
		logger.Warn("Failed to check printed status", "ticket_number", ticketNumber, "error", err)
		// Continue even if check fails - better to risk a duplicate print than block
	} else if exists > 0 {
		logger.Info("Ticket already printed, skipping", "ticket_number", ticketNumber)
		return nil, ErrAlreadyPrinted
	}

	// Step 2: Get current retry count
	retryKey := s.config.RetryKeyPrefix + ticketNumber
	retryCountBytes, err := s.redis.Get(retryKey)
	retryCount := 0
	if err == nil && len(retryCountBytes) > 0 {
		fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	}

	// Step 3: Check if max retries exceeded
	if retryCount >= s.config.MaxRetries {
		logger.Error("Max retries exceeded for ticket", "ticket_number", ticketNumber, "retry_count", retryCount)
		return nil, fmt.Errorf("%w: ticket_number=%s, retries=%d", ErrMaxRetriesExceeded, ticketNumber, retryCount)
	}

	// Step 4: Acquire short-term processing lock (prevents concurrent prints)
	lockKey := s.config.LockKeyPrefix + ticketNumber
	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := s.redis.SetNX(lockKey, lockValue, s.config.LockTTL)
	if err != nil {
		logger.Error("Failed to acquire lock", "ticket_number", ticketNumber, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}

	if !acquired {
		logger.Info("Lock already held by another consumer", "ticket_number", ticketNumber)
		return nil, ErrLockAcquireFailed
	}

	return &ProcessingContext{
		TicketNumber: ticketNumber,
		RetryCount:   retryCount,
		IsRetry:      retryCount > 0,
		lockAcquired: true,
		service:      s,
	}, nil
}

func (s *IdempotencyService) MarkSuccess(ctx context.Context, pc *ProcessingContext) error {
	ticketNumber := pc.TicketNumber

	// Step 1: Set long-term printed marker (24 hours)
	printedKey := s.config.PrintedKeyPrefix + ticketNumber
	err := s.redis.Set(printedKey, []byte("1"), s.config.PrintedTTL)
	if err != nil {
		logger.Error("Failed to mark ticket as printed", "ticket_number", ticketNumber, "error", err)
		return fmt.Errorf("failed to mark as printed: %w", err)
	}

	// Step 2: Clean up lock and retry counter
	s.cleanup(ctx, pc)

	logger.Info("Ticket marked as printed",
		"ticket_number", ticketNumber,
		"retry_count", pc.RetryCount)

	return nil
}

func (s *IdempotencyService) MarkFailure(ctx context.Context, pc *ProcessingContext, reason error) error {
	ticketNumber := pc.TicketNumber

	// Step 1: Increment retry counter
	retryKey := s.config.RetryKeyPrefix + ticketNumber
	newRetryCount := pc.RetryCount + 1
	retryValue := []byte(fmt.Sprintf("%d", newRetryCount))

	// Keep retry counter for longer to track across retries
	err := s.redis.Set(retryKey, retryValue, s.config.PrintedTTL)
	if err != nil {
		logger.Error("Failed to increment retry counter", "ticket_number", ticketNumber, "error", err)
	}

	// Step 2: Remove lock to allow retry
	lockKey := s.config.LockKeyPrefix + ticketNumber
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to remove lock", "ticket_number", ticketNumber, "error", err)
	}

	logger.Warn("Ticket print failed, will retry",
		"ticket_number", ticketNumber,
		"retry_count", newRetryCount,
		"max_retries", s.config.MaxRetries,
		"reason", reason)

	return nil
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, pc *ProcessingContext) error {
	if pc == nil || !pc.lockAcquired {
		return nil
	}

	lockKey := s.config.LockKeyPrefix + pc.TicketNumber
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to release lock", "ticket_number", pc.TicketNumber, "error", err)
		return err
	}

	pc.lockAcquired = false
	logger.Debug("Processing lock released", "ticket_number", pc.TicketNumber)
	return nil
}

func (s *IdempotencyService) cleanup(ctx context.Context, pc *ProcessingContext) {
	ticketNumber := pc.TicketNumber

	// Remove lock
	lockKey := s.config.LockKeyPrefix + ticketNumber
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to cleanup lock", "ticket_number", ticketNumber, "error", err)
	}

	// Remove retry counter (no longer needed)
	retryKey := s.config.RetryKeyPrefix + ticketNumber
	if err := s.redis.Del(retryKey); err != nil {
		logger.Warn("Failed to cleanup retry counter", "ticket_number", ticketNumber, "error", err)
	}

	pc.lockAcquired = false
}

func (s *IdempotencyService) GetRetryCount(ctx context.Context, ticketNumber string) (int, error) {
	retryKey := s.config.RetryKeyPrefix + ticketNumber
	retryCountBytes, err := s.redis.Get(retryKey)
	if err != nil {
		if err == redis.NilError {
			return 0, nil
		}
		return 0, err
	}

	retryCount := 0
	fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	return retryCount, nil
}

func (s *IdempotencyService) IsPrinted(ctx context.Context, ticketNumber string) (bool, error) {
	printedKey := s.config.PrintedKeyPrefix + ticketNumber
	exists, err := s.redis.Exist(printedKey)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
