package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/internal/repository"
	"github.com/nmcorpuz/pawnshop-core/pkg/pg"
	"github.com/nmcorpuz/pawnshop-core/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.Pawner{},
		&model.Transaction{},
		&model.PawnTicket{},
		&model.PawnItem{},
		&model.Appraisal{},
		&model.Branch{},
		&model.ItemCategory{},
		&model.PenaltyConfig{},
		&model.ServiceChargeConfig{},
		&model.ServiceChargeBracket{},
		&model.LoanTerms{},
		&repository.TicketSequence{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("test", "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

// SeedRateConfig installs the branch, category, penalty, service charge and
// loan term rows every lifecycle operation resolves against.
func SeedRateConfig(t *testing.T, db *pg.DB) {
	ctx := context.Background()

	require.NoError(t, db.Write(ctx).Create(&model.Branch{ID: 1, Code: "MN", Name: "Main Branch"}).Error)
	require.NoError(t, db.Write(ctx).Create(&model.ItemCategory{
		ID:           1,
		Name:         "Jewelry",
		InterestRate: decimal.NewFromFloat(0.06),
		Active:       true,
	}).Error)
	require.NoError(t, db.Write(ctx).Create(&model.PenaltyConfig{
		ID:     1,
		Rate:   decimal.NewFromFloat(0.02),
		Active: true,
	}).Error)
	require.NoError(t, db.Write(ctx).Create(&model.ServiceChargeConfig{
		ID:          1,
		Method:      model.ServiceChargeMethodFixed,
		FixedAmount: decimal.NewFromInt(50),
		Active:      true,
	}).Error)
	require.NoError(t, db.Write(ctx).Create(&model.LoanTerms{
		ID:           1,
		TermMonths:   1,
		GraceDays:    3,
		ExpiryDays:   90,
		MaxLoanRatio: decimal.NewFromFloat(0.8),
		TicketPrefix: "PT",
		ResetPeriod:  "monthly",
		Active:       true,
	}).Error)
}

func CreateTestPawner(t *testing.T, db *pg.DB, id int64) *model.Pawner {
	ctx := context.Background()
	p := &model.Pawner{
		ID:        id,
		FirstName: "Maria",
		LastName:  "Santos",
		Mobile:    "+639171234567",
		BranchID:  1,
	}
	err := db.Write(ctx).Create(p).Error
	require.NoError(t, err)
	return p
}

func CreateTestAppraisal(t *testing.T, db *pg.DB, pawnerID int64, estimatedValue float64) *model.Appraisal {
	ctx := context.Background()
	a := &model.Appraisal{
		PawnerID:       pawnerID,
		BranchID:       1,
		CategoryID:     1,
		Description:    "18k gold necklace",
		EstimatedValue: decimal.NewFromFloat(estimatedValue),
		Status:         model.AppraisalStatusCompleted,
		AppraisedBy:    1,
	}
	err := db.Write(ctx).Create(a).Error
	require.NoError(t, err)
	return a
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
