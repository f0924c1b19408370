package bookings

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"eventbooking/internal/shared/errs"
)

func newMockRepository(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return NewRepository(gdb), mock
}

func TestInsertBooking(t *testing.T) {
	insert := regexp.QuoteMeta(`INSERT INTO "bookings"`)

	t.Run("stored", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 1))

		booking := &Booking{
			UserID:        uuid.New(),
			EventID:       uuid.New(),
			TicketsBooked: 2,
			TotalAmount:   40,
			Status:        StatusConfirmed,
			PaymentStatus: PaymentUnpaid,
			BookingRef:    "EVT-20260101-ABCDEF",
		}
		id, err := repo.InsertBooking(context.Background(), booking)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)
		assert.Equal(t, booking.ID, id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		driverErr := errors.New("duplicate key value violates unique constraint")
		mock.ExpectExec(insert).WillReturnError(driverErr)

		id, err := repo.InsertBooking(context.Background(), &Booking{Status: StatusConfirmed, PaymentStatus: PaymentUnpaid})
		assert.Equal(t, uuid.Nil, id)
		assert.ErrorIs(t, err, errs.ErrPersistence)
		assert.ErrorIs(t, err, driverErr)
	})
}

func TestUpdateBookingStatusIsConditional(t *testing.T) {
	id := uuid.New()
	update := regexp.QuoteMeta(`UPDATE "bookings" SET "cancelled_at"=$1,"payment_status"=$2,"status"=$3,"updated_at"=$4 WHERE id = $5 AND status = $6`)
	count := regexp.QuoteMeta(`SELECT count(*) FROM "bookings" WHERE id = $1`)

	t.Run("updated", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(update).
			WithArgs(sqlmock.AnyArg(), PaymentRefunded, StatusCancelled, sqlmock.AnyArg(), id, StatusConfirmed).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateBookingStatus(context.Background(), id, StatusConfirmed, StatusCancelled, PaymentRefunded)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("status moved on", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(count).WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := repo.UpdateBookingStatus(context.Background(), id, StatusConfirmed, StatusCancelled, PaymentRefunded)
		assert.ErrorIs(t, err, ErrStatusChanged)
		assert.ErrorIs(t, err, errs.ErrInvalidState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(count).WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		err := repo.UpdateBookingStatus(context.Background(), id, StatusConfirmed, StatusCancelled, PaymentRefunded)
		assert.ErrorIs(t, err, errs.ErrBookingNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdatePaymentStatusIsConditional(t *testing.T) {
	id := uuid.New()
	update := regexp.QuoteMeta(`UPDATE "bookings" SET "payment_status"=$1,"updated_at"=$2 WHERE id = $3 AND status = $4 AND payment_status = $5`)
	count := regexp.QuoteMeta(`SELECT count(*) FROM "bookings" WHERE id = $1`)

	t.Run("paid", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(update).
			WithArgs(PaymentPaid, sqlmock.AnyArg(), id, StatusConfirmed, PaymentUnpaid).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdatePaymentStatus(context.Background(), id, PaymentUnpaid, PaymentPaid))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already paid", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(count).WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := repo.UpdatePaymentStatus(context.Background(), id, PaymentUnpaid, PaymentPaid)
		assert.ErrorIs(t, err, ErrStatusChanged)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(update).WillReturnError(errors.New("connection reset"))

		err := repo.UpdatePaymentStatus(context.Background(), id, PaymentUnpaid, PaymentPaid)
		assert.ErrorIs(t, err, errs.ErrPersistence)
	})
}

func TestInsertBookingRejectsUnknownStatus(t *testing.T) {
	repo, mock := newMockRepository(t)

	_, err := repo.InsertBooking(context.Background(), &Booking{Status: "held", PaymentStatus: PaymentUnpaid})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = NewMemoryRepository().InsertBooking(context.Background(), &Booking{Status: StatusConfirmed, PaymentStatus: "owed"})
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadBooking(t *testing.T) {
	id := uuid.New()
	query := regexp.QuoteMeta(`SELECT * FROM "bookings" WHERE id = $1`)

	t.Run("missing", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.LoadBooking(context.Background(), id)
		assert.ErrorIs(t, err, errs.ErrBookingNotFound)
	})

	t.Run("found", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		rows := sqlmock.NewRows([]string{"id", "user_id", "event_id", "tickets_booked", "total_amount", "status", "payment_status", "booking_ref"}).
			AddRow(id.String(), uuid.NewString(), uuid.NewString(), 3, 60.0, "confirmed", "unpaid", "EVT-20260101-QWERTY")
		mock.ExpectQuery(query).WillReturnRows(rows)

		booking, err := repo.LoadBooking(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, booking.ID)
		assert.Equal(t, StatusConfirmed, booking.Status)
		assert.Equal(t, 3, booking.TicketsBooked)
	})
}
