package store_test

import (
	"context"
	"errors"
	"testing"
	"ticketflow/src/store"
	"ticketflow/src/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var errDecrement = errors.New("connection reset")

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherFunc(func(expectedSQL, actualSQL string) error { return nil })))
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 conn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func ticketColumns() []string {
	return []string{"id", "holder_name", "email", "national_id", "quantity", "tier", "status", "used", "total"}
}

func TestGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows(ticketColumns()))

	_, err := store.NewTicketStore(db).Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows(ticketColumns()).
			AddRow(id.String(), "Ana Gomez", "ana@example.com", "30123456", 2, "vip", "paid", false, "77000"))

	ticket, err := store.NewTicketStore(db).Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, ticket.ID)
	assert.Equal(t, types.TICKET_PAID, ticket.Status)
	assert.Equal(t, uint(2), ticket.Quantity)
	assert.Equal(t, "77000", ticket.Total.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaidWinsRace(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows(ticketColumns()).
			AddRow(id.String(), "Ana Gomez", "ana@example.com", "30123456", 2, "vip", "paid", false, "77000"))

	ticket, transitioned, err := store.NewTicketStore(db).MarkPaid(context.Background(), id, "sess_1")
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, types.TICKET_PAID, ticket.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaidLosesRace(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()
	// The guarded UPDATE touches no row when another caller already moved
	// the ticket out of pending.
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows(ticketColumns()).
			AddRow(id.String(), "Ana Gomez", "ana@example.com", "30123456", 2, "vip", "paid", false, "77000"))

	ticket, transitioned, err := store.NewTicketStore(db).MarkPaid(context.Background(), id, "sess_2")
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, types.TICKET_PAID, ticket.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaidAndDecrement(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows(ticketColumns()).
			AddRow(id.String(), "Ana Gomez", "ana@example.com", "30123456", 2, "vip", "paid", false, "77000"))
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows(stockColumns()).AddRow(1, 500, 498, "25000", 10))
	mock.ExpectCommit()

	settlement, err := store.NewTicketStore(db).MarkPaidAndDecrement(context.Background(), id, "sess_1")
	require.NoError(t, err)
	assert.True(t, settlement.Transitioned)
	assert.True(t, settlement.StockApplied)
	assert.Equal(t, types.TICKET_PAID, settlement.Ticket.Status)
	assert.Equal(t, uint(498), settlement.Stock.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaidAndDecrementRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()
	// The paid CAS lands but the decrement errors: the transaction rolls
	// back and the ticket stays pending for the next confirmation attempt.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows(ticketColumns()).
			AddRow(id.String(), "Ana Gomez", "ana@example.com", "30123456", 2, "vip", "paid", false, "77000"))
	mock.ExpectExec("UPDATE").WillReturnError(errDecrement)
	mock.ExpectRollback()

	_, err := store.NewTicketStore(db).MarkPaidAndDecrement(context.Background(), id, "sess_1")
	assert.ErrorIs(t, err, errDecrement)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaidAndDecrementLosesRace(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()
	// Losing the CAS skips the decrement entirely.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows(ticketColumns()).
			AddRow(id.String(), "Ana Gomez", "ana@example.com", "30123456", 2, "vip", "paid", false, "77000"))
	mock.ExpectCommit()

	settlement, err := store.NewTicketStore(db).MarkPaidAndDecrement(context.Background(), id, "sess_2")
	require.NoError(t, err)
	assert.False(t, settlement.Transitioned)
	assert.Nil(t, settlement.Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkUsedLosesRace(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows(ticketColumns()).
			AddRow(id.String(), "Ana Gomez", "ana@example.com", "30123456", 2, "vip", "used", true, "77000"))

	ticket, admitted, err := store.NewTicketStore(db).MarkUsed(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, admitted)
	assert.True(t, ticket.Used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUnknownTier(t *testing.T) {
	db, _ := newMockDB(t)
	_, err := store.NewTicketStore(db).Create(context.Background(), &types.CreatePurchaseRequestBody{
		Name:       "Ana Gomez",
		Email:      "ana@example.com",
		Phone:      "1155550000",
		NationalID: "30123456",
		Quantity:   1,
		Tier:       "backstage",
	}, 10)
	assert.ErrorIs(t, err, store.ErrUnknownTier)
}

func TestFindLatestByIdentityRequiresCriteria(t *testing.T) {
	db, _ := newMockDB(t)
	_, err := store.NewTicketStore(db).FindLatestByIdentity(context.Background(), "", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCountByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := store.NewTicketStore(db).CountByStatus(context.Background(), types.TICKET_PENDING)
	require.NoError(t, err)
	assert.EqualValues(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTotalSales(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"count", "total_quantity", "total_revenue"}).
			AddRow(3, 5, "192500"))

	summary, err := store.NewTicketStore(db).TotalSales(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, summary.Count)
	assert.EqualValues(t, 5, summary.TotalQuantity)
	assert.Equal(t, "192500", summary.TotalRevenue.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func stockColumns() []string {
	return []string{"id", "total", "remaining", "unit_price", "fee_rate_percent"}
}

func TestStockAdjustApplied(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows(stockColumns()).AddRow(1, 500, 497, "25000", 10))

	stk, applied, err := store.NewStockStore(db).Adjust(context.Background(), -3)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, uint(497), stk.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockAdjustClamped(t *testing.T) {
	db, mock := newMockDB(t)
	// Guarded update misses, the clamp write floors remaining at zero.
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows(stockColumns()).AddRow(1, 500, 0, "25000", 10))

	stk, applied, err := store.NewStockStore(db).Adjust(context.Background(), -3)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, uint(0), stk.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockAdjustClampedAtTotal(t *testing.T) {
	db, mock := newMockDB(t)
	// Guarded update misses, the clamp write caps remaining at total.
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows(stockColumns()).AddRow(1, 500, 500, "25000", 10))

	stk, applied, err := store.NewStockStore(db).Adjust(context.Background(), 50)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, uint(500), stk.Remaining)
	assert.Equal(t, stk.Total, stk.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockSetRejectsBounds(t *testing.T) {
	db, _ := newMockDB(t)
	_, err := store.NewStockStore(db).Set(context.Background(), 100, 150)
	assert.ErrorIs(t, err, store.ErrStockBounds)
}

func TestStockSet(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows(stockColumns()).AddRow(1, 600, 600, "25000", 10))

	stk, err := store.NewStockStore(db).Set(context.Background(), 600, 600)
	require.NoError(t, err)
	assert.Equal(t, uint(600), stk.Total)
	assert.Equal(t, uint(600), stk.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}
