package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"trip-expenses/internal/models"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DBTestSuite provides a test suite for database operations
type DBTestSuite struct {
	suite.Suite
	db    *DB
	ctx   context.Context
	admin *models.User
	user  *models.User
	other *models.User
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()

	suite.admin, err = db.CreateUser(suite.ctx, "Admin", "admin@rbn.local", models.RoleAdmin, "hash")
	require.NoError(suite.T(), err)
	suite.user, err = db.CreateUser(suite.ctx, "Bia", "bia@rbn.local", models.RoleUser, "hash")
	require.NoError(suite.T(), err)
	suite.other, err = db.CreateUser(suite.ctx, "Caio", "caio@rbn.local", models.RoleUser, "hash")
	require.NoError(suite.T(), err)
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) newTrip(title string) *models.Trip {
	trip := &models.Trip{Title: title, CreatedBy: suite.admin.ID}
	require.NoError(suite.T(), suite.db.CreateTrip(suite.ctx, trip))
	return trip
}

func (suite *DBTestSuite) newExpense(tripID, userID int64, value string) *models.Expense {
	e := &models.Expense{TripID: tripID, UserID: userID, Amount: amount(value), Description: "item"}
	require.NoError(suite.T(), suite.db.CreateExpense(suite.ctx, e))
	return e
}

func (suite *DBTestSuite) TestCreateUserNormalizesEmail() {
	u, err := suite.db.CreateUser(suite.ctx, " Dora ", "  Dora@RBN.Local ", models.RoleUser, "hash")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "dora@rbn.local", u.Email)
	assert.Equal(suite.T(), "Dora", u.Name)
	assert.Equal(suite.T(), models.RoleUser, u.Role)

	found, err := suite.db.GetUserByEmail(suite.ctx, "DORA@rbn.local")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), u.ID, found.ID)
}

func (suite *DBTestSuite) TestCreateUserDuplicateEmail() {
	_, err := suite.db.CreateUser(suite.ctx, "Outra Bia", "BIA@rbn.local", models.RoleUser, "hash")
	assert.ErrorIs(suite.T(), err, ErrDuplicateEmail)

	count, err := suite.db.UserCount(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, count, "duplicate must not create a second row")
}

func (suite *DBTestSuite) TestUniqueViolationFromSQLite() {
	_, err := suite.db.conn.Exec(
		"INSERT INTO users (name, email, role, password_hash) VALUES ('x', 'bia@rbn.local', 'user', 'h')")
	require.Error(suite.T(), err)
	assert.True(suite.T(), isUniqueViolation(err))
}

func (suite *DBTestSuite) TestGetUserNotFound() {
	_, err := suite.db.GetUserByEmail(suite.ctx, "nobody@rbn.local")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
	_, err = suite.db.GetUserByID(suite.ctx, 999)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestEnsureAdminIsIdempotent() {
	calls := 0
	hash := func() (string, error) {
		calls++
		return "hash", nil
	}

	created, err := suite.db.EnsureAdmin(suite.ctx, "Root", "root@rbn.local", hash)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), created)

	created, err = suite.db.EnsureAdmin(suite.ctx, "Root", "root@rbn.local", hash)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), created)
	assert.Equal(suite.T(), 1, calls, "hash should only run when inserting")

	u, err := suite.db.GetUserByEmail(suite.ctx, "root@rbn.local")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RoleAdmin, u.Role)
}

func (suite *DBTestSuite) TestCreateTripWithoutDates() {
	trip := suite.newTrip("Campinas")
	assert.NotZero(suite.T(), trip.ID)

	got, err := suite.db.GetTrip(suite.ctx, trip.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Campinas", got.Title)
	assert.Nil(suite.T(), got.StartDate)
	assert.Nil(suite.T(), got.EndDate)
	assert.Equal(suite.T(), suite.admin.ID, got.CreatedBy)
}

func (suite *DBTestSuite) TestCreateTripKeepsDatesAsGiven() {
	start := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	trip := &models.Trip{Title: "Recife", StartDate: &start, EndDate: &end, CreatedBy: suite.admin.ID}
	require.NoError(suite.T(), suite.db.CreateTrip(suite.ctx, trip))

	got, err := suite.db.GetTrip(suite.ctx, trip.ID)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), got.StartDate)
	require.NotNil(suite.T(), got.EndDate)
	assert.Equal(suite.T(), "2026-05-10", got.StartDate.Format("2006-01-02"))
	assert.Equal(suite.T(), "2026-05-02", got.EndDate.Format("2006-01-02"), "end before start is allowed")
}

func (suite *DBTestSuite) TestCreateTripRequiresTitle() {
	err := suite.db.CreateTrip(suite.ctx, &models.Trip{Title: "   ", CreatedBy: suite.admin.ID})
	assert.Error(suite.T(), err)
}

func (suite *DBTestSuite) TestGetTripNotFound() {
	_, err := suite.db.GetTrip(suite.ctx, 12345)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestCreateExpenseRejectsNonPositive() {
	trip := suite.newTrip("Campinas")
	for _, v := range []string{"0", "-10", "0.001", "0.004", "10000000000", "99999999999"} {
		err := suite.db.CreateExpense(suite.ctx, &models.Expense{TripID: trip.ID, UserID: suite.user.ID, Amount: amount(v)})
		assert.ErrorIs(suite.T(), err, ErrInvalidAmount, v)
	}

	expenses, err := suite.db.ListTripExpenses(suite.ctx, trip.ID, 0)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), expenses)
}

func (suite *DBTestSuite) TestCreateExpenseStartsPending() {
	trip := suite.newTrip("Campinas")
	e := &models.Expense{
		TripID: trip.ID, UserID: suite.user.ID, Amount: amount("1234.56"),
		Description: " Hotel ", ReceiptURL: "https://cdn/x.pdf", Status: models.StatusApproved,
	}
	require.NoError(suite.T(), suite.db.CreateExpense(suite.ctx, e))

	got, err := suite.db.GetExpense(suite.ctx, e.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusPending, got.Status)
	assert.Equal(suite.T(), "Hotel", got.Description)
	assert.Equal(suite.T(), "1234.56", got.Amount.StringFixed(2))
	assert.Equal(suite.T(), "https://cdn/x.pdf", got.ReceiptURL)
	assert.Equal(suite.T(), "Bia", got.UserName)
}

func (suite *DBTestSuite) TestCreateExpenseRoundsToCents() {
	trip := suite.newTrip("Campinas")
	e := &models.Expense{TripID: trip.ID, UserID: suite.user.ID, Amount: amount("0.005")}
	require.NoError(suite.T(), suite.db.CreateExpense(suite.ctx, e))
	assert.Equal(suite.T(), "0.01", e.Amount.String())

	top := &models.Expense{TripID: trip.ID, UserID: suite.user.ID, Amount: amount("9999999999.99")}
	require.NoError(suite.T(), suite.db.CreateExpense(suite.ctx, top))

	got, err := suite.db.GetExpense(suite.ctx, top.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "9999999999.99", got.Amount.StringFixed(2))
}

func (suite *DBTestSuite) TestCreateExpenseUnknownTrip() {
	err := suite.db.CreateExpense(suite.ctx, &models.Expense{TripID: 999, UserID: suite.user.ID, Amount: amount("10")})
	assert.Error(suite.T(), err, "foreign key should reject unknown trip")
}

func (suite *DBTestSuite) TestTotalsExcludeRejectedAndRespectScope() {
	trip := suite.newTrip("Campinas")
	suite.newExpense(trip.ID, suite.user.ID, "50")
	rejected := suite.newExpense(trip.ID, suite.user.ID, "30")
	suite.newExpense(trip.ID, suite.other.ID, "20.25")
	require.NoError(suite.T(), suite.db.UpdateExpenseStatus(suite.ctx, rejected.ID, models.StatusRejected))

	total, err := suite.db.TripTotal(suite.ctx, trip.ID, 0)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "70.25", total.StringFixed(2))

	total, err = suite.db.TripTotal(suite.ctx, trip.ID, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "50.00", total.StringFixed(2))

	mine, err := suite.db.ListTripExpenses(suite.ctx, trip.ID, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), mine, 2, "rejected expenses stay listed")

	totals, err := suite.db.UserTotals(suite.ctx, trip.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), totals, 2)
	assert.Equal(suite.T(), "Bia", totals[0].UserName)
	assert.Equal(suite.T(), "50.00", totals[0].Total.StringFixed(2))
	assert.Equal(suite.T(), "Caio", totals[1].UserName)
	assert.Equal(suite.T(), "20.25", totals[1].Total.StringFixed(2))
}

func (suite *DBTestSuite) TestListTripSummaries() {
	campinas := suite.newTrip("Campinas")
	suite.newTrip("Santos")
	suite.newExpense(campinas.ID, suite.user.ID, "50")
	suite.newExpense(campinas.ID, suite.other.ID, "25")

	all, err := suite.db.ListTripSummaries(suite.ctx, 0)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), all, 2)

	byTitle := map[string]string{}
	for _, s := range all {
		byTitle[s.Title] = s.Total.StringFixed(2)
		assert.Equal(suite.T(), "Admin", s.CreatorName)
	}
	assert.Equal(suite.T(), "75.00", byTitle["Campinas"])
	assert.Equal(suite.T(), "0.00", byTitle["Santos"])

	mine, err := suite.db.ListTripSummaries(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), mine, 2, "every trip stays visible for submission")
	for _, s := range mine {
		if s.Title == "Campinas" {
			assert.Equal(suite.T(), "50.00", s.Total.StringFixed(2))
			assert.Equal(suite.T(), 1, s.Count)
		}
	}
}

func (suite *DBTestSuite) TestCountsExcludeRejected() {
	trip := suite.newTrip("Campinas")
	suite.newExpense(trip.ID, suite.user.ID, "50")
	rejected := suite.newExpense(trip.ID, suite.user.ID, "30")
	suite.newExpense(trip.ID, suite.other.ID, "20")
	require.NoError(suite.T(), suite.db.UpdateExpenseStatus(suite.ctx, rejected.ID, models.StatusRejected))

	all, err := suite.db.ListTripSummaries(suite.ctx, 0)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), all, 1)
	assert.Equal(suite.T(), 2, all[0].Count)
	assert.Equal(suite.T(), "70.00", all[0].Total.StringFixed(2))

	totals, err := suite.db.UserTotals(suite.ctx, trip.ID)
	require.NoError(suite.T(), err)
	sum := 0
	for _, ut := range totals {
		sum += ut.Count
	}
	assert.Equal(suite.T(), all[0].Count, sum, "trip and per-user counts agree")

	mine, err := suite.db.ListTripSummaries(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, mine[0].Count)
}

func (suite *DBTestSuite) TestUpdateExpenseStatus() {
	trip := suite.newTrip("Campinas")
	e := suite.newExpense(trip.ID, suite.user.ID, "10")

	require.NoError(suite.T(), suite.db.UpdateExpenseStatus(suite.ctx, e.ID, models.StatusApproved))
	got, err := suite.db.GetExpense(suite.ctx, e.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusApproved, got.Status)

	assert.ErrorIs(suite.T(), suite.db.UpdateExpenseStatus(suite.ctx, 999, models.StatusApproved), ErrNotFound)
	assert.Error(suite.T(), suite.db.UpdateExpenseStatus(suite.ctx, e.ID, "pago"))
}

func (suite *DBTestSuite) TestListTrips() {
	suite.newTrip("Campinas")
	suite.newTrip("Santos")
	trips, err := suite.db.ListTrips(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), trips, 2)
}

func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		in      string
		driver  string
		dsn     string
		dialect dialect
	}{
		{"postgres://u:p@localhost/db", "pgx", "postgres://u:p@localhost/db", dialectPostgres},
		{"postgresql://localhost/db", "pgx", "postgresql://localhost/db", dialectPostgres},
		{"sqlite:data.db", "sqlite", "data.db", dialectSQLite},
		{"sqlite://data.db", "sqlite", "data.db", dialectSQLite},
		{":memory:", "sqlite", ":memory:", dialectSQLite},
		{"/var/lib/app.db", "sqlite", "/var/lib/app.db", dialectSQLite},
	}
	for _, tt := range tests {
		driver, dsn, d := parseURL(tt.in)
		assert.Equal(t, tt.driver, driver, tt.in)
		assert.Equal(t, tt.dsn, dsn, tt.in)
		assert.Equal(t, tt.dialect, d, tt.in)
	}
}

func TestNewDBRequiresURL(t *testing.T) {
	_, err := NewDB("  ")
	assert.Error(t, err)
}
