// README: Fare estimation tests over a mocked rates table.
package pricing

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestEstimateWithStoredRate(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT ride_type, base_fare, per_km, currency`).
		WithArgs("economy").
		WillReturnRows(pgxmock.NewRows([]string{"ride_type", "base_fare", "per_km", "currency"}).
			AddRow("economy", int64(0), int64(15), "INR"))

	svc := NewService(NewStore(mock))
	fare, err := svc.Estimate(context.Background(), 5)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if fare.Amount != 75 || fare.Currency != "INR" {
		t.Fatalf("expected 75 INR for 5 km, got %d %s", fare.Amount, fare.Currency)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestEstimateRoundsFractionalDistance(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT ride_type, base_fare, per_km, currency`).
		WithArgs("economy").
		WillReturnRows(pgxmock.NewRows([]string{"ride_type", "base_fare", "per_km", "currency"}).
			AddRow("economy", int64(20), int64(15), "INR"))

	svc := NewService(NewStore(mock))
	fare, err := svc.Estimate(context.Background(), 3.3)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	// 20 + round(15 * 3.3) = 20 + 50
	if fare.Amount != 70 {
		t.Fatalf("expected 70, got %d", fare.Amount)
	}
}

func TestEstimateFallsBackToDefaultTariff(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT ride_type, base_fare, per_km, currency`).
		WithArgs("economy").
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(NewStore(mock))
	fare, err := svc.Estimate(context.Background(), 10)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if fare.Amount != 150 || fare.Currency != "INR" {
		t.Fatalf("expected default tariff 150 INR, got %d %s", fare.Amount, fare.Currency)
	}
}

func TestEstimateRejectsNegativeDistance(t *testing.T) {
	svc := NewService(nil)
	if _, err := svc.Estimate(context.Background(), -1); err == nil {
		t.Fatal("expected an error for negative distance")
	}
}
