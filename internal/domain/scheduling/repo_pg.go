package scheduling

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Historical Data Repository ===========

type historyRepoPG struct{ pool *pgxpool.Pool }

// NewHistoryRepoPG reads aggregate appointment history from the
// appointment_history table maintained by the intake pipeline.
func NewHistoryRepoPG(pool *pgxpool.Pool) HistoricalDataProvider {
	return &historyRepoPG{pool: pool}
}

func (r *historyRepoPG) ProviderHistory(ctx context.Context, providerID string, dr DateRange) (HistoricalSnapshot, error) {
	var snap HistoricalSnapshot

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(AVG(duration_minutes), 0),
			COALESCE(AVG(CASE WHEN status = 'no-show' THEN 1.0 ELSE 0.0 END), 0)
		FROM appointment_history
		WHERE provider_id = $1 AND start_time >= $2 AND start_time < $3`,
		providerID, dr.StartDate, dr.EndDate.AddDate(0, 0, 1)).
		Scan(&count, &snap.AvgDurationMinutes, &snap.NoShowRate)
	if err != nil {
		return HistoricalSnapshot{}, fmt.Errorf("query provider history: %w", err)
	}
	if count == 0 {
		return HistoricalSnapshot{}, nil
	}
	snap.Found = true

	rows, err := r.pool.Query(ctx, `
		SELECT EXTRACT(HOUR FROM start_time)::int,
			AVG(CASE WHEN status = 'no-show' THEN 1.0 ELSE 0.0 END)
		FROM appointment_history
		WHERE provider_id = $1 AND start_time >= $2 AND start_time < $3
		GROUP BY 1`,
		providerID, dr.StartDate, dr.EndDate.AddDate(0, 0, 1))
	if err != nil {
		return HistoricalSnapshot{}, fmt.Errorf("query hourly no-show rates: %w", err)
	}
	defer rows.Close()

	snap.HourlyNoShowRates = make(map[int]float64)
	for rows.Next() {
		var hour int
		var rate float64
		if err := rows.Scan(&hour, &rate); err != nil {
			return HistoricalSnapshot{}, fmt.Errorf("scan hourly no-show rate: %w", err)
		}
		snap.HourlyNoShowRates[hour] = rate
	}
	if err := rows.Err(); err != nil {
		return HistoricalSnapshot{}, fmt.Errorf("iterate hourly no-show rates: %w", err)
	}
	return snap, nil
}

// =========== Pricing Repository ===========

type pricingRepoPG struct{ pool *pgxpool.Pool }

// NewPricingRepoPG reads average revenue per appointment type from the
// appointment_pricing table.
func NewPricingRepoPG(pool *pgxpool.Pool) PricingTable {
	return &pricingRepoPG{pool: pool}
}

func (r *pricingRepoPG) AverageRevenue(ctx context.Context) (PriceList, error) {
	rows, err := r.pool.Query(ctx, `SELECT appointment_type, average_revenue FROM appointment_pricing`)
	if err != nil {
		return nil, fmt.Errorf("query appointment pricing: %w", err)
	}
	defer rows.Close()

	prices := make(PriceList)
	for rows.Next() {
		var typ AppointmentType
		var revenue float64
		if err := rows.Scan(&typ, &revenue); err != nil {
			return nil, fmt.Errorf("scan appointment pricing: %w", err)
		}
		prices[typ] = revenue
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointment pricing: %w", err)
	}
	return prices, nil
}
