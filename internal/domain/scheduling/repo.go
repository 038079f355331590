package scheduling

import "context"

// HistoricalDataProvider supplies aggregate no-show and duration history for
// a provider. Implemented by the surrounding system; the engine only
// consumes the snapshot.
type HistoricalDataProvider interface {
	ProviderHistory(ctx context.Context, providerID string, dr DateRange) (HistoricalSnapshot, error)
}

// PricingTable supplies the average revenue per appointment type.
type PricingTable interface {
	AverageRevenue(ctx context.Context) (PriceList, error)
}

// StaticPricingTable is a fixed in-memory PricingTable, used as the degraded
// fallback and in tests.
type StaticPricingTable PriceList

func (t StaticPricingTable) AverageRevenue(_ context.Context) (PriceList, error) {
	out := make(PriceList, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out, nil
}

// StaticHistory is a fixed in-memory HistoricalDataProvider for tests and
// sandbox environments.
type StaticHistory struct {
	Snapshot HistoricalSnapshot
}

func (h StaticHistory) ProviderHistory(_ context.Context, _ string, _ DateRange) (HistoricalSnapshot, error) {
	return h.Snapshot, nil
}
