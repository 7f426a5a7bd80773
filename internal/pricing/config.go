package pricing

import (
	"github.com/crumbhouse/bakery-backend/pkg/config"
)

// EngineFromConfig builds the engine from the BAKERY_ pricing settings.
func EngineFromConfig(cfg config.PricingConfig) (*Engine, error) {
	bands := make([]Band, 0, len(cfg.DeliveryBands))
	for _, b := range cfg.DeliveryBands {
		bands = append(bands, Band{
			Label:     b.Label,
			MinMeters: b.MinMeters,
			MaxMeters: b.MaxMeters,
			BaseFee:   b.BaseFee,
			PerKmFee:  b.PerKmFee,
		})
	}
	schedule, err := NewSchedule(bands, cfg.FreeDeliveryThreshold)
	if err != nil {
		return nil, err
	}
	return NewEngine(schedule, cfg.TaxRatePercent)
}
