package service

import (
	"time"

	"bookie/config"
)

// testConfig returns a config with the built-in game and commission tables,
// without touching the process environment
func testConfig() *config.Config {
	return &config.Config{
		StartingBalance: 1000,
		WagerRateLimit:  10,
		WagerRateWindow: 60 * time.Second,
		SettleInterval:  15 * time.Second,
		Games: map[string]config.GameRules{
			"seven_up_down": {
				MinWager: 10,
				MaxWager: 10000,
				Multipliers: map[string]float64{
					"up":   2,
					"down": 2,
					"7":    4,
				},
				RoundDuration: 15 * time.Minute,
			},
			"coin_flip": {
				MinWager: 10,
				MaxWager: 5000,
				Multipliers: map[string]float64{
					"heads": 1.9,
					"tails": 1.9,
				},
				RoundDuration: 5 * time.Minute,
			},
		},
		CommissionRates: map[string]float64{
			"associate_master": 0.03,
			"master":           0.015,
			"senior_master":    0.01,
			"super_master":     0.005,
		},
		MaxCommissionDepth: 5,
		Environment:        "test",
	}
}
