package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WagersPlaced counts accepted wagers
	WagersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookie_wagers_placed_total",
		Help: "Number of wagers accepted",
	})

	// WagersRejected counts rejected wagers by reason
	WagersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookie_wagers_rejected_total",
		Help: "Number of wagers rejected, by reason",
	}, []string{"reason"})

	// RoundsSettled counts rounds settled by game type
	RoundsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookie_rounds_settled_total",
		Help: "Number of rounds settled, by game type",
	}, []string{"game_type"})

	// PayoutAmount accumulates points paid to winners
	PayoutAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookie_payout_amount_total",
		Help: "Total points paid out to winning wagers",
	})

	// CommissionAmount accumulates points credited as commission
	CommissionAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookie_commission_amount_total",
		Help: "Total points credited to upline accounts as commission",
	})

	// CommissionFailures counts commission credits that failed and were skipped
	CommissionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookie_commission_failures_total",
		Help: "Number of commission credits that failed during propagation",
	})
)
