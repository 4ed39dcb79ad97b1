package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

var (
	Median = prom.NewGauge(
		prom.GaugeOpts{
			Name: "medianmon_median",
			Help: "Lower median of the values currently in the window",
		},
	)
	LiveValues = prom.NewGauge(
		prom.GaugeOpts{
			Name: "medianmon_live_values",
			Help: "Number of values currently in the window",
		},
	)
	StaleEntries = prom.NewGauge(
		prom.GaugeOpts{
			Name: "medianmon_stale_entries",
			Help: "Number of removed values not yet purged from the heaps",
		},
	)
	AddCount = prom.NewCounter(
		prom.CounterOpts{
			Name: "medianmon_add_count",
			Help: "Total number of values added",
		},
	)
	RemoveCount = prom.NewCounterVec(
		prom.CounterOpts{
			Name: "medianmon_remove_count",
			Help: "Total number of remove requests by outcome",
		},
		[]string{"result"},
	)
	ExpiredCount = prom.NewCounter(
		prom.CounterOpts{
			Name: "medianmon_expired_count",
			Help: "Total number of values dropped because they left the window",
		},
	)
	DecodeFailureCount = prom.NewCounter(
		prom.CounterOpts{
			Name: "medianmon_decode_failure_count",
			Help: "Total number of records that could not be decoded",
		},
	)
)

func Init() {
	prom.MustRegister(Median)
	prom.MustRegister(LiveValues)
	prom.MustRegister(StaleEntries)
	prom.MustRegister(AddCount)
	prom.MustRegister(RemoveCount)
	prom.MustRegister(ExpiredCount)
	prom.MustRegister(DecodeFailureCount)
}
