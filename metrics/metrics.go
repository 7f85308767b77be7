package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ProcessingMetrics struct {
	acceptedCount      prometheus.Counter
	rejectedCount      *prometheus.CounterVec
	rewardPaidCount    prometheus.Counter
	epochGauge         prometheus.Gauge
	heightGauge        prometheus.Gauge
	dailyBudgetGauge   prometheus.Gauge
	pendingVerifyGauge prometheus.Gauge
}

func NewProcessingMetrics(namespace string) *ProcessingMetrics {
	m := ProcessingMetrics{
		acceptedCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_submissions_accepted_count", namespace),
			Help: "The total number of accepted mining submissions",
		}),
		rejectedCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_submissions_rejected_count", namespace),
			Help: "The total number of rejected mining submissions",
		}, []string{"class"}),
		rewardPaidCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_reward_paid_total", namespace),
			Help: "The total reward paid out, in base units",
		}),
		epochGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_current_epoch", namespace),
			Help: "The current epoch index",
		}),
		heightGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_block_height", namespace),
			Help: "The latest finalized block height",
		}),
		dailyBudgetGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_daily_budget", namespace),
			Help: "Today's computed emission budget, in base units",
		}),
		pendingVerifyGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_pending_verifications", namespace),
			Help: "The number of records awaiting verification",
		}),
	}
	return &m
}

func (m *ProcessingMetrics) IncAccepted() {
	m.acceptedCount.Inc()
}

func (m *ProcessingMetrics) IncRejected(class string) {
	m.rejectedCount.WithLabelValues(class).Inc()
}

func (m *ProcessingMetrics) AddRewardPaid(amount uint64) {
	m.rewardPaidCount.Add(float64(amount))
}

func (m *ProcessingMetrics) SetChainPosition(epoch, height uint64) {
	m.epochGauge.Set(float64(epoch))
	m.heightGauge.Set(float64(height))
}

func (m *ProcessingMetrics) SetDailyBudget(budget uint64) {
	m.dailyBudgetGauge.Set(float64(budget))
}

func (m *ProcessingMetrics) SetPendingVerifications(n int) {
	m.pendingVerifyGauge.Set(float64(n))
}
