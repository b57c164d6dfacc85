// metrics.go
package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 运行结果标签
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics 报表生成的Prometheus指标
type Metrics struct {
	Runs          *prometheus.CounterVec // 按结果统计的运行次数
	StageFailures *prometheus.CounterVec // 按阶段统计的失败次数
	RunDuration   prometheus.Histogram   // 单次运行耗时
	Rows          prometheus.Gauge       // 最近一次读入的行数
	Missing       prometheus.Gauge       // 最近一次填充的缺失单元格数
}

// NewMetrics 创建并注册指标，reg为nil时不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datainsight",
			Name:      "report_runs_total",
			Help:      "Report runs by outcome.",
		}, []string{"outcome"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datainsight",
			Name:      "report_stage_failures_total",
			Help:      "Failed pipeline stages.",
		}, []string{"stage"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "datainsight",
			Name:      "report_run_duration_seconds",
			Help:      "Duration of report runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		Rows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "datainsight",
			Name:      "report_rows",
			Help:      "Rows loaded by the last run.",
		}),
		Missing: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "datainsight",
			Name:      "report_missing_cells",
			Help:      "Missing cells filled by the last run.",
		}),
	}
}
