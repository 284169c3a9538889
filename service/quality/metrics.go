/*
 * @module service/quality/metrics
 * @description 质量检查Prometheus指标，记录运行次数、问题数量和耗时
 * @architecture 分层架构 - 监控支撑层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 校验执行 -> 指标记录 -> /metrics暴露
 * @rules 指标注册一次，随进程生命周期存在
 * @dependencies github.com/prometheus/client_golang
 * @refs main.go, service/quality/engine.go
 */

package quality

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	validationRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dq_validation_runs_total",
		Help: "数据质量校验运行总次数",
	}, []string{"status"}) // completed, failed

	validationIssuesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dq_validation_issues_total",
		Help: "校验发现的问题总数",
	})

	validationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dq_validation_duration_seconds",
		Help:    "单次校验运行耗时（秒）",
		Buckets: prometheus.DefBuckets,
	})
)
