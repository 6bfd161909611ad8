package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests 按路由模板、方法、状态码计数
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_http_requests_total",
		Help: "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	// HTTPDuration 按路由模板统计耗时
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// FeedQueryDuration 各信息流组装耗时
	FeedQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_feed_query_duration_seconds",
		Help:    "Feed composition duration by surface",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms ~ 1s
	}, []string{"surface"})

	// PageCacheLookups 页面缓存查找结果：hit / miss / bypass
	PageCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_page_cache_lookups_total",
		Help: "Response cache lookups by result",
	}, []string{"result"})

	// FollowOps 关注关系变更次数，按操作与结果区分
	FollowOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_follow_operations_total",
		Help: "Follow graph operations by operation and outcome",
	}, []string{"operation", "outcome"})
)

// ObserveFeed 记录某个信息流自 start 起的耗时
func ObserveFeed(surface string, start time.Time) {
	FeedQueryDuration.WithLabelValues(surface).Observe(time.Since(start).Seconds())
}
