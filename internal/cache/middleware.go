package cache

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/internal/auth"
	"github.com/d60-Lab/gin-blog/internal/metrics"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

// HeaderCache 命中缓存的响应带 "X-Cache: HIT"
const HeaderCache = "X-Cache"

type page struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Key 缓存键：路径 + 原始查询串
func Key(r *http.Request) string {
	return r.URL.Path + "?" + r.URL.RawQuery
}

// CachePage 匿名 GET 走缓存，只缓存 200 响应，有效期 ttl。
// 必须挂在解析登录用户的中间件之后，已登录请求既不读也不写缓存
func CachePage(store Store, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || auth.ViewerFrom(c).IsAuthenticated() {
			metrics.PageCacheLookups.WithLabelValues("bypass").Inc()
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := Key(c.Request)
		if raw, ok := store.Get(ctx, key); ok {
			var p page
			if err := json.Unmarshal(raw, &p); err == nil {
				metrics.PageCacheLookups.WithLabelValues("hit").Inc()
				c.Header(HeaderCache, "HIT")
				c.Data(p.Status, p.ContentType, p.Body)
				c.Abort()
				return
			}
		}
		metrics.PageCacheLookups.WithLabelValues("miss").Inc()

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		if w.Status() != http.StatusOK {
			return
		}
		raw, err := json.Marshal(page{
			Status:      w.Status(),
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		})
		if err != nil {
			return
		}
		if err := store.Put(ctx, key, raw, ttl); err != nil {
			logger.Warn("page cache put failed", zap.String("key", key), zap.Error(err))
		}
	}
}
