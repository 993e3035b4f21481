package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterMaxClients = 50000
)

// clientLimiter keeps one token bucket per client address.
type clientLimiter struct {
	limit   rate.Limit
	burst   int
	buckets *ttlcache.Cache[string, *rate.Limiter]
}

// newClientLimiter returns nil when perSecond is zero, which disables limiting.
func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		limit: rate.Limit(perSecond),
		burst: burst,
		buckets: ttlcache.New[string, *rate.Limiter](
			ttlcache.WithTTL[string, *rate.Limiter](limiterIdleTTL),
			ttlcache.WithCapacity[string, *rate.Limiter](limiterMaxClients),
		),
	}
}

func (l *clientLimiter) allow(client string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	item, _ := l.buckets.GetOrSet(client, rate.NewLimiter(l.limit, l.burst))
	limiter := item.Value()
	res := limiter.Reserve()
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return false, delay
	}
	return true, 0
}

func (l *clientLimiter) sweep() {
	if l == nil {
		return
	}
	l.buckets.DeleteExpired()
}

func (l *clientLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := l.allow(c.ClientIP())
		if !ok {
			secs := int(wait.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
