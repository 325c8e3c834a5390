package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	apperror "almoxarifado/internal/errors"
	"almoxarifado/internal/pkg/cache"
	"almoxarifado/internal/pkg/logger"
	"almoxarifado/internal/pkg/response"
)

// RateLimiter aplica uma janela fixa de limit requisições por período para cada IP.
// Se o Redis falhar, a requisição segue (fail-open) e a falha é registrada.
func RateLimiter(client cache.Client, limit int, period time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				// RealIP do chi grava o IP sem porta.
				ip = r.RemoteAddr
			}
			key := "rate-limit:" + ip
			ctx := r.Context()

			count, err := client.Incr(ctx, key)
			if err != nil {
				log.Warn("Rate limit indisponível; requisição liberada.", map[string]interface{}{"ip": ip, "error": err.Error()})
				next.ServeHTTP(w, r)
				return
			}
			// Uma chave sem TTL (EXPIRE perdido) bloquearia o IP para sempre; a expiração é rearmada.
			needsExpiry := count == 1
			if !needsExpiry {
				if ttl, err := client.TTL(ctx, key); err == nil && ttl < 0 {
					needsExpiry = true
				}
			}
			if needsExpiry {
				if err := client.Expire(ctx, key, period); err != nil {
					log.Warn("Falha ao definir expiração do rate limit.", map[string]interface{}{"ip": ip, "error": err.Error()})
				}
			}

			remaining := max(int64(limit)-count, 0)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(limit) {
				retryAfter := period
				if ttl, err := client.TTL(ctx, key); err == nil && ttl > 0 {
					retryAfter = ttl
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				response.Error(w, r, log, apperror.NewRateLimitError("Muitas requisições. Tente novamente mais tarde."))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
