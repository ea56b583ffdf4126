package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitante struct {
	limiter *rate.Limiter
	visto   time.Time
}

// LoginRateLimit limita tentativas de login por IP: rajada curta, reposição
// lenta. Protege o POST /login de força bruta.
func LoginRateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	var (
		mu         sync.Mutex
		visitantes = map[string]*visitante{}
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		v, ok := visitantes[ip]
		if !ok {
			v = &visitante{limiter: rate.NewLimiter(rps, burst)}
			visitantes[ip] = v
		}
		v.visto = time.Now()

		// limpeza preguiçosa de IPs que sumiram
		if len(visitantes) > 1000 {
			for k, vv := range visitantes {
				if time.Since(vv.visto) > 10*time.Minute {
					delete(visitantes, k)
				}
			}
		}
		mu.Unlock()

		if !v.limiter.Allow() {
			c.String(http.StatusTooManyRequests, "Muitas tentativas, aguarde um instante")
			c.Abort()
			return
		}
		c.Next()
	}
}
