package web

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	mw "github.com/JonMunkholm/sheetmap/internal/web/middleware"
)

// rateLimiter is a fixed-window request counter per client IP, with a
// separate, smaller budget for workbook uploads.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	uploads  int
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	requests  int
	uploads   int
	windowEnd time.Time
}

func newRateLimiter(rate, uploads int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		uploads:  uploads,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// sweep drops visitors whose window ended, until stop.
func (rl *rateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			now := rl.now()
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if now.After(v.windowEnd) {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

// allow counts one request and reports whether it fits the budget.
func (rl *rateLimiter) allow(ip string, upload bool) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok || now.After(v.windowEnd) {
		v = &visitor{windowEnd: now.Add(rl.window)}
		rl.visitors[ip] = v
	}

	if v.requests >= rl.rate {
		return false
	}
	if upload && rl.uploads > 0 {
		if v.uploads >= rl.uploads {
			return false
		}
		v.uploads++
	}
	v.requests++
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RemoteAddr has been rewritten by TrustedRealIP when behind a proxy.
		if !rl.allow(mw.ClientIP(r), isUpload(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			writeJSONStatus(w, http.StatusTooManyRequests, ErrorResponse{
				Error:   "Too many requests",
				Message: "Too many requests",
				Action:  "Wait a minute before trying again",
				Code:    "RATE001",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isUpload reports whether r carries a workbook.
func isUpload(r *http.Request) bool {
	return r.Method == http.MethodPost && strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
