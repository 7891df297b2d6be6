// Command ratelimited serves a token-bucket limited HTTP endpoint so ratecheck
// can be tried against a known limit:
//
//	go run ./scripts/testservers/ratelimited --port 8080 --rate 10 --burst 20
//	ratecheck http://localhost:8080/ 30 GET
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/time/rate"
)

func main() {
	port := pflag.Int("port", 8080, "Listening port")
	perSecond := pflag.Float64("rate", 10, "Requests per second allowed")
	burst := pflag.Int("burst", 20, "Requests allowed in a burst before 429s start")
	latency := pflag.Duration("latency", 0, "Artificial delay added to every response")
	pflag.Parse()

	if *port <= 0 {
		log.Fatalf("port must be > 0")
	}

	limiter := rate.NewLimiter(rate.Limit(*perSecond), *burst)
	addr := fmt.Sprintf(":%d", *port)
	log.Printf("rate limited server listening on %s (%.1f rps, burst %d)", addr, *perSecond, *burst)
	log.Fatal(http.ListenAndServe(addr, newHandler(limiter, *latency)))
}

func newHandler(limiter *rate.Limiter, latency time.Duration) http.Handler {
	var served, rejected atomic.Int64
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if latency > 0 {
			time.Sleep(latency)
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
		if !limiter.Allow() {
			rejected.Add(1)
			retry := retryAfterSeconds(limiter)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("X-RateLimit-Remaining", "0")
			respondJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "too many requests",
				"retry_after": retry,
			})
			return
		}
		n := served.Add(1)
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(math.Max(0, math.Floor(limiter.Tokens())))))
		respondJSON(w, http.StatusOK, map[string]any{
			"ok":       true,
			"served":   n,
			"rejected": rejected.Load(),
			"method":   r.Method,
		})
	})
}

func retryAfterSeconds(limiter *rate.Limiter) int {
	if limiter.Limit() <= 0 {
		return 1
	}
	return int(math.Max(1, math.Ceil(1/float64(limiter.Limit()))))
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
