package web

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"repcount/internal/adapters/http/middleware"
	"repcount/internal/adapters/http/perf"
	accountStore "repcount/internal/adapters/storage/account"
	attendanceStore "repcount/internal/adapters/storage/attendance"
	gymStore "repcount/internal/adapters/storage/gym"
	memberStore "repcount/internal/adapters/storage/member"
	outboxStore "repcount/internal/adapters/storage/outbox"
	paymentStore "repcount/internal/adapters/storage/payment"
	reminderLogStore "repcount/internal/adapters/storage/reminderlog"
	"repcount/internal/application/orchestrators"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore     accountStore.Store
	GymStore         gymStore.Store
	MemberStore      memberStore.Store
	AttendanceStore  attendanceStore.Store
	PaymentStore     paymentStore.Store
	ReminderLogStore reminderLogStore.Store
	OutboxStore      outboxStore.Store
}

// loadCSRFKey reads the CSRF secret from REPCOUNT_CSRF_KEY (hex-encoded, 32 bytes).
// In production, the key MUST be set. In development, a random key is generated per startup.
func loadCSRFKey() []byte {
	if keyHex := os.Getenv("REPCOUNT_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("REPCOUNT_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if isProduction() {
		log.Fatal("REPCOUNT_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (form tokens won't survive restart). Set REPCOUNT_CSRF_KEY for production.")
	return key
}

// trustedOrigins parses REPCOUNT_TRUSTED_ORIGINS, a comma-separated host list.
func trustedOrigins() []string {
	var out []string
	for _, o := range strings.Split(os.Getenv("REPCOUNT_TRUSTED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// slowRequestThreshold reads REPCOUNT_SLOW_REQUEST_MS; zero means the default.
func slowRequestThreshold() time.Duration {
	ms, err := strconv.Atoi(os.Getenv("REPCOUNT_SLOW_REQUEST_MS"))
	if err != nil || ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func isProduction() bool {
	return os.Getenv("REPCOUNT_ENV") == "production"
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// outboxProcessor drives manual retries from the outbox endpoints.
var outboxProcessor *orchestrators.OutboxProcessor

// SetOutboxProcessor shares the background worker's processor with the
// outbox endpoints so manual retries use the same executors.
func SetOutboxProcessor(p *orchestrators.OutboxProcessor) {
	outboxProcessor = p
}

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores, collector *perf.Collector) http.Handler {
	stores = s
	perfCollector = collector
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = isProduction()

	mux := http.NewServeMux()
	registerRoutes(mux)

	csrfKey := loadCSRFKey()
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Outermost first: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Gate -> Mux
	return middleware.Chain(mux,
		middleware.Gate,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, trustedOrigins()),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(collector, slowRequestThreshold()),
	)
}
