package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	emailPkg "repcount/internal/adapters/email"
	web "repcount/internal/adapters/http"
	"repcount/internal/adapters/http/perf"
	"repcount/internal/adapters/storage"
	accountStore "repcount/internal/adapters/storage/account"
	attendanceStore "repcount/internal/adapters/storage/attendance"
	gymStore "repcount/internal/adapters/storage/gym"
	memberStore "repcount/internal/adapters/storage/member"
	outboxStore "repcount/internal/adapters/storage/outbox"
	paymentStore "repcount/internal/adapters/storage/payment"
	reminderLogStore "repcount/internal/adapters/storage/reminderlog"
	"repcount/internal/adapters/telegram"
	"repcount/internal/application/orchestrators"
	"repcount/internal/application/projections"
	"repcount/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("failed to read .env: %v", err)
	}
	env := envOrDefault("REPCOUNT_ENV", "development")
	configureLogging(env)

	dbPath := envOrDefault("REPCOUNT_DB", "repcount.db")
	db, err := storage.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, envMillis("REPCOUNT_SLOW_QUERY_MS"))

	stores := &web.Stores{
		AccountStore:     accountStore.NewSQLiteStore(timedDB),
		GymStore:         gymStore.NewSQLiteStore(timedDB),
		MemberStore:      memberStore.NewSQLiteStore(timedDB),
		AttendanceStore:  attendanceStore.NewSQLiteStore(timedDB),
		PaymentStore:     paymentStore.NewSQLiteStore(timedDB),
		ReminderLogStore: reminderLogStore.NewSQLiteStore(timedDB),
		OutboxStore:      outboxStore.NewSQLiteStore(timedDB),
	}

	// First run: create a gym and its owner so someone can log in.
	ownerEmail := os.Getenv("REPCOUNT_ADMIN_EMAIL")
	ownerPassword := os.Getenv("REPCOUNT_ADMIN_PASSWORD")
	if ownerEmail != "" && ownerPassword != "" {
		err := orchestrators.ExecuteSeedOwner(context.Background(), orchestrators.SeedOwnerInput{
			GymName:  envOrDefault("REPCOUNT_GYM_NAME", "My Gym"),
			Email:    ownerEmail,
			Password: ownerPassword,
		}, orchestrators.SeedOwnerDeps{
			AccountStore: stores.AccountStore,
			GymStore:     stores.GymStore,
			Now:          time.Now,
			GenerateID:   generateID,
		})
		if err != nil {
			log.Fatalf("failed to seed owner: %v", err)
		}
	} else if env == "production" {
		slog.Warn("startup_event", "event", "owner_seed_skipped", "reason", "REPCOUNT_ADMIN_EMAIL or REPCOUNT_ADMIN_PASSWORD not set")
	}

	executors := map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeDigestEmail:    &orchestrators.DigestEmailExecutor{Sender: newEmailSender(env)},
		outbox.ActionTypeDigestTelegram: &orchestrators.DigestTelegramExecutor{Notifier: newTelegramNotifier()},
	}

	stopCh := make(chan struct{})
	processor := orchestrators.NewOutboxProcessor(stores.OutboxStore, executors)
	orchestrators.StartBackgroundWorker(processor, time.Minute, stopCh)
	web.SetOutboxProcessor(processor)

	digestInterval, err := time.ParseDuration(envOrDefault("REPCOUNT_DIGEST_INTERVAL", "1h"))
	if err != nil || digestInterval <= 0 {
		log.Fatalf("REPCOUNT_DIGEST_INTERVAL must be a positive duration such as 30m")
	}
	orchestrators.StartDigestWorker(orchestrators.DigestSweepDeps{
		Gyms: stores.GymStore,
		Digest: orchestrators.QueueReminderDigestDeps{
			GymStore: stores.GymStore,
			Reminders: projections.GetDueRemindersDeps{
				MemberStore:      stores.MemberStore,
				GymStore:         stores.GymStore,
				CheckInStore:     stores.AttendanceStore,
				ReminderLogStore: stores.ReminderLogStore,
			},
			OutboxStore: stores.OutboxStore,
			Now:         time.Now,
		},
	}, digestInterval, stopCh)

	addr := envOrDefault("REPCOUNT_ADDR", ":8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           web.NewMux(stores, collector),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		close(stopCh)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("shutdown_failed", "error", err)
		}
	}()

	slog.Info("startup_event", "event", "listening", "version", version, "addr", addr, "env", env, "digest_interval", digestInterval.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}

func configureLogging(env string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if os.Getenv("REPCOUNT_DEBUG") == "true" {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func newEmailSender(env string) emailPkg.Sender {
	resendKey := os.Getenv("REPCOUNT_RESEND_KEY")
	from := envOrDefault("REPCOUNT_RESEND_FROM", "RepCount <digest@repcount.app>")
	if resendKey != "" {
		slog.Info("startup_event", "event", "email_sender", "provider", "resend")
		return emailPkg.NewResendSender(resendKey, from)
	}
	if env == "production" {
		slog.Warn("startup_event", "event", "email_sender", "provider", "noop", "reason", "REPCOUNT_RESEND_KEY is not set, digest email is DISABLED")
	}
	return emailPkg.NewNoopSender()
}

func newTelegramNotifier() telegram.Notifier {
	token := os.Getenv("REPCOUNT_TELEGRAM_TOKEN")
	if token == "" {
		return telegram.NoopNotifier{}
	}
	n, err := telegram.NewBotNotifier(token)
	if err != nil {
		log.Fatalf("failed to connect telegram bot: %v", err)
	}
	return n
}

func generateID() string {
	return uuid.New().String()
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envMillis reads a millisecond setting; unset or invalid means zero.
func envMillis(key string) time.Duration {
	ms, err := strconv.Atoi(os.Getenv(key))
	if err != nil || ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
