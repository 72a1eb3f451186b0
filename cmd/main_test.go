package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/eduquest/internal/adapters/index"
	"github.com/okian/eduquest/internal/adapters/repository"
	app "github.com/okian/eduquest/internal/app"
	"github.com/okian/eduquest/internal/config"
	"github.com/okian/eduquest/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestConfigWiring(t *testing.T) {
	convey.Convey("Given configuration from the environment", t, func() {
		setEnv(t, map[string]string{
			"EDUQUEST_ADDR":            ":8080",
			"EDUQUEST_QUEUE_SIZE":      "1000",
			"EDUQUEST_WORKER_COUNT":    "4",
			"EDUQUEST_INITIAL_CREDITS": "40",
		})
		ctx := context.Background()
		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
		convey.So(cfg.EventQueueSize, convey.ShouldEqual, 1000)
		convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)

		convey.Convey("When building the backends", func() {
			store, err := buildStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			_, isMemory := store.(*repository.MemoryStore)
			convey.So(isMemory, convey.ShouldBeTrue)

			idx, err := buildIndex(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			_, isTreap := idx.(*index.Treap)
			convey.So(isTreap, convey.ShouldBeTrue)

			convey.Convey("Then the service honours the configured values", func() {
				svc := app.New(serviceOptions(cfg, store, idx, logger.Get())...)
				p, err := svc.RegisterUser(ctx, "u1", "Ana")
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.Credits, convey.ShouldEqual, 40)
				convey.So(p.CanChat, convey.ShouldBeFalse)
				convey.So(svc.Activities(), convey.ShouldHaveLength, 3)
			})
		})
	})

	convey.Convey("Given a postgres driver without a database url", t, func() {
		setEnv(t, map[string]string{"EDUQUEST_STORE_DRIVER": "postgres"})

		convey.Convey("Then configuration loading fails", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given configured activities", t, func() {
		inactive := false
		cfg := config.New()
		cfg.Activities = []config.Activity{
			{ID: 7, Title: "Lab", Points: 30},
			{ID: 8, Title: "Old", Points: 10, Active: &inactive},
		}

		convey.Convey("Then they replace the built-in catalog", func() {
			acts := activities(cfg)
			convey.So(acts, convey.ShouldHaveLength, 2)
			convey.So(acts[0].IsActive, convey.ShouldBeTrue)
			convey.So(acts[1].IsActive, convey.ShouldBeFalse)

			svc := app.New(serviceOptions(cfg, repository.NewMemoryStore(), nil, logger.Get())...)
			convey.So(svc.Activities(), convey.ShouldHaveLength, 2)
		})
	})

	convey.Convey("Given a configured question bank", t, func() {
		cfg := config.New()
		cfg.Questions = []config.Question{
			{ID: "h1", Text: "¿Qué periodo histórico te interesa?", Category: "vocational", Level: "highschool", Points: 9},
		}

		convey.Convey("Then it replaces the built-in bank", func() {
			svc := app.New(serviceOptions(cfg, repository.NewMemoryStore(), nil, logger.Get())...)
			qs, err := svc.Questions("")
			convey.So(err, convey.ShouldBeNil)
			convey.So(qs, convey.ShouldHaveLength, 1)
			convey.So(qs[0].Points, convey.ShouldEqual, 9)
		})
	})
}

func TestHandler(t *testing.T) {
	convey.Convey("Given the assembled HTTP handler", t, func() {
		ctx := context.Background()
		cfg := config.New()
		svc := app.New()
		h := newHandler(ctx, svc, cfg)

		convey.Convey("Then the API and the OpenAPI document are routed", func() {
			for _, path := range []string{"/openapi.yaml", "/healthz", "/stats", "/activities", "/questions", "/leaderboard"} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("And a JWT secret protects user routes", func() {
			cfg.JWTSecret = "s3cret"
			h := newHandler(ctx, svc, cfg)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/u1", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		svc := app.New()

		convey.Convey("Then they stop with their context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("And single updates do not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(context.Background(), svc) }, convey.ShouldNotPanic)
		})
	})
}

func TestRunFailsOnInvalidConfig(t *testing.T) {
	convey.Convey("Given an invalid log format", t, func() {
		t.Setenv("EDUQUEST_LOG_FORMAT", "xml")
		_ = os.Unsetenv("EDUQUEST_CONFIG")

		convey.Convey("Then run returns before serving", func() {
			err := run(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
