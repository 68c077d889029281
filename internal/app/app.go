// Package app wires stores, services and transports into a runnable registry.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"provenant/internal/blob"
	blobhandler "provenant/internal/blob/handler"
	identityservice "provenant/internal/identity/service"
	identitystore "provenant/internal/identity/store"
	jwttoken "provenant/internal/jwt_token"
	passporthandler "provenant/internal/passport/handler"
	passportmetrics "provenant/internal/passport/metrics"
	passportservice "provenant/internal/passport/service"
	passportstore "provenant/internal/passport/store"
	"provenant/internal/platform/config"
	"provenant/internal/platform/metrics"
	"provenant/internal/platform/postgres"
	"provenant/internal/platform/redis"
	provenancehandler "provenant/internal/provenance/handler"
	provenancemetrics "provenant/internal/provenance/metrics"
	provenanceservice "provenant/internal/provenance/service"
	provenancestore "provenant/internal/provenance/store"
	ratelimitmetrics "provenant/internal/ratelimit/metrics"
	ratelimitmw "provenant/internal/ratelimit/middleware"
	ratelimitmodels "provenant/internal/ratelimit/models"
	ratelimitservice "provenant/internal/ratelimit/service"
	"provenant/internal/ratelimit/store/bucket"
	httptransport "provenant/internal/transport/http"
	"provenant/internal/validation/attestation"
	validationhandler "provenant/internal/validation/handler"
	validationmetrics "provenant/internal/validation/metrics"
	validationservice "provenant/internal/validation/service"
	validationstore "provenant/internal/validation/store"
	validatorhandler "provenant/internal/validator/handler"
	validatorservice "provenant/internal/validator/service"
	validatorstore "provenant/internal/validator/store"
	id "provenant/pkg/domain"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/audit/publisher"
	"provenant/pkg/platform/audit/relay"
	"provenant/pkg/platform/audit/relay/kafka"
	auditmemory "provenant/pkg/platform/audit/store/memory"
	auditpostgres "provenant/pkg/platform/audit/store/postgres"
	"provenant/pkg/platform/tx"
)

// App is the wired process.
type App struct {
	Router  http.Handler
	Relay   *relay.Relay
	closers []func()
}

// Close releases every opened resource in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// outbox is the notification store the publisher writes and the relay drains.
type outbox interface {
	audit.Store
	relay.Source
}

// stores groups the per-module persistence chosen by the storage driver.
type stores struct {
	identities   identityservice.Store
	passports    passportservice.Store
	provenance   provenanceservice.Store
	validators   validatorservice.Store
	records      validationservice.RecordStore
	testResults  validationservice.TestResultStore
	labs         validationservice.LabStore
	outbox       outbox
	redis        *redis.Client
	tx           tx.Runner
	healthChecks map[string]httptransport.HealthCheck
}

// lateGate lets the passport service hold the finalize gate before the
// validation services it consults exist.
type lateGate struct {
	gate *attestation.Gate
}

func (g *lateGate) CheckFinalize(ctx context.Context, passportID id.PassportID) error {
	if g.gate == nil {
		return errors.New("finalize gate is not configured")
	}
	return g.gate.CheckFinalize(ctx, passportID)
}

// Build opens the configured stores and assembles services, relay and router.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger, reg *prometheus.Registry) (*App, error) {
	a := &App{}
	st, err := openStores(ctx, cfg, log, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	pub := publisher.NewPublisher(st.outbox,
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(reg)),
	)
	a.closers = append(a.closers, pub.Close)

	identities := identityservice.New(st.identities, identityservice.WithLogger(log))
	gate := &lateGate{}
	passports := passportservice.New(st.passports, identities,
		passportservice.WithLogger(log),
		passportservice.WithMetrics(passportmetrics.New(reg)),
		passportservice.WithEmitter(pub),
		passportservice.WithTxRunner(st.tx),
		passportservice.WithFinalizeGate(gate),
	)
	provenance := provenanceservice.New(st.provenance, passports,
		provenanceservice.WithLogger(log),
		provenanceservice.WithMetrics(provenancemetrics.New(reg)),
		provenanceservice.WithEmitter(pub),
		provenanceservice.WithBlockMaterialsAfterFinalize(cfg.Policy.BlockMaterialsAfterFinalize),
	)
	validators := validatorservice.New(st.validators,
		validatorservice.WithLogger(log),
		validatorservice.WithEmitter(pub),
	)
	validationMetrics := validationmetrics.New(reg)
	ledger := validationservice.NewLedger(st.records, passports, validators,
		validationservice.WithRequiredValidations(cfg.Policy.RequiredValidations),
		validationservice.WithTxRunner(st.tx),
		validationservice.WithLogger(log),
		validationservice.WithEmitter(pub),
		validationservice.WithMetrics(validationMetrics),
	)
	admin, err := id.OptionalIdentity(cfg.Auth.AdminIdentity)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("auth.adminidentity: %w", err)
	}
	labTests := validationservice.NewLabTests(st.testResults, st.labs, passports,
		validationservice.WithAdmin(admin),
		validationservice.WithLabLogger(log),
		validationservice.WithLabEmitter(pub),
		validationservice.WithLabMetrics(validationMetrics),
	)
	if gate.gate, err = attestation.NewGateForMode(attestation.Mode(cfg.Policy.FinalizeGate), ledger, labTests); err != nil {
		a.Close()
		return nil, err
	}

	packages, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.RelayEnabled() {
		sink, err := kafka.NewSink(kafka.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, sink.Close)
		if err := sink.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.Replication); err != nil {
			log.Warn("could not ensure notification topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		st.healthChecks["kafka"] = sink.Health
		a.Relay = relay.New(st.outbox, sink,
			relay.WithInterval(cfg.Kafka.RelayInterval),
			relay.WithBatchSize(cfg.Kafka.RelayBatch),
			relay.WithLogger(log),
			relay.WithMetrics(relay.NewMetrics(reg)),
		)
	}

	limiter, err := buildRateLimit(cfg.RateLimit, st, log, reg)
	if err != nil {
		a.Close()
		return nil, err
	}

	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	a.Router = httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Latency:        metrics.NewHTTP(reg),
		Gatherer:       reg,
		Tokens:         jwttoken.NewJWTServiceAdapter(tokens),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		HealthChecks:   st.healthChecks,
		RateLimit:      limiter.RateLimit,
		Modules: []httptransport.Module{
			passporthandler.New(passports, log),
			provenancehandler.New(provenance, log),
			validatorhandler.New(validators, log),
			validationhandler.New(ledger, labTests, log),
			blobhandler.New(packages, cfg.Blob.MaxBytes, log),
		},
	})
	return a, nil
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger, a *App) (*stores, error) {
	st := &stores{tx: tx.Direct, healthChecks: map[string]httptransport.HealthCheck{}}

	var db *sql.DB
	if cfg.Storage.Driver == config.DriverPostgres || cfg.IdentityDriver() == config.DriverPostgres {
		var err error
		if db, err = postgres.Open(ctx, cfg.Postgres); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		if cfg.Postgres.AutoMigrate {
			if err := postgres.Migrate(db, log); err != nil {
				return nil, err
			}
		}
		st.healthChecks["postgres"] = func(ctx context.Context) error { return postgres.Health(ctx, db) }
	}

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		st.passports = passportstore.NewPostgres(db)
		st.provenance = provenancestore.NewPostgres(db)
		st.validators = validatorstore.NewPostgres(db)
		st.records = validationstore.NewPostgresRecords(db)
		st.testResults = validationstore.NewPostgresTestResults(db)
		st.labs = validationstore.NewPostgresLabs(db)
		st.outbox = auditpostgres.New(db)
		st.tx = postgres.NewTxRunner(db)
	default:
		st.passports = passportstore.NewInMemory()
		st.provenance = provenancestore.NewInMemory()
		st.validators = validatorstore.NewInMemory()
		st.records = validationstore.NewInMemoryRecords()
		st.testResults = validationstore.NewInMemoryTestResults()
		st.labs = validationstore.NewInMemoryLabs()
		st.outbox = auditmemory.NewInMemoryStore()
	}

	if cfg.IdentityDriver() == config.DriverRedis || (cfg.RateLimit.Enabled && cfg.RateLimit.Driver == config.DriverRedis) {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		st.redis = client
		st.healthChecks["redis"] = client.Health
	}

	switch cfg.IdentityDriver() {
	case config.DriverRedis:
		st.identities = identitystore.NewRedis(st.redis.Client, cfg.Redis.KeyPrefix)
	case config.DriverPostgres:
		st.identities = identitystore.NewPostgres(db)
	default:
		st.identities = identitystore.NewInMemory()
	}
	return st, nil
}

func buildRateLimit(cfg config.RateLimit, st *stores, log *slog.Logger, reg *prometheus.Registry) (*ratelimitmw.Middleware, error) {
	if !cfg.Enabled {
		return ratelimitmw.New(nil, log, ratelimitmw.WithDisabled(true)), nil
	}
	var primary ratelimitservice.BucketStore = bucket.New()
	if cfg.Driver == config.DriverRedis {
		primary = bucket.NewRedis(st.redis.Client, "provenant:ratelimit")
	}
	limits := map[ratelimitmodels.Class]ratelimitmodels.Limit{}
	for class, n := range map[ratelimitmodels.Class]int{
		ratelimitmodels.ClassRead:   cfg.ReadRequests,
		ratelimitmodels.ClassWrite:  cfg.WriteRequests,
		ratelimitmodels.ClassUpload: cfg.UploadRequests,
	} {
		if n > 0 {
			limits[class] = ratelimitmodels.Limit{Requests: n, Window: cfg.Window}
		}
	}
	if len(limits) == 0 {
		return ratelimitmw.New(nil, log, ratelimitmw.WithDisabled(true)), nil
	}
	svc, err := ratelimitservice.New(primary, limits,
		ratelimitservice.WithLogger(log),
		ratelimitservice.WithMetrics(ratelimitmetrics.New(reg)),
	)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return ratelimitmw.New(svc, log), nil
}
