package buildCFG

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"mttsite/internal/docstore"
	"mttsite/internal/docstore/mongo"
	"mttsite/internal/docstore/surreal"
	"mttsite/internal/imageupload"
	"mttsite/internal/mailer"
	"mttsite/internal/rabbit"
	"mttsite/internal/telemetry"
)

type ServerConfig struct {
	Port string
	// Requests per minute per client IP on login, sign-up and event registration.
	RateLimitPerMinute int
	RateLimitBurst     int
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		log.Warn().Msg("server.port not set, using 8080")
		port = "8080"
	}
	return ServerConfig{
		Port:               port,
		RateLimitPerMinute: orInt(cfg.GetInt("server.rate_limit.per_minute"), 30),
		RateLimitBurst:     orInt(cfg.GetInt("server.rate_limit.burst"), 10),
	}
}

const (
	DriverPostgres = "postgres"
	DriverSurreal  = "surrealdb"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type PostgresConfig struct {
	MasterDSN  string
	SlaveDSNs  []string
	Pool       *dbpg.Options
	Migrations string
}

type StoreConfig struct {
	Driver   string
	Postgres PostgresConfig
	Surreal  surreal.Config
	Mongo    mongo.Config
	Breaker  docstore.BreakerConfig
	Timeout  time.Duration
}

func BuildStoreConfig(cfg *config.Config, log *zerolog.Logger) (StoreConfig, error) {
	sc := StoreConfig{
		Driver: strings.ToLower(strings.TrimSpace(cfg.GetString("store.driver"))),
		Breaker: docstore.BreakerConfig{
			ConsecutiveFailures: uint32(orInt(cfg.GetInt("store.breaker.failures"), 3)),
			OpenTimeout:         orDuration(cfg.GetDuration("store.breaker.open_timeout"), 30*time.Second),
		},
		Timeout: orDuration(cfg.GetDuration("store.timeout"), 5*time.Second),
	}
	if sc.Driver == "" {
		sc.Driver = DriverPostgres
	}

	switch sc.Driver {
	case DriverPostgres:
		master, slaves, pool, err := BuildDBConfig(cfg, log)
		if err != nil {
			return sc, err
		}
		sc.Postgres = PostgresConfig{
			MasterDSN:  master,
			SlaveDSNs:  slaves,
			Pool:       pool,
			Migrations: orString(cfg.GetString("db.migrations"), "migrations/postgres"),
		}
	case DriverSurreal:
		sc.Surreal = surreal.Config{
			URL:       cfg.GetString("surrealdb.url"),
			Namespace: orString(cfg.GetString("surrealdb.namespace"), "mtt"),
			Database:  orString(cfg.GetString("surrealdb.database"), "site"),
			Username:  cfg.GetString("surrealdb.username"),
			Password:  cfg.GetString("surrealdb.password"),
		}
		if sc.Surreal.URL == "" {
			return sc, errors.New("surrealdb.url is required")
		}
	case DriverMongo:
		sc.Mongo = mongo.Config{
			URI:      cfg.GetString("mongo.uri"),
			Database: orString(cfg.GetString("mongo.database"), "mttsite"),
		}
		if sc.Mongo.URI == "" {
			return sc, errors.New("mongo.uri is required")
		}
	case DriverMemory:
		log.Warn().Msg("using in-memory document store, data is lost on restart")
	default:
		return sc, errors.New("unknown store.driver " + sc.Driver)
	}
	return sc, nil
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	master := cfg.GetString("db.master_dsn")
	if master == "" {
		return "", nil, nil, errors.New("db.master_dsn is required")
	}
	slaves := splitList(cfg.GetString("db.slave_dsns"))
	opts := &dbpg.Options{
		MaxOpenConns:    orInt(cfg.GetInt("db.max_open_conns"), 10),
		MaxIdleConns:    orInt(cfg.GetInt("db.max_idle_conns"), 5),
		ConnMaxLifetime: orDuration(cfg.GetDuration("db.conn_max_lifetime"), 30*time.Minute),
	}
	log.Debug().Int("slaves", len(slaves)).Msg("database config built")
	return master, slaves, opts, nil
}

type LocalStoreConfig struct {
	Enabled bool
	Path    string
}

func BuildLocalStoreConfig(cfg *config.Config, log *zerolog.Logger) LocalStoreConfig {
	lc := LocalStoreConfig{
		Enabled: !cfg.GetBool("local_store.disabled"),
		Path:    orString(cfg.GetString("local_store.path"), "data/local.db"),
	}
	if !lc.Enabled {
		log.Warn().Msg("local store disabled, writes fail while the document store is down")
	}
	return lc
}

// BuildRabbitConfig returns ok=false when no broker URL is configured.
func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (rabbit.Config, bool) {
	rc := rabbit.Config{
		URL:      cfg.GetString("rabbitmq.url"),
		Exchange: orString(cfg.GetString("rabbitmq.exchange"), "registrations"),
		Queue:    orString(cfg.GetString("rabbitmq.queue"), "registration_notifications"),
	}
	if rc.URL == "" {
		log.Warn().Msg("rabbitmq.url not set, registration notifications disabled")
		return rc, false
	}
	return rc, true
}

func BuildSMTPConfig(cfg *config.Config) mailer.Config {
	return mailer.Config{
		Host:     cfg.GetString("smtp.host"),
		Port:     orInt(cfg.GetInt("smtp.port"), 587),
		From:     cfg.GetString("smtp.from"),
		Username: cfg.GetString("smtp.username"),
		Password: cfg.GetString("smtp.password"),
	}
}

type AuthConfig struct {
	Secret        string
	TTL           time.Duration
	AdminEmails   []string
	AdminPassword string
}

func BuildAuthConfig(cfg *config.Config, log *zerolog.Logger) (AuthConfig, error) {
	ac := AuthConfig{
		Secret:        cfg.GetString("auth.secret"),
		TTL:           cfg.GetDuration("auth.ttl"),
		AdminEmails:   splitList(cfg.GetString("auth.admin_emails")),
		AdminPassword: cfg.GetString("auth.admin_password"),
	}
	if ac.Secret == "" {
		return ac, errors.New("auth.secret is required")
	}
	switch {
	case len(ac.AdminEmails) == 0:
		log.Warn().Msg("auth.admin_emails is empty, only users flagged in the store are admins")
	case ac.AdminPassword == "":
		log.Warn().Msg("auth.admin_password is empty, missing admin accounts will not be created")
	}
	return ac, nil
}

func BuildCloudinaryConfig(cfg *config.Config) imageupload.Config {
	return imageupload.Config{
		CloudName: cfg.GetString("cloudinary.cloud_name"),
		APIKey:    cfg.GetString("cloudinary.api_key"),
		APISecret: cfg.GetString("cloudinary.api_secret"),
		Folder:    orString(cfg.GetString("cloudinary.folder"), "mtt"),
	}
}

type SyncConfig struct {
	Enabled  bool
	Interval time.Duration
}

func BuildSyncConfig(cfg *config.Config) SyncConfig {
	return SyncConfig{
		Enabled:  cfg.GetBool("sync.enabled"),
		Interval: orDuration(cfg.GetDuration("sync.interval"), time.Minute),
	}
}

func BuildTelemetryConfig(cfg *config.Config) telemetry.Config {
	return telemetry.Config{
		Endpoint:    cfg.GetString("telemetry.endpoint"),
		ServiceName: orString(cfg.GetString("telemetry.service_name"), "mttsite"),
		Insecure:    cfg.GetBool("telemetry.insecure"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
