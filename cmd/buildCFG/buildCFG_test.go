package buildCFG

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/config"
)

func load(t *testing.T, yaml string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	cfg := config.New()
	require.NoError(t, cfg.Load(path, "", ""))
	return cfg
}

func TestDefaults(t *testing.T) {
	log := zerolog.Nop()
	cfg := load(t, "store:\n  driver: memory\nauth:\n  secret: s\n")

	srv := BuildServerConfig(cfg, &log)
	assert.Equal(t, "8080", srv.Port)
	assert.Equal(t, 30, srv.RateLimitPerMinute)

	sc, err := BuildStoreConfig(cfg, &log)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, sc.Driver)
	assert.Equal(t, uint32(3), sc.Breaker.ConsecutiveFailures)
	assert.Equal(t, 30*time.Second, sc.Breaker.OpenTimeout)

	local := BuildLocalStoreConfig(cfg, &log)
	assert.True(t, local.Enabled)
	assert.Equal(t, "data/local.db", local.Path)

	_, ok := BuildRabbitConfig(cfg, &log)
	assert.False(t, ok)

	sync := BuildSyncConfig(cfg)
	assert.False(t, sync.Enabled)
	assert.Equal(t, time.Minute, sync.Interval)

	assert.Empty(t, BuildTelemetryConfig(cfg).Endpoint)
}

func TestStoreDrivers(t *testing.T) {
	log := zerolog.Nop()

	_, err := BuildStoreConfig(load(t, "store:\n  driver: cassandra\n"), &log)
	assert.Error(t, err)

	_, err = BuildStoreConfig(load(t, "store:\n  driver: postgres\n"), &log)
	assert.Error(t, err)

	sc, err := BuildStoreConfig(load(t, "store:\n  driver: surrealdb\nsurrealdb:\n  url: ws://db:8000/rpc\n"), &log)
	require.NoError(t, err)
	assert.Equal(t, "mtt", sc.Surreal.Namespace)

	sc, err = BuildStoreConfig(load(t, "store:\n  driver: Mongo\nmongo:\n  uri: mongodb://db\n"), &log)
	require.NoError(t, err)
	assert.Equal(t, DriverMongo, sc.Driver)
	assert.Equal(t, "mttsite", sc.Mongo.Database)
}

func TestAuthConfig(t *testing.T) {
	log := zerolog.Nop()

	_, err := BuildAuthConfig(load(t, "server:\n  port: \"9000\"\n"), &log)
	assert.Error(t, err)

	ac, err := BuildAuthConfig(load(t, "auth:\n  secret: x\n  ttl: 2h\n  admin_emails: \"a@x.org, ,b@x.org\"\n  admin_password: boot\n"), &log)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, ac.TTL)
	assert.Equal(t, []string{"a@x.org", "b@x.org"}, ac.AdminEmails)
	assert.Equal(t, "boot", ac.AdminPassword)
}
