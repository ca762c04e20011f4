package server

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/authmatrix/internal/logging"
	"github.com/dmitrijs2005/authmatrix/internal/server/config"
	"github.com/dmitrijs2005/authmatrix/internal/server/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.StoreDriver = config.StoreMemory
	return c
}

func TestNewApp_InvalidConfig(t *testing.T) {
	c := testConfig()
	c.SecretKey = ""

	_, err := NewApp(context.Background(), c, logging.Nop{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret key is required")
}

func TestNewApp_SQLiteStore(t *testing.T) {
	c := testConfig()
	c.StoreDriver = config.StoreSQLite
	c.DatabaseDSN = "file:app_test?mode=memory&cache=shared"
	c.SecretKey = "0123456789abcdef0123456789abcdef"

	app, err := NewApp(context.Background(), c, logging.Nop{})
	require.NoError(t, err)
	require.NoError(t, app.closeStore())
}

func TestNewNotifier(t *testing.T) {
	c := testConfig()
	_, ok := newNotifier(c, logging.Nop{}).(*notify.LogNotifier)
	assert.True(t, ok)

	c.SMTPHost = "smtp.example.com"
	_, ok = newNotifier(c, logging.Nop{}).(*notify.SMTPNotifier)
	assert.True(t, ok)
}

func TestRun_ListenFailure(t *testing.T) {
	c := testConfig()
	c.HTTPAddr = "bad:::addr"

	app, err := NewApp(context.Background(), c, logging.Nop{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http server")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after listen failure")
	}
}
