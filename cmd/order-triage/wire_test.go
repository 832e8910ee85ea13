package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aogosto/order-triage/internal/poller"
	"github.com/aogosto/order-triage/pkg/config"
	"github.com/aogosto/order-triage/pkg/logger"
)

func TestSiteClientQueriesInShopTime(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// A UTC host must still send Sao Paulo wall time.
	previous := time.Local
	time.Local = time.UTC
	t.Cleanup(func() { time.Local = previous })

	queries := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query().Get("modified_after")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	t.Cleanup(srv.Close)

	client, err := newSiteClient(config.SiteConfig{
		BaseURL:        srv.URL,
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		Timeout:        5 * time.Second,
	}, loc)
	require.NoError(t, err)

	lookback := time.Hour
	before := time.Now().In(loc).Add(-lookback)
	_, err = client.ListOrders(context.Background(), siteListParams(config.SiteConfig{Lookback: lookback}))
	require.NoError(t, err)
	after := time.Now().In(loc).Add(-lookback)

	got, err := time.ParseInLocation("2006-01-02T15:04:05", <-queries, loc)
	require.NoError(t, err)
	assert.False(t, got.Before(before.Truncate(time.Second)), "window %s starts before %s", got, before)
	assert.False(t, got.After(after), "window %s starts after %s", got, after)
}

func TestSiteClientRequiresCredentials(t *testing.T) {
	_, err := newSiteClient(config.SiteConfig{BaseURL: "https://shop.test"}, time.UTC)
	assert.Error(t, err)
}

func TestIgnoreCanceled(t *testing.T) {
	assert.NoError(t, ignoreCanceled(context.Canceled))
	assert.NoError(t, ignoreCanceled(nil))
	assert.Error(t, ignoreCanceled(assert.AnError))
}

func TestServeWithoutSourcesClosesResources(t *testing.T) {
	var closed []string
	app := &service{
		logg:    logger.Nop(),
		pollers: poller.NewGroup(),
		closers: []func() error{
			func() error { closed = append(closed, "db"); return nil },
			func() error { closed = append(closed, "redis"); return nil },
		},
	}

	err := serve(context.Background(), &config.Config{}, logger.Nop(), app)
	assert.ErrorIs(t, err, errNoSource)
	assert.Equal(t, []string{"redis", "db"}, closed)
	assert.Nil(t, app.closers)
}
