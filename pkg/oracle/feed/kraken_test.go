package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func krakenTestConfig(apiURL string) map[string]interface{} {
	return map[string]interface{}{
		"api_url": apiURL,
		"pairs": map[string]interface{}{
			"ETH/USD": "ETHUSD",
		},
	}
}

func TestKrakenClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/public/Ticker", r.URL.Path)
		assert.Equal(t, "ETHUSD", r.URL.Query().Get("pair"))
		// Kraken keys the result by its own pair alias
		w.Write([]byte(`{"error":[],"result":{"XETHZUSD":{"c":["1851.30","1.25"]}}}`))
	}))
	defer server.Close()

	client, err := NewKrakenClient(krakenTestConfig(server.URL))
	require.NoError(t, err)

	quote, err := client.Fetch(context.Background(), "ETH/USD")
	require.NoError(t, err)

	assert.Equal(t, "kraken", quote.Source)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("1851.30")))
}

func TestKrakenClient_Fetch_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["EQuery:Unknown asset pair"],"result":{}}`))
	}))
	defer server.Close()

	client, err := NewKrakenClient(krakenTestConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "ETH/USD")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestKrakenClient_Fetch_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":[],"result":{}}`))
	}))
	defer server.Close()

	client, err := NewKrakenClient(krakenTestConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "ETH/USD")
	assert.True(t, errors.Is(err, ErrUnavailable))
}
