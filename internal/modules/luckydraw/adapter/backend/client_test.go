package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankieli/forum_product/internal/modules/luckydraw/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second)
}

func TestFetchCatalog(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/lottery/gifts", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 0,
			"data": []map[string]interface{}{
				{"gift_id": "7", "gift_name": "会员月卡"},
				{"id": "0", "name": "谢谢参与"},
			},
		})
	})

	ctx := domain.WithToken(context.Background(), "tok-123")
	catalog, err := client.FetchCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	assert.True(t, catalog[1].IsSentinel())
}

func TestDrawUnparseablePrize(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 0,
			"data": map[string]interface{}{"garbage": true},
		})
	})

	_, err := client.Draw(context.Background(), 1001)
	assert.Error(t, err)
}

func TestBackendErrorCode(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 4002,
			"msg":  "库存不足",
		})
	})

	err := client.Pay(context.Background(), 1001, "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4002")
}

func TestLatestOrderNotFound(t *testing.T) {
	t.Run("null data", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"code": 0, "data": nil})
		})

		_, err := client.LatestOrder(context.Background(), 1001)
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("http 404", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := client.LatestOrder(context.Background(), 1001)
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("transport error is not NotFound", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.LatestOrder(context.Background(), 1001)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestNotFoundMeaningScopedToOrders(t *testing.T) {
	// A 404 from any other endpoint is a plain transport failure, not
	// "no paid order yet".
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.Pay(context.Background(), 1001, "7")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrOrderNotFound)

	err = client.Abandon(context.Background(), 1001, "7")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = client.Draw(context.Background(), 1001)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = client.FetchCatalog(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestLatestOrderParsed(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 0,
			"data": map[string]interface{}{
				"id":        "ord-1",
				"user_id":   1001,
				"gift_id":   "7",
				"gift_name": "会员月卡",
				"count":     1,
			},
		})
	})

	order, err := client.LatestOrder(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, "7", order.GiftID)
}
