package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrizeAliases(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
	}{
		{
			name: "snake_case",
			raw:  map[string]interface{}{"gift_id": "7", "gift_name": "会员月卡", "price": 12.0},
		},
		{
			name: "camelCase",
			raw:  map[string]interface{}{"giftId": "7", "title": "会员月卡", "value": "12"},
		},
		{
			name: "numeric id",
			raw:  map[string]interface{}{"id": 7.0, "name": "会员月卡", "amount": 12.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prize, ok := NormalizePrize(tt.raw)
			require.True(t, ok)
			assert.Equal(t, "7", prize.ID)
			assert.Equal(t, "会员月卡", prize.Name)
			assert.Equal(t, 12.0, prize.Value)
		})
	}
}

func TestNormalizePrizeDropsIncomplete(t *testing.T) {
	_, ok := NormalizePrize(map[string]interface{}{"name": "无名奖品"})
	assert.False(t, ok, "missing id must be dropped")

	_, ok = NormalizePrize(map[string]interface{}{"id": "9"})
	assert.False(t, ok, "missing name must be dropped")
}

func TestNormalizeCatalogDedupesFirstWins(t *testing.T) {
	catalog := NormalizeCatalog([]map[string]interface{}{
		{"id": "7", "name": "会员月卡"},
		{"id": "7", "name": "重复的月卡"},
		{"broken": true},
		{"id": "8", "name": "棒棒糖"},
	})

	require.Len(t, catalog, 2)
	assert.Equal(t, "会员月卡", catalog[0].Name)
	assert.Equal(t, "8", catalog[1].ID)
}

func TestNormalizeOrderNestedGift(t *testing.T) {
	order, ok := NormalizeOrder(map[string]interface{}{
		"order_id":   "20240301-42",
		"uid":        1001.0,
		"count":      1.0,
		"createTime": "2024-03-01 10:30:00",
		"gift": map[string]interface{}{
			"id":   "7",
			"name": "会员月卡",
		},
	})

	require.True(t, ok)
	assert.Equal(t, "20240301-42", order.ID)
	assert.EqualValues(t, 1001, order.UserID)
	assert.Equal(t, "7", order.GiftID)
	assert.Equal(t, "会员月卡", order.GiftName)
	assert.Equal(t, 1, order.Count)
	assert.Equal(t, 2024, order.CreatedAt.Year())
}

func TestNormalizeOrderMissingID(t *testing.T) {
	_, ok := NormalizeOrder(map[string]interface{}{"uid": 1001.0})
	assert.False(t, ok)
}
