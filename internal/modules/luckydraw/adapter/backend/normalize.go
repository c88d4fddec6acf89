package backend

import (
	"strconv"
	"time"

	"github.com/frankieli/forum_product/internal/modules/luckydraw/domain"
)

// The forum backend is loose about field naming across endpoints. All of
// the aliasing and defaulting lives here: payloads either normalize into
// a fully-populated canonical value or are dropped, never half-filled.

var (
	prizeIDAliases    = []string{"id", "Id", "ID", "gift_id", "giftId"}
	prizeNameAliases  = []string{"name", "Name", "title", "gift_name", "giftName"}
	prizeDescAliases  = []string{"description", "desc", "Desc", "remark"}
	prizeImageAliases = []string{"image", "img", "image_url", "imageUrl", "icon", "pic"}
	prizeValueAliases = []string{"value", "price", "amount"}
)

// NormalizePrize resolves field aliases into a canonical Prize. Entries
// without an id or name after normalization are reported invalid.
func NormalizePrize(raw map[string]interface{}) (domain.Prize, bool) {
	id := stringField(raw, prizeIDAliases...)
	name := stringField(raw, prizeNameAliases...)
	if id == "" || name == "" {
		return domain.Prize{}, false
	}

	return domain.Prize{
		ID:          id,
		Name:        name,
		Description: stringField(raw, prizeDescAliases...),
		ImageRef:    stringField(raw, prizeImageAliases...),
		Value:       floatField(raw, prizeValueAliases...),
	}, true
}

// NormalizeCatalog normalizes a raw gift list: invalid entries are
// silently dropped and duplicates deduplicated by id, first occurrence
// wins.
func NormalizeCatalog(raws []map[string]interface{}) []domain.Prize {
	catalog := make([]domain.Prize, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))

	for _, raw := range raws {
		prize, ok := NormalizePrize(raw)
		if !ok {
			continue
		}
		if _, dup := seen[prize.ID]; dup {
			continue
		}
		seen[prize.ID] = struct{}{}
		catalog = append(catalog, prize)
	}
	return catalog
}

// NormalizeOrder resolves a raw lottery order record
func NormalizeOrder(raw map[string]interface{}) (*domain.LotteryOrder, bool) {
	id := stringField(raw, "id", "Id", "ID", "order_id", "orderId")
	if id == "" {
		return nil, false
	}

	order := &domain.LotteryOrder{
		ID:        id,
		UserID:    intField(raw, "user_id", "userId", "uid"),
		GiftID:    stringField(raw, "gift_id", "giftId"),
		GiftName:  stringField(raw, "gift_name", "giftName"),
		Count:     int(intField(raw, "count", "num")),
		CreatedAt: timeField(raw, "created_at", "createdAt", "create_time", "createTime"),
	}

	// Some endpoints nest the gift instead of flattening it
	if order.GiftID == "" {
		if nested, ok := raw["gift"].(map[string]interface{}); ok {
			if prize, valid := NormalizePrize(nested); valid {
				order.GiftID = prize.ID
				order.GiftName = prize.Name
			}
		}
	}

	return order, true
}

func stringField(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func floatField(raw map[string]interface{}, keys ...string) float64 {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func intField(raw map[string]interface{}, keys ...string) int64 {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			return int64(v)
		case string:
			if i, err := strconv.ParseInt(v, 10, 64); err == nil {
				return i
			}
		}
	}
	return 0
}

func timeField(raw map[string]interface{}, keys ...string) time.Time {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
				if t, err := time.Parse(layout, v); err == nil {
					return t
				}
			}
		case float64:
			return time.Unix(int64(v), 0)
		}
	}
	return time.Time{}
}
