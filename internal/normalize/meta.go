package normalize

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	metaclient "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/client/meta"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/models"
)

// MetaConversations maps Graph API conversation data points onto canonical
// per-day, per-category cost rows. Points sharing a day and category are
// summed.
func MetaConversations(points []metaclient.ConversationDataPoint, wabaID string, syncedAt time.Time) []models.ConversationCost {
	type key struct {
		date     string
		category string
	}
	byKey := map[key]*models.ConversationCost{}
	for _, p := range points {
		if p.Start == 0 {
			continue
		}
		k := key{
			date:     unixDate(p.Start),
			category: conversationCategory(p.ConversationCategory),
		}
		row, ok := byKey[k]
		if !ok {
			row = &models.ConversationCost{
				WabaID:     wabaID,
				BucketDate: k.date,
				Category:   k.category,
				Cost:       decimal.Zero,
				SyncedAt:   syncedAt,
			}
			byKey[k] = row
		}
		row.Conversations += p.Conversation
		row.Cost = row.Cost.Add(decimal.NewFromFloat(p.Cost))
	}

	out := make([]models.ConversationCost, 0, len(byKey))
	for _, row := range byKey {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BucketDate != out[j].BucketDate {
			return out[i].BucketDate < out[j].BucketDate
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MetaMessages maps message analytics points onto canonical per-day volume
// rows (direction "sent" for outbound analytics).
func MetaMessages(points []metaclient.MessageDataPoint, wabaID string, syncedAt time.Time) []models.MessageVolume {
	byDate := map[string]*models.MessageVolume{}
	for _, p := range points {
		if p.Start == 0 {
			continue
		}
		date := unixDate(p.Start)
		row, ok := byDate[date]
		if !ok {
			row = &models.MessageVolume{
				WabaID:     wabaID,
				BucketDate: date,
				Direction:  "sent",
				SyncedAt:   syncedAt,
			}
			byDate[date] = row
		}
		row.Sent += p.Sent
		row.Delivered += p.Delivered
	}

	out := make([]models.MessageVolume, 0, len(byDate))
	for _, row := range byDate {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketDate < out[j].BucketDate })
	return out
}

func unixDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02")
}

func conversationCategory(raw string) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	if c == "" {
		return "unknown"
	}
	return c
}
