package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	metaclient "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/client/meta"
)

func TestMetaConversationsBucketsByDayAndCategory(t *testing.T) {
	day := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC).Unix()
	points := []metaclient.ConversationDataPoint{
		{Start: day, Conversation: 3, Cost: 0.25, ConversationCategory: "MARKETING"},
		{Start: day, Conversation: 2, Cost: 0.10, ConversationCategory: "MARKETING"},
		{Start: day, Conversation: 1, Cost: 0.05, ConversationCategory: "UTILITY"},
		{Start: 0, Conversation: 9},
	}
	rows := MetaConversations(points, "waba-1", time.Now())
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	marketing := rows[0]
	if marketing.Category != "marketing" || marketing.Conversations != 5 {
		t.Fatalf("marketing row = %+v", marketing)
	}
	if !marketing.Cost.Equal(decimal.NewFromFloat(0.35)) {
		t.Fatalf("marketing cost = %s, want 0.35", marketing.Cost)
	}
	if marketing.BucketDate != "2025-01-05" {
		t.Fatalf("bucket date = %s", marketing.BucketDate)
	}
}

func TestMetaConversationsDefaultsCategory(t *testing.T) {
	rows := MetaConversations([]metaclient.ConversationDataPoint{
		{Start: time.Now().Unix(), Conversation: 1},
	}, "waba-1", time.Now())
	if len(rows) != 1 || rows[0].Category != "unknown" {
		t.Fatalf("rows = %+v, want single unknown-category row", rows)
	}
}

func TestMetaMessagesAggregatesPerDay(t *testing.T) {
	day1 := time.Date(2025, 1, 5, 3, 0, 0, 0, time.UTC).Unix()
	day2 := time.Date(2025, 1, 6, 3, 0, 0, 0, time.UTC).Unix()
	points := []metaclient.MessageDataPoint{
		{Start: day1, Sent: 10, Delivered: 9},
		{Start: day1, Sent: 5, Delivered: 5},
		{Start: day2, Sent: 1, Delivered: 1},
	}
	rows := MetaMessages(points, "waba-1", time.Now())
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Sent != 15 || rows[0].Delivered != 14 {
		t.Fatalf("day1 row = %+v", rows[0])
	}
	if rows[1].BucketDate != "2025-01-06" {
		t.Fatalf("day2 bucket = %s", rows[1].BucketDate)
	}
}

func TestPhoneNormalization(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+55 (54) 99999-1234", "5554999991234"},
		{"54 99999-1234", "5554999991234"},
		{"(54) 3214-5678", "555432145678"},
		{"5554999991234", "5554999991234"},
		{"abc", ""},
		{"", ""},
		{"000", ""},
		{"+1 212 555 01001", "121255501001"},
	}
	for _, tt := range tests {
		if got := Phone(tt.in); got != tt.want {
			t.Fatalf("Phone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
