package normalize

import (
	"testing"
	"time"

	googleclient "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/client/google"
)

func series(metric string, values map[googleclient.Date]string) googleclient.DailyMetricTimeSeries {
	s := googleclient.DailyMetricTimeSeries{DailyMetric: metric}
	for d, v := range values {
		s.TimeSeries.DatedValues = append(s.TimeSeries.DatedValues, googleclient.DatedValue{Date: d, Value: v})
	}
	return s
}

func TestGoogleMetricsSumsMappedSubMetrics(t *testing.T) {
	d1 := googleclient.Date{Year: 2025, Month: 1, Day: 1}
	d2 := googleclient.Date{Year: 2025, Month: 1, Day: 2}
	d3 := googleclient.Date{Year: 2025, Month: 1, Day: 3}

	payload := &googleclient.MultiDailyMetricsResponse{
		MultiDailyMetricTimeSeries: []googleclient.MultiDailyMetricTimeSeries{{
			DailyMetricTimeSeries: []googleclient.DailyMetricTimeSeries{
				series("BUSINESS_IMPRESSIONS_DESKTOP_MAPS", map[googleclient.Date]string{d1: "3", d2: "5", d3: "7"}),
				series("BUSINESS_IMPRESSIONS_MOBILE_MAPS", map[googleclient.Date]string{d1: "4", d2: "6", d3: "8"}),
				series("WEBSITE_CLICKS", map[googleclient.Date]string{d1: "2"}),
			},
		}},
	}

	rows := GoogleMetrics(payload, "loc-1", time.Now(), nil)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	wantMaps := []int64{7, 11, 15}
	for i, row := range rows {
		if row.LocationID != "loc-1" {
			t.Fatalf("row %d location = %q", i, row.LocationID)
		}
		if row.ViewsMaps != wantMaps[i] {
			t.Fatalf("row %s views_maps = %d, want %d", row.BucketDate, row.ViewsMaps, wantMaps[i])
		}
	}
	if rows[0].BucketDate != "2025-01-01" || rows[2].BucketDate != "2025-01-03" {
		t.Fatalf("unexpected bucket dates: %s..%s", rows[0].BucketDate, rows[2].BucketDate)
	}
	if rows[0].WebsiteClicks != 2 || rows[1].WebsiteClicks != 0 {
		t.Fatalf("website clicks = %d/%d, want 2/0", rows[0].WebsiteClicks, rows[1].WebsiteClicks)
	}
}

func TestGoogleMetricsRepeatableForSameWindow(t *testing.T) {
	d := googleclient.Date{Year: 2025, Month: 2, Day: 10}
	payload := &googleclient.MultiDailyMetricsResponse{
		MultiDailyMetricTimeSeries: []googleclient.MultiDailyMetricTimeSeries{{
			DailyMetricTimeSeries: []googleclient.DailyMetricTimeSeries{
				series("CALL_CLICKS", map[googleclient.Date]string{d: "9"}),
			},
		}},
	}
	ts := time.Now()
	first := GoogleMetrics(payload, "loc-1", ts, nil)
	second := GoogleMetrics(payload, "loc-1", ts, nil)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("rows = %d/%d, want 1/1", len(first), len(second))
	}
	if first[0] != second[0] {
		t.Fatalf("normalization not stable: %+v vs %+v", first[0], second[0])
	}
}

func TestGoogleMetricsIgnoresUnknownMetric(t *testing.T) {
	d := googleclient.Date{Year: 2025, Month: 3, Day: 1}
	payload := &googleclient.MultiDailyMetricsResponse{
		MultiDailyMetricTimeSeries: []googleclient.MultiDailyMetricTimeSeries{{
			DailyMetricTimeSeries: []googleclient.DailyMetricTimeSeries{
				series("SOME_FUTURE_METRIC", map[googleclient.Date]string{d: "100"}),
				series("WEBSITE_CLICKS", map[googleclient.Date]string{d: "1"}),
			},
		}},
	}
	rows := GoogleMetrics(payload, "loc-1", time.Now(), nil)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].WebsiteClicks != 1 {
		t.Fatalf("website clicks = %d, want 1", rows[0].WebsiteClicks)
	}
}

func TestStarRatingTotality(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"ONE", 1},
		{"TWO", 2},
		{"THREE", 3},
		{"FOUR", 4},
		{"FIVE", 5},
		{"SIX", 0},
		{"five", 0},
		{"", 0},
		{"STAR_RATING_UNSPECIFIED", 0},
	}
	for _, tt := range tests {
		if got := StarRating(tt.in); got != tt.want {
			t.Fatalf("StarRating(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestGoogleReviewsDefaults(t *testing.T) {
	reviews := []googleclient.Review{
		{
			ReviewID:   "r1",
			Reviewer:   googleclient.Reviewer{DisplayName: "Ana"},
			StarRating: "FIVE",
			CreateTime: "2025-01-01T10:00:00Z",
			Reply:      &googleclient.ReviewReply{Comment: "obrigado!", UpdateTime: "2025-01-02T09:00:00Z"},
		},
		{ReviewID: "r2", StarRating: "bogus", CreateTime: "not-a-time"},
		{ReviewID: ""},
	}
	rows := GoogleReviews(reviews, "loc-1", time.Now())
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (empty id dropped)", len(rows))
	}
	if rows[0].Rating != 5 || rows[0].ReplyComment == nil || *rows[0].ReplyComment != "obrigado!" {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if rows[1].Rating != 0 || rows[1].CreateTime != nil {
		t.Fatalf("row 1 should default rating 0 and nil time, got %+v", rows[1])
	}
}
