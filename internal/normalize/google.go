package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	googleclient "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/client/google"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/models"
)

// metricColumns is the single source of truth mapping a raw Business Profile
// daily metric onto the canonical counter it rolls into. Several raw metrics
// accumulate into the same counter (desktop + mobile impressions).
var metricColumns = map[string]func(*models.LocationMetric, int64){
	"BUSINESS_IMPRESSIONS_DESKTOP_MAPS":   func(m *models.LocationMetric, v int64) { m.ViewsMaps += v },
	"BUSINESS_IMPRESSIONS_MOBILE_MAPS":    func(m *models.LocationMetric, v int64) { m.ViewsMaps += v },
	"BUSINESS_IMPRESSIONS_DESKTOP_SEARCH": func(m *models.LocationMetric, v int64) { m.ViewsSearch += v },
	"BUSINESS_IMPRESSIONS_MOBILE_SEARCH":  func(m *models.LocationMetric, v int64) { m.ViewsSearch += v },
	"WEBSITE_CLICKS":                      func(m *models.LocationMetric, v int64) { m.WebsiteClicks += v },
	"CALL_CLICKS":                         func(m *models.LocationMetric, v int64) { m.CallClicks += v },
	"BUSINESS_DIRECTION_REQUESTS":         func(m *models.LocationMetric, v int64) { m.DirectionRequests += v },
	"BUSINESS_CONVERSATIONS":              func(m *models.LocationMetric, v int64) { m.Conversations += v },
	"BUSINESS_BOOKINGS":                   func(m *models.LocationMetric, v int64) { m.Bookings += v },
}

// GoogleMetrics flattens the multi-metric time series into one row per
// calendar day. The bucket key is the vendor's year/month/day triple taken
// verbatim; unknown metric names are skipped with a debug log, absent values
// count as zero.
func GoogleMetrics(payload *googleclient.MultiDailyMetricsResponse, locationID string, syncedAt time.Time, logger *zap.Logger) []models.LocationMetric {
	if payload == nil {
		return nil
	}
	byDate := map[string]*models.LocationMetric{}
	for _, multi := range payload.MultiDailyMetricTimeSeries {
		for _, series := range multi.DailyMetricTimeSeries {
			apply, ok := metricColumns[series.DailyMetric]
			if !ok {
				if logger != nil {
					logger.Debug("skipping unrecognized daily metric",
						zap.String("metric", series.DailyMetric),
						zap.String("location_id", locationID),
					)
				}
				continue
			}
			for _, dv := range series.TimeSeries.DatedValues {
				key := DateKey(dv.Date)
				if key == "" {
					continue
				}
				row, ok := byDate[key]
				if !ok {
					row = &models.LocationMetric{
						LocationID: locationID,
						BucketDate: key,
						SyncedAt:   syncedAt,
					}
					byDate[key] = row
				}
				apply(row, parseCount(dv.Value))
			}
		}
	}

	out := make([]models.LocationMetric, 0, len(byDate))
	for _, row := range byDate {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketDate < out[j].BucketDate })
	return out
}

// DateKey renders the vendor date triple as the canonical bucket key. No
// timezone math: the triple already is the calendar date.
func DateKey(d googleclient.Date) string {
	if d.Year == 0 || d.Month == 0 || d.Day == 0 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// StarRating maps the five-level word scale onto 1..5. Anything it does not
// recognize becomes 0 so downstream aggregation can treat every rating as a
// number.
func StarRating(s string) int {
	switch s {
	case "ONE":
		return 1
	case "TWO":
		return 2
	case "THREE":
		return 3
	case "FOUR":
		return 4
	case "FIVE":
		return 5
	default:
		return 0
	}
}

// GoogleReviews maps vendor reviews onto canonical rows. Reviews are edited
// and replied to after creation, so all fields come from the latest fetch.
func GoogleReviews(reviews []googleclient.Review, locationID string, syncedAt time.Time) []models.Review {
	out := make([]models.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.ReviewID == "" {
			continue
		}
		row := models.Review{
			ReviewID:   r.ReviewID,
			LocationID: locationID,
			Reviewer:   r.Reviewer.DisplayName,
			Rating:     StarRating(r.StarRating),
			Comment:    r.Comment,
			CreateTime: parseTimePtr(r.CreateTime),
			UpdateTime: parseTimePtr(r.UpdateTime),
			RawJSON:    mustJSON(r),
			SyncedAt:   syncedAt,
		}
		if r.Reply != nil {
			comment := r.Reply.Comment
			row.ReplyComment = &comment
			row.ReplyTime = parseTimePtr(r.Reply.UpdateTime)
		}
		out = append(out, row)
	}
	return out
}

func parseCount(raw string) int64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseTimePtr(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

func mustJSON(v any) datatypes.JSON {
	payload, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(payload)
}
