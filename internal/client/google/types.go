package google

// Date is the vendor's calendar-date triple. It is used verbatim as the row
// bucket key; never convert it through a timestamp and timezone.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type DatedValue struct {
	Date Date `json:"date"`
	// Value arrives as a decimal string; absent means zero.
	Value string `json:"value,omitempty"`
}

type TimeSeries struct {
	DatedValues []DatedValue `json:"datedValues"`
}

type DailyMetricTimeSeries struct {
	DailyMetric string     `json:"dailyMetric"`
	TimeSeries  TimeSeries `json:"timeSeries"`
}

type MultiDailyMetricTimeSeries struct {
	DailyMetricTimeSeries []DailyMetricTimeSeries `json:"dailyMetricTimeSeries"`
}

type MultiDailyMetricsResponse struct {
	MultiDailyMetricTimeSeries []MultiDailyMetricTimeSeries `json:"multiDailyMetricTimeSeries"`
}

type Reviewer struct {
	DisplayName string `json:"displayName"`
}

type ReviewReply struct {
	Comment    string `json:"comment"`
	UpdateTime string `json:"updateTime"`
}

type Review struct {
	ReviewID   string       `json:"reviewId"`
	Reviewer   Reviewer     `json:"reviewer"`
	StarRating string       `json:"starRating"`
	Comment    string       `json:"comment"`
	CreateTime string       `json:"createTime"`
	UpdateTime string       `json:"updateTime"`
	Reply      *ReviewReply `json:"reviewReply,omitempty"`
}

type ReviewsResponse struct {
	Reviews          []Review `json:"reviews"`
	NextPageToken    string   `json:"nextPageToken"`
	TotalReviewCount int      `json:"totalReviewCount"`
}
