package facebook

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fouadsmari/DIA360-sub000/internal/model"

	"gorm.io/datatypes"
)

const dayLayout = "2006-01-02"

// NormalizeAccountID returns the act_<id> form the insights endpoint expects.
func NormalizeAccountID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "act_") {
		return id
	}
	return "act_" + id
}

// MapRow converts one insights row into a cached metric. Rows whose date range is
// missing fall back to day. Negative spend, impressions or clicks are rejected.
func MapRow(row model.InsightRow, accountID, day string, level model.InsightsLevel, syncedAt time.Time) (*model.AdsMetric, error) {
	if row.DecodeErr != nil {
		return nil, &MappingError{Field: "row", Reason: row.DecodeErr.Error()}
	}
	if level == "" {
		level = model.LevelAd
	}
	if field, id := entityID(row, level); field != "" && strings.TrimSpace(id) == "" {
		return nil, &MappingError{Field: field, Reason: "missing at " + string(level) + " level"}
	}

	dateStart := strings.TrimSpace(row.DateStart)
	if dateStart == "" {
		dateStart = day
	}
	if _, err := time.Parse(dayLayout, dateStart); err != nil {
		return nil, &MappingError{Field: "date_start", Value: dateStart, Reason: "not a YYYY-MM-DD date"}
	}
	dateStop := strings.TrimSpace(row.DateStop)
	if dateStop == "" {
		dateStop = dateStart
	}
	if _, err := time.Parse(dayLayout, dateStop); err != nil {
		return nil, &MappingError{Field: "date_stop", Value: dateStop, Reason: "not a YYYY-MM-DD date"}
	}

	spend, err := parseFloat("spend", row.Spend)
	if err != nil {
		return nil, err
	}
	impressions, err := parseCount("impressions", row.Impressions)
	if err != nil {
		return nil, err
	}
	clicks, err := parseCount("clicks", row.Clicks)
	if err != nil {
		return nil, err
	}
	if spend < 0 {
		return nil, &MappingError{Field: "spend", Value: string(row.Spend), Reason: "negative"}
	}
	if impressions < 0 {
		return nil, &MappingError{Field: "impressions", Value: string(row.Impressions), Reason: "negative"}
	}
	if clicks < 0 {
		return nil, &MappingError{Field: "clicks", Value: string(row.Clicks), Reason: "negative"}
	}
	// optional metrics: unparseable values are treated as absent
	reach, _ := parseCount("reach", row.Reach)
	frequency, _ := parseFloat("frequency", row.Frequency)
	ctr, errCTR := parseFloat("ctr", row.CTR)
	cpc, errCPC := parseFloat("cpc", row.CPC)
	cpm, errCPM := parseFloat("cpm", row.CPM)
	if row.CTR == "" || errCTR != nil {
		ctr = CTR(clicks, impressions)
	}
	if row.CPC == "" || errCPC != nil {
		cpc = CPC(spend, clicks)
	}
	if row.CPM == "" || errCPM != nil {
		cpm = CPM(spend, impressions)
	}

	return &model.AdsMetric{
		AccountID:         accountID,
		Level:             level,
		CampaignID:        row.CampaignID,
		CampaignName:      row.CampaignName,
		AdsetID:           row.AdsetID,
		AdsetName:         row.AdsetName,
		AdID:              row.AdID,
		AdName:            row.AdName,
		DateStart:         dateStart,
		DateStop:          dateStop,
		Age:               row.Age,
		Gender:            row.Gender,
		Country:           row.Country,
		PublisherPlatform: row.PublisherPlatform,
		PlatformPosition:  row.PlatformPosition,
		ImpressionDevice:  row.ImpressionDevice,
		Spend:             spend,
		Impressions:       impressions,
		Clicks:            clicks,
		Reach:             reach,
		Frequency:         frequency,
		CTR:               nonNegative(ctr),
		CPC:               nonNegative(cpc),
		CPM:               nonNegative(cpm),
		Actions:           rawJSON(row.Actions),
		ActionValues:      rawJSON(row.ActionValues),
		CostPerAction:     rawJSON(row.CostPerAction),
		SyncedAt:          syncedAt,
	}, nil
}

// MapRows maps every row, returning the valid metrics and one error per skipped row.
// Rows sharing an identity are collapsed (last one wins) so a single upsert never
// touches the same key twice.
func MapRows(rows []model.InsightRow, accountID, day string, level model.InsightsLevel, syncedAt time.Time) ([]*model.AdsMetric, []error) {
	metrics := make([]*model.AdsMetric, 0, len(rows))
	index := make(map[string]int, len(rows))
	var skipped []error
	for _, row := range rows {
		m, err := MapRow(row, accountID, day, level, syncedAt)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		key := identityKey(m)
		if i, ok := index[key]; ok {
			metrics[i] = m
			continue
		}
		index[key] = len(metrics)
		metrics = append(metrics, m)
	}
	return metrics, skipped
}

// entityID the id column that names the row's entity at level; account rows are named
// by the account itself, so field is empty.
func entityID(row model.InsightRow, level model.InsightsLevel) (field, id string) {
	switch level {
	case model.LevelAd:
		return "ad_id", row.AdID
	case model.LevelAdset:
		return "adset_id", row.AdsetID
	case model.LevelCampaign:
		return "campaign_id", row.CampaignID
	}
	return "", ""
}

// identityKey same columns as model.IdentityColumns
func identityKey(m *model.AdsMetric) string {
	return strings.Join([]string{
		m.AccountID, string(m.Level), m.CampaignID, m.AdsetID, m.AdID, m.DateStart, m.DateStop,
		m.Age, m.Gender, m.Country, m.PublisherPlatform, m.PlatformPosition, m.ImpressionDevice,
	}, "\x1f")
}

// CTR clicks per hundred impressions; 0 when there are no impressions.
func CTR(clicks, impressions int64) float64 {
	if impressions == 0 {
		return 0
	}
	return float64(clicks) / float64(impressions) * 100
}

// CPC spend per click; 0 when there are no clicks.
func CPC(spend float64, clicks int64) float64 {
	if clicks == 0 {
		return 0
	}
	return spend / float64(clicks)
}

// CPM spend per thousand impressions; 0 when there are no impressions.
func CPM(spend float64, impressions int64) float64 {
	if impressions == 0 {
		return 0
	}
	return spend / float64(impressions) * 1000
}

func parseFloat(field string, v model.FlexNumber) (float64, error) {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &MappingError{Field: field, Value: s, Reason: "not a finite number"}
	}
	return f, nil
}

func parseCount(field string, v model.FlexNumber) (int64, error) {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, &MappingError{Field: field, Value: s, Reason: "not an integer"}
	}
	return int64(f), nil
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

func rawJSON(b []byte) datatypes.JSON {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	return datatypes.JSON(b)
}
