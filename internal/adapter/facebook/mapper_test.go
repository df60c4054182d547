package facebook

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fouadsmari/DIA360-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var syncedAt = time.Date(2025, 7, 4, 10, 0, 0, 0, time.UTC)

func TestNormalizeAccountID(t *testing.T) {
	assert.Equal(t, "act_42", NormalizeAccountID("42"))
	assert.Equal(t, "act_42", NormalizeAccountID(" act_42 "))
	assert.Equal(t, "", NormalizeAccountID("  "))
}

func TestMapRowParsesStringsAndDerivesRates(t *testing.T) {
	var row model.InsightRow
	require.NoError(t, json.Unmarshal([]byte(`{
		"ad_id": "9", "campaign_id": "3", "date_start": "2025-07-01", "date_stop": "2025-07-01",
		"spend": "20", "impressions": 4000, "clicks": "40", "reach": "3000",
		"actions": [{"action_type":"link_click","value":"40"}]
	}`), &row))

	m, err := MapRow(row, "act_1", "2025-07-01", model.LevelAd, syncedAt)
	require.NoError(t, err)
	assert.Equal(t, "act_1", m.AccountID)
	assert.Equal(t, 20.0, m.Spend)
	assert.Equal(t, int64(4000), m.Impressions)
	assert.Equal(t, int64(40), m.Clicks)
	assert.Equal(t, int64(3000), m.Reach)
	assert.InDelta(t, 1.0, m.CTR, 1e-9)
	assert.InDelta(t, 0.5, m.CPC, 1e-9)
	assert.InDelta(t, 5.0, m.CPM, 1e-9)
	assert.JSONEq(t, `[{"action_type":"link_click","value":"40"}]`, string(m.Actions))
	assert.Nil(t, m.ActionValues)
	assert.Equal(t, syncedAt, m.SyncedAt)
}

func TestMapRowFallsBackToRequestedDay(t *testing.T) {
	m, err := MapRow(model.InsightRow{AdID: "1"}, "act_1", "2025-07-03", "", syncedAt)
	require.NoError(t, err)
	assert.Equal(t, "2025-07-03", m.DateStart)
	assert.Equal(t, "2025-07-03", m.DateStop)
	assert.Equal(t, model.LevelAd, m.Level)
	assert.Zero(t, m.CTR)
	assert.Zero(t, m.CPC)
	assert.Zero(t, m.CPM)
}

func TestMapRowRejectsInvalidValues(t *testing.T) {
	cases := map[string]model.InsightRow{
		"negative spend":       {AdID: "1", Spend: "-1"},
		"negative impressions": {AdID: "1", Impressions: "-5"},
		"negative clicks":      {AdID: "1", Clicks: "-2"},
		"non numeric spend":    {AdID: "1", Spend: "abc"},
		"nan spend":            {AdID: "1", Spend: "NaN"},
		"fractional clicks":    {AdID: "1", Clicks: "1.5"},
		"bad date":             {AdID: "1", DateStart: "07/01/2025"},
		"missing ad id":        {Spend: "1"},
		"undecodable":          {AdID: "1", DecodeErr: errors.New("json: cannot unmarshal number")},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := MapRow(row, "act_1", "2025-07-01", model.LevelAd, syncedAt)
			var mapErr *MappingError
			assert.True(t, errors.As(err, &mapErr), "got %v", err)
		})
	}
}

func TestMapRowsSkipsAndDeduplicates(t *testing.T) {
	rows := []model.InsightRow{
		{AdID: "1", DateStart: "2025-07-01", Spend: "1"},
		{AdID: "2", DateStart: "2025-07-01", Spend: "-3"},
		{AdID: "1", DateStart: "2025-07-01", Spend: "4"},
		{AdID: "1", DateStart: "2025-07-01", Age: "18-24", Spend: "2"},
	}
	metrics, skipped := MapRows(rows, "act_1", "2025-07-01", model.LevelAd, syncedAt)
	require.Len(t, metrics, 2)
	require.Len(t, skipped, 1)
	assert.Equal(t, 4.0, metrics[0].Spend, "later duplicate replaces earlier one")
	assert.Equal(t, "18-24", metrics[1].Age)
}

func TestMapRowsKeepsEveryEntityAtEachLevel(t *testing.T) {
	cases := []struct {
		level model.InsightsLevel
		rows  []model.InsightRow
	}{
		{model.LevelCampaign, []model.InsightRow{
			{CampaignID: "c1", Spend: "1"},
			{CampaignID: "c2", Spend: "2"},
		}},
		{model.LevelAdset, []model.InsightRow{
			{CampaignID: "c1", AdsetID: "s1", Spend: "1"},
			{CampaignID: "c1", AdsetID: "s2", Spend: "2"},
		}},
		{model.LevelAd, []model.InsightRow{
			{CampaignID: "c1", AdsetID: "s1", AdID: "a1", Spend: "1"},
			{CampaignID: "c1", AdsetID: "s1", AdID: "a2", Spend: "2"},
		}},
	}
	for _, tc := range cases {
		t.Run(string(tc.level), func(t *testing.T) {
			metrics, skipped := MapRows(tc.rows, "act_1", "2025-07-01", tc.level, syncedAt)
			assert.Empty(t, skipped)
			require.Len(t, metrics, 2)
			assert.Equal(t, 3.0, metrics[0].Spend+metrics[1].Spend)
			assert.Equal(t, tc.level, metrics[0].Level)
		})
	}
}

func TestMapRowsSkipsRowsWithoutEntity(t *testing.T) {
	rows := []model.InsightRow{
		{CampaignID: "c1", Spend: "1"},
		{},
		{AdID: "9", Spend: "4"},
	}
	metrics, skipped := MapRows(rows, "act_1", "2025-07-01", model.LevelCampaign, syncedAt)
	require.Len(t, metrics, 1)
	assert.Equal(t, "c1", metrics[0].CampaignID)
	require.Len(t, skipped, 2)
	var mapErr *MappingError
	require.True(t, errors.As(skipped[0], &mapErr))
	assert.Equal(t, "campaign_id", mapErr.Field)

	// account rows are named by the account
	metrics, skipped = MapRows([]model.InsightRow{{Spend: "5"}}, "act_1", "2025-07-01", model.LevelAccount, syncedAt)
	assert.Empty(t, skipped)
	require.Len(t, metrics, 1)
	assert.Equal(t, model.LevelAccount, metrics[0].Level)
}

func TestRateHelpersGuardZeroDenominators(t *testing.T) {
	for _, v := range []float64{CTR(10, 0), CPC(10, 0), CPM(10, 0)} {
		assert.Zero(t, v)
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
	assert.InDelta(t, 2.0, CTR(2, 100), 1e-9)
	assert.InDelta(t, 5.0, CPC(10, 2), 1e-9)
	assert.InDelta(t, 100.0, CPM(10, 100), 1e-9)
}
