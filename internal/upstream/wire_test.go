package upstream

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var payload struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":"x-2","c":null}`), &payload))
	assert.Equal(t, ID("1"), payload.A)
	assert.Equal(t, ID("x-2"), payload.B)
	assert.Equal(t, ID(""), payload.C)
}

func TestFloatAcceptsNumbersAndStrings(t *testing.T) {
	var payload struct {
		A Float `json:"a"`
		B Float `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":50.01,"b":"65,00"}`), &payload))
	assert.InDelta(t, 50.01, float64(payload.A), 1e-9)
	assert.InDelta(t, 65.0, float64(payload.B), 1e-9)
}

func TestParseTime(t *testing.T) {
	sp := time.FixedZone("BRT", -3*60*60)

	got, err := ParseTime("2024-04-19T13:00:00.000Z", time.UTC, sp)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-19T10:00:00-03:00", got.Format(time.RFC3339))

	got, err = ParseTime("2024-04-19 13:00:00", time.UTC, sp)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-19T10:00:00-03:00", got.Format(time.RFC3339))

	got, err = ParseTime("2023-02-17 15:00:00", sp, sp)
	require.NoError(t, err)
	assert.Equal(t, "2023-02-17T15:00:00-03:00", got.Format(time.RFC3339))

	_, err = ParseTime("17/02/2023", time.UTC, time.UTC)
	assert.Error(t, err)
}

func TestFormatISO(t *testing.T) {
	end := time.Date(2024, 4, 19, 23, 59, 59, 999999000, time.UTC)
	assert.Equal(t, "2024-04-19T23:59:59.999999Z", FormatISO(end))
}
