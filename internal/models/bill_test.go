package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillDecodesAPIPayload(t *testing.T) {
	payload := `{
		"id": 7,
		"description": null,
		"total_amount": 50.0,
		"tax": 4.5,
		"tip": 6,
		"tip_split_evenly": 1,
		"created_at": "2025-03-01T18:30:00.123456",
		"creator": {"id": 2, "name": "Alice"}
	}`

	var bill Bill
	require.NoError(t, json.Unmarshal([]byte(payload), &bill))

	assert.Equal(t, int64(7), bill.ID)
	assert.Equal(t, "", bill.Description)
	assert.Equal(t, 50.0, bill.TotalAmount)
	assert.True(t, bool(bill.TipSplitEvenly))
	assert.Equal(t, int64(2), bill.CreatorID())
	assert.Equal(t, "Alice", bill.CreatorName())
	assert.Equal(t, time.Date(2025, 3, 1, 18, 30, 0, 123456000, time.UTC), bill.CreatedAt.Time)
}

func TestBillWithoutCreator(t *testing.T) {
	var bill Bill
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "total_amount": 10}`), &bill))

	assert.Zero(t, bill.CreatorID())
	assert.Empty(t, bill.CreatorName())
	assert.True(t, bill.CreatedAt.IsZero())
}

func TestFlagUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"false", false, false},
		{"1", true, false},
		{"0", false, false},
		{"null", false, false},
		{"2", true, false},
		{`"yes"`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f Flag
			err := json.Unmarshal([]byte(tt.in), &f)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, bool(f))
		})
	}
}

func TestTimestampLayouts(t *testing.T) {
	want := time.Date(2025, 3, 1, 18, 30, 0, 0, time.UTC)
	for _, in := range []string{
		`"2025-03-01T18:30:00Z"`,
		`"2025-03-01T19:30:00+01:00"`,
		`"2025-03-01T18:30:00"`,
		`"2025-03-01 18:30:00"`,
	} {
		t.Run(in, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(in), &ts))
			assert.True(t, want.Equal(ts.Time), "got %v", ts.Time)
		})
	}

	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestShareAllocationEncodesUserIDKeys(t *testing.T) {
	data, err := json.Marshal(ShareAllocation{Shares: map[int64]float64{1: 30, 2: 20}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"shares": {"1": 30, "2": 20}}`, string(data))
}
