package date

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTime asserts that time() is canonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := New(2025, 7, 31)
	d2 := New(2025, 7, 31)

	if d1.time() != d2.time() {
		t.Errorf("invalid time() function same day gives two different time")
	}
}

func TestNewNormalizes(t *testing.T) {
	assert.Equal(t, New(2024, time.March, 1), New(2024, time.February, 30))
	assert.Equal(t, New(2024, time.January, 1), New(2023, time.December, 31).Add(1))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{name: "iso", input: "2024-01-10", want: New(2024, time.January, 10)},
		{name: "single digits", input: "2024-1-5", want: New(2024, time.January, 5)},
		{name: "garbage", input: "yesterday", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestOrdering(t *testing.T) {
	a := MustParse("2024-01-10")
	b := MustParse("2024-01-12")

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 0, a.Compare(MustParse("2024-1-10")))
	// Text form sorts the same way as the dates themselves.
	assert.Less(t, a.String(), b.String())
}

func TestScanValue(t *testing.T) {
	d := MustParse("2024-02-29")

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", v)

	var fromString, fromBytes, fromTime Date
	require.NoError(t, fromString.Scan("2024-02-29"))
	require.NoError(t, fromBytes.Scan([]byte("2024-02-29")))
	require.NoError(t, fromTime.Scan(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, d, fromString)
	assert.Equal(t, d, fromBytes)
	assert.Equal(t, d, fromTime)

	_, err = Date{}.Value()
	assert.Error(t, err)
	assert.Error(t, fromString.Scan(42))
}

func TestJSON(t *testing.T) {
	type wrapper struct {
		On Date `json:"on"`
	}

	data, err := json.Marshal(wrapper{On: MustParse("2024-01-15")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"on":"2024-01-15"}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal(data, &w))
	assert.Equal(t, MustParse("2024-01-15"), w.On)
}
