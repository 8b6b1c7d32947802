package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeZIP(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"10001", "10001", true},
		{" 10001 ", "10001", true},
		{"10001.0", "10001", true},
		{"02134", "2134", true},
		{"", "", false},
		{"ABCDE", "", false},
		{"10001-1234", "", false},
		{"NaN", "", false},
	}
	for _, tc := range cases {
		zip, ok := NormalizeZIP(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		if tc.ok {
			assert.Equal(t, tc.want, zip.String(), tc.raw)
		}
	}
}

func TestZIPKeysNeverDefaultsToZero(t *testing.T) {
	keys, ok := ZIPKeys([]string{"10001", "bad", "0", "inf"})
	assert.Equal(t, []bool{true, false, true, false}, ok)
	assert.Equal(t, "10001", keys[0])
	assert.Equal(t, "", keys[1])
	assert.Equal(t, "0", keys[2])
}

func TestDates(t *testing.T) {
	assert.True(t, ValidDate("20230701"))
	assert.False(t, ValidDate("2023-07-01"))
	assert.False(t, ValidDate("../../x"))
	assert.True(t, MatchDate(" 20230701", "20230701"))
	assert.False(t, MatchDate("20230702", "20230701"))
}

func TestParseNumber(t *testing.T) {
	v, ok := ParseNumber("70")
	assert.True(t, ok)
	assert.Equal(t, 70.0, v)
	_, ok = ParseNumber("seventy")
	assert.False(t, ok)
}
