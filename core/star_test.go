package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckEncodedStoryBound(t *testing.T) {
	assert.NoError(t, CheckEncodedStory(strings.Repeat("a", 500)))
	assert.ErrorIs(t, CheckEncodedStory(strings.Repeat("a", 501)), ErrStoryTooLong)
}

func TestNormalizeStoryLength(t *testing.T) {
	ok := Submission{Address: "A", Star: &Star{RA: "1h", Dec: "1h", Story: strings.Repeat("x", 250)}}
	got, err := ok.Normalize()
	require.NoError(t, err)
	assert.Len(t, got.Star.Story, 500)

	long := Submission{Address: "A", Star: &Star{RA: "1h", Dec: "1h", Story: strings.Repeat("x", 251)}}
	_, err = long.Normalize()
	assert.ErrorIs(t, err, ErrStoryTooLong)
}

func TestNormalizeKeepsInputUntouched(t *testing.T) {
	mag := decimal.RequireFromString("4.83")
	star := &Star{RA: "16h 29m 1.0s", Dec: "-26° 29' 24.9", Magnitude: &mag, Constellation: "Scorpius", Story: "Found star"}
	got, err := Submission{Address: "A", Star: star}.Normalize()
	require.NoError(t, err)

	assert.Equal(t, "Found star", star.Story)
	assert.Equal(t, EncodeStory("Found star"), got.Star.Story)
	assert.Equal(t, "Scorpius", got.Star.Constellation)
	assert.True(t, mag.Equal(*got.Star.Magnitude))

	decoded, err := DecodeStory(got.Star.Story)
	require.NoError(t, err)
	assert.Equal(t, "Found star", decoded)
}

func TestNormalizeMissingFields(t *testing.T) {
	cases := map[string]struct {
		sub  Submission
		want error
	}{
		"address": {Submission{Star: &Star{RA: "1", Dec: "1", Story: "s"}}, ErrMissingAddress},
		"star":    {Submission{Address: "A"}, ErrMissingStar},
		"ra":      {Submission{Address: "A", Star: &Star{Dec: "1", Story: "s"}}, ErrMissingRA},
		"dec":     {Submission{Address: "A", Star: &Star{RA: "1", Story: "s"}}, ErrMissingDec},
		"story":   {Submission{Address: "A", Star: &Star{RA: "1", Dec: "1"}}, ErrMissingStory},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tc.sub.Normalize()
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, IsInputError(err))
		})
	}
}
