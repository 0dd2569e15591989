package converters

import (
	"math"
	"testing"

	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dmsDelta = 1e-9

func TestParseLatitude(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"45", 45},
		{"-33.8688", -33.8688},
		{"+12.5", 12.5},
		{"90", 90},
		{"90.000", 90},
		{"0.12345678901234567890", 0.12345678901234567890},
		{"40°26′46″N", 40 + 26.0/60 + 46.0/3600},
		{"40:26:46S", -(40 + 26.0/60 + 46.0/3600)},
		{"40d 26m 47s N", 40 + 26.0/60 + 47.0/3600},
		{"40d 26m 47s", 40 + 26.0/60 + 47.0/3600},
		{"40 26 47 S", -(40 + 26.0/60 + 47.0/3600)},
		{"40 26 47.5", 40 + 26.0/60 + 47.5/3600},
		{"-40 26 47", -(40 + 26.0/60 + 47.0/3600)},
		{"-40 26 47 N", 40 + 26.0/60 + 47.0/3600},
		{"  51°28'38\"N  ", 51 + 28.0/60 + 38.0/3600},
	}

	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParseLatitude(c.in)
			require.NoError(t, err)
			assert.InDelta(t, c.want, got, dmsDelta)
		})
	}
}

func TestParseLongitude(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"-122.4194", -122.4194},
		{"180", 180},
		{"079d 58′ 36″ W", -(79 + 58.0/60 + 36.0/3600)},
		{"179 59 59.9E", 179 + 59.0/60 + 59.9/3600},
		{"7°05'03.00\"E", 7 + 5.0/60 + 3.0/3600},
		{"0 00 00 W", 0},
	}

	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParseLongitude(c.in)
			require.NoError(t, err)
			assert.InDelta(t, c.want, got, dmsDelta)
		})
	}
}

func TestParseRejectsInvalidInput(t *testing.T) {
	latitudes := []string{"", "abc", "91", "-90.5", "90 30 00", "91 00 00 N", "45 60 00", "45 00 00 E", "4512",
		"1.123456789012345678901"}
	for _, in := range latitudes {
		got, err := ParseLatitude(in)
		assert.True(t, math.IsNaN(got), "latitude %q", in)
		assert.True(t, errs.Is(err, errs.Parse), "latitude %q", in)
	}

	longitudes := []string{"181", "180.5", "180 00 01", "12 00 00 N", "east"}
	for _, in := range longitudes {
		got, err := ParseLongitude(in)
		assert.True(t, math.IsNaN(got), "longitude %q", in)
		assert.True(t, errs.Is(err, errs.Parse), "longitude %q", in)
	}
}

func TestHemisphereSign(t *testing.T) {
	for _, in := range []string{"12 30 00 S", "12 30 00 s", "0 30 00S"} {
		got, err := ParseLatitude(in)
		require.NoError(t, err)
		assert.Less(t, got, 0.0, in)
	}
	for _, in := range []string{"12 30 00 W", "12 30 00w"} {
		got, err := ParseLongitude(in)
		require.NoError(t, err)
		assert.Less(t, got, 0.0, in)
	}
	for _, in := range []string{"12 30 00 N", "12 30 00", "12 30 00 n"} {
		got, err := ParseLatitude(in)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, 0.0, in)
	}
	for _, in := range []string{"12 30 00 E", "12 30 00"} {
		got, err := ParseLongitude(in)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, 0.0, in)
	}
}

func TestFormatDMSRoundTrip(t *testing.T) {
	cases := []struct {
		value      float64
		isLatitude bool
		want       string
	}{
		{40.446111, true, "40°26'46.00\"N"},
		{-33.8688, true, "33°52'07.68\"S"},
		{-122.4194, false, "122°25'09.84\"W"},
		{7.084167, false, "7°05'03.00\"E"},
	}

	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			text := FormatDMS(c.value, c.isLatitude)
			assert.Equal(t, c.want, text)

			parse := ParseLongitude
			if c.isLatitude {
				parse = ParseLatitude
			}
			back, err := parse(text)
			require.NoError(t, err)
			assert.InDelta(t, c.value, back, 1e-5)
		})
	}
}
