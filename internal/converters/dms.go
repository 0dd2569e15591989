package converters

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/shopspring/decimal"
)

var (
	latitudeDecimal  = regexp.MustCompile(`^[+-]?(?:90(?:\.0{1,20})?|[1-8]?[0-9](?:\.[0-9]{1,20})?)$`)
	longitudeDecimal = regexp.MustCompile(`^[+-]?(?:180(?:\.0{1,20})?|(?:1[0-7][0-9]|[1-9]?[0-9])(?:\.[0-9]{1,20})?)$`)

	latitudeDMS  = regexp.MustCompile(dmsPattern(`90|[0-8]?[0-9]`, `NnSs`))
	longitudeDMS = regexp.MustCompile(dmsPattern(`180|1[0-7][0-9]|0?[0-9]?[0-9]`, `EeWw`))

	sixty            = decimal.NewFromInt(60)
	secondsPerDegree = decimal.NewFromInt(3600)
)

// dmsPattern captures sign, degrees, minutes, seconds and hemisphere. A lowercase s glued to the seconds
// value is the seconds unit; after a separator it is the southern hemisphere.
func dmsPattern(degrees string, hemispheres string) string {
	return `^(-?)(` + degrees + `)[\s:°º˚d]*` +
		`([0-5][0-9])[\s:'′m]*` +
		`([0-5][0-9](?:\.[0-9]+)?)s?[\s"″']*` +
		`([` + hemispheres + `])?$`
}

// ParseLatitude accepts signed decimal degrees or degrees/minutes/seconds with an optional N/S suffix.
// On failure it returns NaN and a parse error.
func ParseLatitude(text string) (float64, error) {
	return parseAngle(text, latitudeDecimal, latitudeDMS, 90, "latitude")
}

// ParseLongitude accepts signed decimal degrees or degrees/minutes/seconds with an optional E/W suffix.
// On failure it returns NaN and a parse error.
func ParseLongitude(text string) (float64, error) {
	return parseAngle(text, longitudeDecimal, longitudeDMS, 180, "longitude")
}

func parseAngle(text string, dd, dms *regexp.Regexp, limit int64, what string) (float64, error) {
	op := "parse " + what
	s := strings.TrimSpace(text)

	if dd.MatchString(s) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), errs.Wrapf(errs.Parse, op, err, "reading %q", text)
		}
		return v, nil
	}

	m := dms.FindStringSubmatch(s)
	if m == nil {
		return math.NaN(), errs.New(errs.Parse, op, "%q is neither decimal degrees nor degrees/minutes/seconds", text)
	}

	degrees, err := decimal.NewFromString(m[2])
	if err != nil {
		return math.NaN(), errs.Wrap(errs.Parse, op, err)
	}
	minutes, err := decimal.NewFromString(m[3])
	if err != nil {
		return math.NaN(), errs.Wrap(errs.Parse, op, err)
	}
	seconds, err := decimal.NewFromString(m[4])
	if err != nil {
		return math.NaN(), errs.Wrap(errs.Parse, op, err)
	}

	value := degrees.Add(minutes.Div(sixty)).Add(seconds.Div(secondsPerDegree))
	if value.GreaterThan(decimal.NewFromInt(limit)) {
		return math.NaN(), errs.New(errs.Parse, op, "%q exceeds %d degrees", text, limit)
	}

	negative := m[1] == "-"
	if hemisphere := m[5]; hemisphere != "" {
		negative = strings.ContainsAny(hemisphere, "SsWw")
	}

	f, _ := value.Float64()
	if negative {
		f = -f
	}
	return f, nil
}

// FormatDMS renders an angle as DD°MM'SS.ss"H. The output parses back through ParseLatitude/ParseLongitude.
func FormatDMS(value float64, isLatitude bool) string {
	hemisphere := "N"
	switch {
	case isLatitude && value < 0:
		hemisphere = "S"
	case !isLatitude && value < 0:
		hemisphere = "W"
	case !isLatitude:
		hemisphere = "E"
	}

	total := decimal.NewFromFloat(math.Abs(value)).Mul(secondsPerDegree).Round(2)
	degrees := total.Div(secondsPerDegree).Floor()
	total = total.Sub(degrees.Mul(secondsPerDegree))
	minutes := total.Div(sixty).Floor()
	seconds := total.Sub(minutes.Mul(sixty))

	secondsText := seconds.StringFixed(2)
	if seconds.LessThan(decimal.NewFromInt(10)) {
		secondsText = "0" + secondsText
	}
	return fmt.Sprintf("%d°%02d'%s\"%s", degrees.IntPart(), minutes.IntPart(), secondsText, hemisphere)
}
