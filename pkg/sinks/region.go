package sinks

import "strings"

// Region is a geography bucket for active contractors.
type Region string

const (
	RegionPhoenixMetro    Region = "phoenix-metro"
	RegionTucsonMetro     Region = "tucson-metro"
	RegionNorthernArizona Region = "northern-arizona"
	RegionOther           Region = "other"
	RegionUnknown         Region = "unknown"
)

// Regions lists every region in classification order.
var Regions = []Region{
	RegionPhoenixMetro,
	RegionTucsonMetro,
	RegionNorthernArizona,
	RegionOther,
	RegionUnknown,
}

// regionCities are matched as substrings of the lower-cased city, in order.
var regionCities = []struct {
	region Region
	cities []string
}{
	{RegionPhoenixMetro, []string{
		"phoenix", "mesa", "chandler", "scottsdale", "glendale", "gilbert",
		"tempe", "peoria", "surprise", "goodyear", "avondale", "buckeye",
		"queen creek", "fountain hills", "cave creek", "paradise valley",
		"litchfield park", "tolleson", "el mirage", "apache junction",
		"sun city", "anthem", "laveen",
	}},
	{RegionTucsonMetro, []string{
		"tucson", "oro valley", "marana", "sahuarita", "vail",
		"green valley", "catalina",
	}},
	{RegionNorthernArizona, []string{
		"flagstaff", "prescott", "sedona", "cottonwood", "camp verde",
		"chino valley", "williams", "page", "winslow",
	}},
}

// ClassifyRegion maps a city to its region. An empty city is unknown; a
// city on no list is other.
func ClassifyRegion(city string) Region {
	c := strings.ToLower(strings.TrimSpace(city))
	if c == "" {
		return RegionUnknown
	}

	for _, rc := range regionCities {
		for _, name := range rc.cities {
			if strings.Contains(c, name) {
				return rc.region
			}
		}
	}
	return RegionOther
}
