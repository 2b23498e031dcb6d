package sources

const (
	// DefaultAmountURL reports the campaign total as {"amount": n}.
	DefaultAmountURL = "https://actsvenskakyrkan.adoveo.com/getProgressbarData/40"

	// WorldMapURL is a country-level GeoJSON with ISO_A2 and name properties.
	WorldMapURL = "https://raw.githubusercontent.com/datasets/geo-countries/main/data/countries.geojson"
)
