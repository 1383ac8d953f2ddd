// Package listings provides the client for the external property listing
// search API. It is a collaborator: raw records in, mapped FSBO leads out.
package listings

// ListingAgent holds the owner/agent contact block of a property record.
// The upstream API uses "N/A" rather than empty strings for unknown values.
type ListingAgent struct {
	Name       string `json:"name"`
	BrokerName string `json:"brokerName"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// Property is one mapped property record returned by the search API.
type Property struct {
	ID           string       `json:"id"`
	Address      string       `json:"address"`
	City         string       `json:"city"`
	State        string       `json:"state"`
	ZipCode      string       `json:"zipCode"`
	County       string       `json:"county"`
	Price        float64      `json:"price"`
	Beds         float64      `json:"beds"`
	Baths        float64      `json:"baths"`
	Sqft         float64      `json:"sqft"`
	ImageURL     string       `json:"imageUrl"`
	PropertyType string       `json:"propertyType"`
	YearBuilt    *int         `json:"yearBuilt"`
	ZillowLink   string       `json:"zillowLink"`
	Description  string       `json:"description,omitempty"`
	ListingAgent ListingAgent `json:"listingAgent"`
}

// SearchParams is the persisted filter set of a scheduled search. The JSON
// shape matches the search_params column contract.
type SearchParams struct {
	Location     string   `json:"location"`
	State        string   `json:"state"`
	PropertyType string   `json:"propertyType,omitempty"`
	HomeType     []string `json:"homeType,omitempty"`
	MinPrice     string   `json:"minPrice,omitempty"`
	MaxPrice     string   `json:"maxPrice,omitempty"`
	Beds         string   `json:"beds,omitempty"`
	Baths        string   `json:"baths,omitempty"`
	MinSqft      string   `json:"minSqft,omitempty"`
	MaxSqft      string   `json:"maxSqft,omitempty"`
	MinYear      string   `json:"minYear,omitempty"`
	MaxYear      string   `json:"maxYear,omitempty"`
	ListingType  string   `json:"listingType,omitempty"`
}

// propertyTypeFlags maps UI property type names to the API's boolean flags.
var propertyTypeFlags = map[string]string{
	"Houses":       "isSingleFamily",
	"Apartments":   "isApartment",
	"Condos":       "isCondo",
	"Townhomes":    "isTownhouse",
	"Manufactured": "isManufactured",
	"Lots/Land":    "isLotLand",
	"Multi-family": "isMultiFamily",
}
