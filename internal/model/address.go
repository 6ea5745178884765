package model

// NormalizedAddress is one item of the carrier's address cleansing response
// extended with the locally computed trust flag.
type NormalizedAddress struct {
	AddressType     string `json:"address-type,omitempty"`
	Area            string `json:"area,omitempty"`
	Building        string `json:"building,omitempty"`
	Corpus          string `json:"corpus,omitempty"`
	Hotel           string `json:"hotel,omitempty"`
	House           string `json:"house,omitempty"`
	ID              string `json:"id,omitempty"`
	Index           string `json:"index,omitempty"`
	Letter          string `json:"letter,omitempty"`
	Location        string `json:"location,omitempty"`
	NumAddressType  string `json:"num-address-type,omitempty"`
	OriginalAddress string `json:"original-address,omitempty"`
	Place           string `json:"place,omitempty"`
	QualityCode     string `json:"quality-code,omitempty"`
	Region          string `json:"region,omitempty"`
	Room            string `json:"room,omitempty"`
	Slash           string `json:"slash,omitempty"`
	Street          string `json:"street,omitempty"`
	ValidationCode  string `json:"validation-code,omitempty"`

	StringifiedInput string `json:"stringified-input,omitempty"`
	IsCorrect        bool   `json:"is-correct"`
}

// DestinationComponents lists the address parts copied into a shipment as "<key>-to".
var DestinationComponents = []string{
	"address-type",
	"area",
	"building",
	"corpus",
	"hotel",
	"house",
	"index",
	"letter",
	"location",
	"num-address-type",
	"place",
	"region",
	"room",
	"slash",
	"street",
}

// Component returns the value of a destination component by its carrier key.
func (a NormalizedAddress) Component(key string) string {
	switch key {
	case "address-type":
		return a.AddressType
	case "area":
		return a.Area
	case "building":
		return a.Building
	case "corpus":
		return a.Corpus
	case "hotel":
		return a.Hotel
	case "house":
		return a.House
	case "index":
		return a.Index
	case "letter":
		return a.Letter
	case "location":
		return a.Location
	case "num-address-type":
		return a.NumAddressType
	case "place":
		return a.Place
	case "region":
		return a.Region
	case "room":
		return a.Room
	case "slash":
		return a.Slash
	case "street":
		return a.Street
	}
	return ""
}
