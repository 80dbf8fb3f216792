package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Number is a numeric field that providers sometimes send as a formatted
// string ("$450,000", "1,200 sqft").
type Number float64

// UnmarshalJSON accepts numbers, numeric strings and null
func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*n = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		s = strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				return r
			}
			return -1
		}, raw)
		if s == "" {
			*n = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", string(data), err)
	}
	*n = Number(v)
	return nil
}

// PropertyRef is the listing summary shown in cards and held as the
// selected property.
type PropertyRef struct {
	ID        string   `json:"id,omitempty"`
	ZPID      string   `json:"zpid"`
	Address   string   `json:"address"`
	Price     Number   `json:"price"`
	Beds      Number   `json:"beds"`
	Baths     Number   `json:"baths"`
	Sqft      Number   `json:"sqft,omitempty"`
	Type      string   `json:"type,omitempty"`
	ImgSrc    string   `json:"imgSrc,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// PropertyAddress is the structured address of a detail record
type PropertyAddress struct {
	StreetAddress string `json:"streetAddress"`
	City          string `json:"city"`
	State         string `json:"state"`
	Zipcode       string `json:"zipcode"`
	Full          string `json:"full"`
}

// BasicInfo is the overview block of a detail record
type BasicInfo struct {
	ZPID         string          `json:"zpid"`
	Address      PropertyAddress `json:"address"`
	Price        Number          `json:"price"`
	HomeStatus   string          `json:"homeStatus,omitempty"`
	HomeType     string          `json:"homeType,omitempty"`
	Description  string          `json:"description,omitempty"`
	Bedrooms     Number          `json:"bedrooms"`
	Bathrooms    Number          `json:"bathrooms"`
	LivingArea   Number          `json:"livingArea,omitempty"`
	LotSize      Number          `json:"lotSize,omitempty"`
	YearBuilt    int             `json:"yearBuilt,omitempty"`
	DaysOnMarket int             `json:"daysOnZillow,omitempty"`
}

// TaxRecord is one year of tax history. Time is epoch milliseconds.
type TaxRecord struct {
	Time    int64  `json:"time"`
	TaxPaid Number `json:"taxPaid"`
	Value   Number `json:"value,omitempty"`
}

// Year returns the calendar year the record belongs to
func (t TaxRecord) Year() int {
	return time.UnixMilli(t.Time).UTC().Year()
}

// PriceEvent is one entry of the price history
type PriceEvent struct {
	Date  string `json:"date"`
	Event string `json:"event"`
	Price Number `json:"price"`
}

// School is a nearby school from the detail record
type School struct {
	Name     string  `json:"name"`
	Rating   Number  `json:"rating,omitempty"`
	Distance float64 `json:"distance,omitempty"`
	Level    string  `json:"level,omitempty"`
	Grades   string  `json:"grades,omitempty"`
}

// PropertyDetails is the full record behind a property chat
type PropertyDetails struct {
	BasicInfo    BasicInfo     `json:"basic_info"`
	Images       []string      `json:"images,omitempty"`
	Features     JSONMap       `json:"features,omitempty"`
	Taxes        []TaxRecord   `json:"taxes"`
	Schools      []School      `json:"schools"`
	NearbyHomes  []PropertyRef `json:"nearbyHomes,omitempty"`
	PriceHistory []PriceEvent  `json:"priceHistory"`
	Similar      []PropertyRef `json:"similar,omitempty"`
}

// Ref normalizes the detail record into the summary used as the selected
// property.
func (d *PropertyDetails) Ref() *PropertyRef {
	if d == nil {
		return nil
	}
	addr := d.BasicInfo.Address.Full
	if addr == "" {
		parts := []string{}
		for _, p := range []string{d.BasicInfo.Address.StreetAddress, d.BasicInfo.Address.City} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		addr = strings.Join(parts, ", ")
		if st := strings.TrimSpace(d.BasicInfo.Address.State + " " + d.BasicInfo.Address.Zipcode); st != "" {
			if addr != "" {
				addr += ", "
			}
			addr += st
		}
	}
	ref := &PropertyRef{
		ID:      d.BasicInfo.ZPID,
		ZPID:    d.BasicInfo.ZPID,
		Address: addr,
		Price:   d.BasicInfo.Price,
		Beds:    d.BasicInfo.Bedrooms,
		Baths:   d.BasicInfo.Bathrooms,
		Sqft:    d.BasicInfo.LivingArea,
		Type:    d.BasicInfo.HomeType,
	}
	if len(d.Images) > 0 {
		ref.ImgSrc = d.Images[0]
	}
	return ref
}

// PropertyRow is a property as stored in Postgres
type PropertyRow struct {
	ZPID         string          `db:"zpid"`
	ZipCode      string          `db:"zip_code"`
	Address      string          `db:"address"`
	City         *string         `db:"city"`
	State        *string         `db:"state"`
	Price        *float64        `db:"price"`
	Bedrooms     *float64        `db:"bedrooms"`
	Bathrooms    *float64        `db:"bathrooms"`
	LivingArea   *float64        `db:"living_area"`
	HomeType     *string         `db:"home_type"`
	HomeStatus   *string         `db:"home_status"`
	YearBuilt    *int            `db:"year_built"`
	Description  *string         `db:"description"`
	ImgSrc       *string         `db:"img_src"`
	Latitude     *float64        `db:"latitude"`
	Longitude    *float64        `db:"longitude"`
	Features     JSONMap         `db:"features"`
	Images       JSONArray       `db:"images"`
	Taxes        JSONList        `db:"tax_history"`
	PriceHistory JSONList        `db:"price_history"`
	Schools      JSONList        `db:"schools"`
	Embedding    pgvector.Vector `db:"embedding"`
	Distance     *float64        `db:"distance"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Ref converts the row into a listing summary
func (r PropertyRow) Ref() PropertyRef {
	return PropertyRef{
		ID:        r.ZPID,
		ZPID:      r.ZPID,
		Address:   r.Address,
		Price:     Number(deref(r.Price)),
		Beds:      Number(deref(r.Bedrooms)),
		Baths:     Number(deref(r.Bathrooms)),
		Sqft:      Number(deref(r.LivingArea)),
		Type:      deref(r.HomeType),
		ImgSrc:    deref(r.ImgSrc),
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}
}

// Details converts the row into a detail record. JSON columns that fail
// to decode are left empty.
func (r PropertyRow) Details() *PropertyDetails {
	d := &PropertyDetails{
		BasicInfo: BasicInfo{
			ZPID: r.ZPID,
			Address: PropertyAddress{
				StreetAddress: r.Address,
				City:          deref(r.City),
				State:         deref(r.State),
				Zipcode:       r.ZipCode,
			},
			Price:       Number(deref(r.Price)),
			HomeStatus:  deref(r.HomeStatus),
			HomeType:    deref(r.HomeType),
			Description: deref(r.Description),
			Bedrooms:    Number(deref(r.Bedrooms)),
			Bathrooms:   Number(deref(r.Bathrooms)),
			LivingArea:  Number(deref(r.LivingArea)),
			YearBuilt:   deref(r.YearBuilt),
		},
		Images:   []string(r.Images),
		Features: r.Features,
	}
	d.BasicInfo.Address.Full = d.Ref().Address
	_ = r.Taxes.Decode(&d.Taxes)
	_ = r.PriceHistory.Decode(&d.PriceHistory)
	_ = r.Schools.Decode(&d.Schools)
	return d
}

// JSONArray represents a JSON array of strings column
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	return scanJSON(value, j)
}

// JSONMap represents a JSON object column
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	return scanJSON(value, j)
}

// JSONList is a raw JSON array column decoded lazily into a typed slice
type JSONList json.RawMessage

// Scan implements sql.Scanner interface
func (j *JSONList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = JSONList(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
	return nil
}

// Decode unmarshals the column into target; an empty column is a no-op
func (j JSONList) Decode(target interface{}) error {
	if len(j) == 0 {
		return nil
	}
	return json.Unmarshal(j, target)
}

func scanJSON(value interface{}, target interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, target)
	case string:
		return json.Unmarshal([]byte(v), target)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "null":
		*f = ""
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexString(v)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid id %s: %w", s, err)
		}
		*f = flexString(n.String())
	}
	return nil
}

// UnmarshalJSON accepts a numeric zpid
func (p *PropertyRef) UnmarshalJSON(data []byte) error {
	type alias PropertyRef
	aux := struct {
		*alias
		ZPID flexString `json:"zpid"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.ZPID = string(aux.ZPID)
	return nil
}

// UnmarshalJSON accepts a numeric zpid
func (b *BasicInfo) UnmarshalJSON(data []byte) error {
	type alias BasicInfo
	aux := struct {
		*alias
		ZPID flexString `json:"zpid"`
	}{alias: (*alias)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.ZPID = string(aux.ZPID)
	return nil
}
