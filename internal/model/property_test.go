package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Number
	}{
		{name: "plain", input: `450000`, want: 450000},
		{name: "formatted string", input: `"$450,000"`, want: 450000},
		{name: "sqft string", input: `"1,200 sqft"`, want: 1200},
		{name: "null", input: `null`, want: 0},
		{name: "empty string", input: `""`, want: 0},
		{name: "decimal", input: `"2.5"`, want: 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tt.input), &n))
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestPropertyDetails_Ref(t *testing.T) {
	d := &PropertyDetails{
		BasicInfo: BasicInfo{
			ZPID: "123",
			Address: PropertyAddress{
				StreetAddress: "1 Main St",
				City:          "Boston",
				State:         "MA",
				Zipcode:       "02134",
			},
			Price:     650000,
			Bedrooms:  3,
			Bathrooms: 2,
			HomeType:  "SINGLE_FAMILY",
		},
		Images: []string{"https://img/1.jpg"},
	}

	ref := d.Ref()
	require.NotNil(t, ref)
	assert.Equal(t, "123", ref.ZPID)
	assert.Equal(t, "1 Main St, Boston, MA 02134", ref.Address)
	assert.Equal(t, Number(3), ref.Beds)
	assert.Equal(t, "https://img/1.jpg", ref.ImgSrc)

	var nilDetails *PropertyDetails
	assert.Nil(t, nilDetails.Ref())
}

func TestTaxRecord_Year(t *testing.T) {
	ts := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, 2023, TaxRecord{Time: ts}.Year())
}

func TestPropertyRow_Details(t *testing.T) {
	price := 500000.0
	row := PropertyRow{
		ZPID:    "9",
		ZipCode: "02134",
		Address: "9 Elm St",
		Price:   &price,
		Taxes:   JSONList(`[{"time": 1672531200000, "taxPaid": 5100}]`),
		Schools: JSONList(`not json`),
	}
	d := row.Details()
	assert.Equal(t, "9 Elm St, 02134", d.BasicInfo.Address.Full)
	require.Len(t, d.Taxes, 1)
	assert.Equal(t, Number(5100), d.Taxes[0].TaxPaid)
	assert.Empty(t, d.Schools)
	assert.Equal(t, Number(500000), row.Ref().Price)
}

func TestPropertyRef_NumericZPID(t *testing.T) {
	var refs []PropertyRef
	require.NoError(t, json.Unmarshal([]byte(`[
		{"zpid": 2077348431, "address": "1 Main St", "price": "N/A", "beds": 3},
		{"zpid": "55", "address": "2 Main St"},
		{"zpid": null}
	]`), &refs))
	require.Len(t, refs, 3)
	assert.Equal(t, "2077348431", refs[0].ZPID)
	assert.Equal(t, "1 Main St", refs[0].Address)
	assert.Equal(t, Number(0), refs[0].Price)
	assert.Equal(t, Number(3), refs[0].Beds)
	assert.Equal(t, "55", refs[1].ZPID)
	assert.Empty(t, refs[2].ZPID)

	var d PropertyDetails
	require.NoError(t, json.Unmarshal([]byte(`{"basic_info": {"zpid": 42, "address": {"full": "42 Oak Ave"}, "yearBuilt": 1990}}`), &d))
	assert.Equal(t, "42", d.BasicInfo.ZPID)
	assert.Equal(t, "42 Oak Ave", d.BasicInfo.Address.Full)
	assert.Equal(t, 1990, d.BasicInfo.YearBuilt)
}
