package taxrate

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func rawPayload(t *testing.T, state, county, city, special float64) json.RawMessage {
	t.Helper()
	p := map[string][]RateItem{
		"state_rate":    {{Name: "NY State", Rate: decimal.NewFromFloat(state)}},
		"county_rate":   {{Name: "County", Rate: decimal.NewFromFloat(county)}},
		"city_rate":     {{Name: "City", Rate: decimal.NewFromFloat(city)}},
		"special_rates": {{Name: "MCTD", Rate: decimal.NewFromFloat(special)}},
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestCatalog_CompositeIsSumOfCategories(t *testing.T) {
	raw := map[string]json.RawMessage{
		"36061": rawPayload(t, 0.04, 0.0, 0.045, 0.00375),
	}
	cat, err := NewCatalog(raw)
	if err != nil {
		t.Fatal(err)
	}
	b, ok := cat.Lookup("36061")
	if !ok {
		t.Fatal("expected entry for 36061")
	}
	want := decimal.NewFromFloat(0.08875)
	if !b.CompositeTaxRate.Equal(want) {
		t.Errorf("composite = %s, want %s", b.CompositeTaxRate, want)
	}
}

func TestCatalog_NormalizesShortNumericCodes(t *testing.T) {
	raw := map[string]json.RawMessage{
		"61": rawPayload(t, 0.04, 0.04, 0, 0),
	}
	cat, err := NewCatalog(raw)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cat.Lookup("0061"); !ok {
		t.Fatal("expected zero-padded lookup to succeed")
	}
}

func TestCatalog_RejectsMissingCategory(t *testing.T) {
	p := map[string][]RateItem{
		"state_rate":  {{Name: "NY State", Rate: decimal.NewFromFloat(0.04)}},
		"county_rate": {{Name: "County", Rate: decimal.NewFromFloat(0.04)}},
		"city_rate":   {{Name: "City", Rate: decimal.NewFromFloat(0)}},
		// special_rates omitted
	}
	data, _ := json.Marshal(p)
	_, err := NewCatalog(map[string]json.RawMessage{"36061": data})
	if err == nil {
		t.Fatal("expected error for missing special_rates category")
	}
}

func TestCatalog_RejectsUnknownCategory(t *testing.T) {
	p := map[string][]RateItem{
		"state_rate":    {{Name: "NY State", Rate: decimal.NewFromFloat(0.04)}},
		"county_rate":   {{Name: "County", Rate: decimal.NewFromFloat(0)}},
		"city_rate":     {{Name: "City", Rate: decimal.NewFromFloat(0)}},
		"special_rates": {{Name: "MCTD", Rate: decimal.NewFromFloat(0)}},
		"bogus_rate":    {{Name: "x", Rate: decimal.NewFromFloat(0)}},
	}
	data, _ := json.Marshal(p)
	_, err := NewCatalog(map[string]json.RawMessage{"36061": data})
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestCatalog_LookupMissingCodeReturnsNotOK(t *testing.T) {
	cat, err := NewCatalog(map[string]json.RawMessage{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cat.Lookup("00000"); ok {
		t.Fatal("expected no entry for unknown code")
	}
}
