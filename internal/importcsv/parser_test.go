package importcsv

import (
	"strings"
	"testing"
	"time"
)

func TestResolveColumns_CaseAndSeparatorInsensitive(t *testing.T) {
	header := []string{"Lat itude", "LONGITUDE", "Time_Stamp", "sub total"}
	cols, err := ResolveColumns(header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols["latitude"] != 0 || cols["longitude"] != 1 || cols["timestamp"] != 2 || cols["subtotal"] != 3 {
		t.Fatalf("unexpected column mapping: %+v", cols)
	}
}

func TestResolveColumns_ReportsAllMissing(t *testing.T) {
	_, err := ResolveColumns([]string{"latitude"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "longitude, timestamp, subtotal") {
		t.Errorf("error does not name every missing column: %v", err)
	}
}

func TestParseRow_ValidRow(t *testing.T) {
	cols, _ := ResolveColumns([]string{"latitude", "longitude", "timestamp", "subtotal"})
	row, err := ParseRow([]string{"40.7128", "-74.0060", "2025-06-01T12:00:00Z", "100.00"}, cols, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Latitude != 40.7128 || row.Longitude != -74.0060 {
		t.Errorf("unexpected coordinates: %+v", row)
	}
}

func TestParseRow_RejectsBeforeMinDate(t *testing.T) {
	cols, _ := ResolveColumns([]string{"latitude", "longitude", "timestamp", "subtotal"})
	_, err := ParseRow([]string{"40.0", "-74.0", "2024-01-01T00:00:00Z", "10.00"}, cols, 2)
	if err == nil {
		t.Fatal("expected min-date error")
	}
}

func TestParseTimestamp_PadsFractionalSeconds(t *testing.T) {
	got, err := ParseTimestamp("2025-06-01T12:00:00.5Z")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 500000000, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseTimestamp_NoFraction(t *testing.T) {
	got, err := ParseTimestamp("2025-06-01T12:00:00+00:00")
	if err != nil {
		t.Fatal(err)
	}
	if got.Year() != 2025 || got.Month() != 6 {
		t.Errorf("unexpected parse result: %v", got)
	}
}

func TestCountRows(t *testing.T) {
	csv := "latitude,longitude,timestamp,subtotal\n40.0,-74.0,2025-06-01T00:00:00Z,10.00\n41.0,-75.0,2025-06-02T00:00:00Z,20.00\n"
	if n := CountRows([]byte(csv)); n != 2 {
		t.Errorf("CountRows = %d, want 2", n)
	}
}

func TestCountRows_InvalidUTF8ReturnsZero(t *testing.T) {
	if n := CountRows([]byte{0xff, 0xfe, 0x00}); n != 0 {
		t.Errorf("CountRows on invalid utf-8 = %d, want 0", n)
	}
}
