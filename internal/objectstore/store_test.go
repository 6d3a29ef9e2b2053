package objectstore

import "testing"

func TestExtractObjectName_BucketPrefixForm(t *testing.T) {
	got := ExtractObjectName("tax-imports", "tax-imports/2025/06/rows.csv")
	if got != "2025/06/rows.csv" {
		t.Errorf("got %q", got)
	}
}

func TestExtractObjectName_FullURLForm(t *testing.T) {
	got := ExtractObjectName("tax-imports", "https://storage.example.com/tax-imports/2025/06/rows%20a.csv")
	if got != "2025/06/rows a.csv" {
		t.Errorf("got %q", got)
	}
}

func TestObjectURL_EscapesSegments(t *testing.T) {
	s := &Store{bucket: "tax-imports", baseURL: "https://storage.example.com"}
	got := s.ObjectURL("2025/06/rows a.csv")
	want := "https://storage.example.com/tax-imports/2025/06/rows%20a.csv"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
