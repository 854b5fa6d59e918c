package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeValues struct {
	cleared []string
	updated string
	values  [][]any
	err     error
}

func (f *fakeValues) Clear(_ context.Context, _, rng string) error {
	f.cleared = append(f.cleared, rng)
	return f.err
}

func (f *fakeValues) Update(_ context.Context, _, rng string, values [][]any) error {
	f.updated, f.values = rng, values
	return f.err
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{CredentialsJSON: "{}"})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	ctx := context.Background()
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := loadCredentials(ctx, Options{}); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}

	b, err := loadCredentials(ctx, Options{CredentialsJSON: ` {"type":"service_account"} `})
	if err != nil || string(b) != `{"type":"service_account"}` {
		t.Fatalf("inline = %q, %v", b, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	b, err = loadCredentials(ctx, Options{})
	if err != nil || string(b) != `{"from":"file"}` {
		t.Fatalf("fallback file = %q, %v", b, err)
	}

	if _, err := loadCredentials(ctx, Options{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPublish(t *testing.T) {
	fake := &fakeValues{}
	c := &Client{values: fake, spreadsheetID: "sheet-id"}

	rows := [][]string{
		{"Date", "Description", "Amount"},
		{"2025-01-01", "Coffee", "-3.50"},
		{},
		{"Year", "Month"},
	}
	ref, err := c.Publish(context.Background(), "Export 2025", rows)
	if err != nil {
		t.Fatal(err)
	}
	if ref != "'Export 2025'!A1:C4" || fake.updated != ref {
		t.Fatalf("range = %q, updated = %q", ref, fake.updated)
	}
	if len(fake.cleared) != 1 || fake.cleared[0] != "'Export 2025'" {
		t.Fatalf("cleared = %v", fake.cleared)
	}
	if len(fake.values) != 4 || fake.values[1][1] != "Coffee" || len(fake.values[2]) != 0 {
		t.Fatalf("values = %v", fake.values)
	}
}

func TestPublishErrors(t *testing.T) {
	if _, err := (&Client{}).Publish(context.Background(), "x", nil); err == nil {
		t.Fatal("expected error for uninitialized client")
	}

	fake := &fakeValues{err: errors.New("quota exceeded")}
	c := &Client{values: fake, spreadsheetID: "id"}
	_, err := c.Publish(context.Background(), "", [][]string{{"a"}})
	if err == nil || !strings.Contains(err.Error(), "clear sheet "+DefaultSheetName) {
		t.Fatalf("err = %v", err)
	}
}

func TestColumnName(t *testing.T) {
	tests := map[int]string{0: "A", 1: "A", 7: "G", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"}
	for in, want := range tests {
		if got := columnName(in); got != want {
			t.Errorf("columnName(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := map[string]string{
		"Export":      "Export",
		"My Export":   "'My Export'",
		"Bob's sheet": "'Bob''s sheet'",
	}
	for in, want := range tests {
		if got := quoteSheet(in); got != want {
			t.Errorf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}
