package extraction

import (
	"testing"

	"cloud.google.com/go/civil"
)

func fixedNowDate() civil.Date {
	return civil.DateOf(fixedNow())
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain array", `[{"a":1}]`, `[{"a":1}]`},
		{"fenced json", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"fenced object", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around object", `Berikut hasilnya: {"a":1} semoga membantu`, `{"a":1}`},
		{"prose around array", `Hasil: [1,2] .`, `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.raw); got != tt.want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeResponse_Shapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantShape ResponseShape
		wantLen   int
	}{
		{"sequence", `[{"merchant":"a"},{"merchant":"b"}]`, ShapeSequence, 2},
		{"transactions key", `{"transactions":[{"merchant":"a"}]}`, ShapeTransactions, 1},
		{"data key", `{"data":[{"merchant":"a"},{"merchant":"b"}]}`, ShapeData, 2},
		{"single", `{"merchant":"a","total_amount":5}`, ShapeSingle, 1},
		{"non-object elements skipped", `[{"merchant":"a"}, 3, "x"]`, ShapeSequence, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, shape, err := decodeResponse(tt.raw)
			if err != nil {
				t.Fatalf("decodeResponse() error = %v", err)
			}
			if shape != tt.wantShape {
				t.Errorf("shape = %s, want %s", shape, tt.wantShape)
			}
			if len(records) != tt.wantLen {
				t.Errorf("got %d records, want %d", len(records), tt.wantLen)
			}
		})
	}
}

func TestDecodeResponse_RejectsScalars(t *testing.T) {
	if _, _, err := decodeResponse(`42`); err == nil {
		t.Error("expected error for scalar response")
	}
}

func TestCandidateFromRecord_LenientFields(t *testing.T) {
	records, _, err := decodeResponse(`{"merchant":"  Gaji ","total_amount":"Rp 5000000","type":"income","source_wallet":"null","destination_wallet":"BCA"}`)
	if err != nil {
		t.Fatalf("decodeResponse() error = %v", err)
	}
	c := candidateFromRecord(records[0])

	if c.Merchant != "Gaji" {
		t.Errorf("Merchant = %q, want trimmed", c.Merchant)
	}
	if c.TotalAmount == nil || c.TotalAmount.String() != "5000000" {
		t.Errorf("TotalAmount = %v, want 5000000", c.TotalAmount)
	}
	if c.SourceWalletHint != "" {
		t.Errorf("SourceWalletHint = %q, want empty", c.SourceWalletHint)
	}
	if c.DestinationWalletHint != "BCA" {
		t.Errorf("DestinationWalletHint = %q, want BCA", c.DestinationWalletHint)
	}
}

func TestCandidateFromRecord_IndonesianAmounts(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"Rp 20.000"`, "20000"},
		{`"Rp20.000"`, "20000"},
		{`"Rp. 15.500"`, "15500"},
		{`"IDR 1.250.000,50"`, "1250000.5"},
		{`"Rp 7500"`, "7500"},
		{`"20.000"`, "20000"},
		{`"1.250.000"`, "1250000"},
		{`"12,5"`, "12.5"},
		{`"abc"`, ""},
		{`"1500.50"`, "1500.5"},
		{`"-Rp 5.000"`, "5000"},
	}
	for _, tt := range tests {
		records, _, err := decodeResponse(`{"merchant":"x","total_amount":` + tt.raw + `}`)
		if err != nil {
			t.Fatalf("decodeResponse(%s) error = %v", tt.raw, err)
		}
		got := candidateFromRecord(records[0]).TotalAmount
		if tt.want == "" {
			if got != nil {
				t.Errorf("amount %s = %v, want nil", tt.raw, got)
			}
			continue
		}
		if got == nil || got.String() != tt.want {
			t.Errorf("amount %s = %v, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestCandidateFromRecord_NegativeAndMissingAmount(t *testing.T) {
	records, _, _ := decodeResponse(`[{"total_amount":-1500.50},{"merchant":"x"},{"total_amount":"abc"}]`)

	if got := candidateFromRecord(records[0]).TotalAmount; got == nil || got.String() != "1500.5" {
		t.Errorf("negative amount = %v, want 1500.5", got)
	}
	if got := candidateFromRecord(records[1]).TotalAmount; got != nil {
		t.Errorf("missing amount = %v, want nil", got)
	}
	if got := candidateFromRecord(records[2]).TotalAmount; got != nil {
		t.Errorf("non-numeric amount = %v, want nil", got)
	}
}
