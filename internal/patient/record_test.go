package patient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCount int
		wantErr   bool
	}{
		{name: "empty value", input: "", wantCount: 0},
		{name: "whitespace", input: "  \n", wantCount: 0},
		{name: "null", input: "null", wantCount: 0},
		{name: "empty array", input: "[]", wantCount: 0},
		{name: "two records", input: `[{"name":"Ana"},{"name":"Ben"}]`, wantCount: 2},
		{name: "object instead of array", input: `{"name":"Ana"}`, wantErr: true},
		{name: "truncated", input: `[{"name":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DecodeList([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "decode patient list")
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.wantCount)
		})
	}
}

func TestSummarize(t *testing.T) {
	rec := Record{
		"fullName":        "Ana Souza",
		"consultationFee": 1500.0,
		"medicineFee":     "250.50",
		"paidAmount":      1000.0,
		"balanceDue":      750.5,
		"feeNote":         "waived",
		"age":             42.0,
	}

	s := Summarize(rec)

	assert.Equal(t, "Ana Souza", s.Name)
	assert.Equal(t, []Fee{
		{Field: "balanceDue", Amount: 750.5},
		{Field: "consultationFee", Amount: 1500},
		{Field: "medicineFee", Amount: 250.5},
		{Field: "paidAmount", Amount: 1000},
	}, s.Fees)
}

func TestSummarizeSkipsNonFinite(t *testing.T) {
	rec := Record{
		"name":       "Ana",
		"totalFee":   "NaN",
		"balanceDue": "Infinity",
		"paidAmount": "-Inf",
		"discount":   "5",
	}

	s := Summarize(rec)

	assert.Equal(t, []Fee{{Field: "discount", Amount: 5}}, s.Fees)
	assert.Equal(t, "Ana: discount=5", s.String())
}

func TestSummarizeNamePrecedence(t *testing.T) {
	s := Summarize(Record{"displayName": "Display", "name": "Primary"})
	assert.Equal(t, "Primary", s.Name)

	s = Summarize(Record{"name": "   ", "patientName": "Fallback"})
	assert.Equal(t, "Fallback", s.Name)

	s = Summarize(Record{"name": 12.0})
	assert.Empty(t, s.Name)
}

func TestSummaryString(t *testing.T) {
	s := Summary{
		Name: "Ana",
		Fees: []Fee{{Field: "totalFee", Amount: 12345.5}, {Field: "paid", Amount: 0}},
	}
	assert.Equal(t, "Ana: totalFee=12,345.5, paid=0", s.String())

	assert.Equal(t, "(unnamed)", Summary{}.String())
}
