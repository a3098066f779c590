// Package patient decodes the locally cached patient list.
//
// Records have no fixed schema: the application that writes the cache owns
// the shape, so everything here is read defensively from a generic map.
package patient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Record is a single cached patient object.
type Record map[string]any

// nameKeys are checked in order for the display name.
var nameKeys = []string{"name", "fullName", "patientName", "displayName"}

// feeMarkers identify fee-related fields by case-insensitive substring.
var feeMarkers = []string{"fee", "amount", "paid", "balance", "due", "total", "discount"}

// Fee is a numeric fee-related field of a record.
type Fee struct {
	Field  string
	Amount float64
}

// Summary holds the notable fields of a record.
type Summary struct {
	Name string
	Fees []Fee
}

// DecodeList parses a stored patient list. An empty or whitespace-only
// value, and a JSON null, decode to an empty list.
func DecodeList(raw []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var records []Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decode patient list: %w", err)
	}
	return records, nil
}

// Summarize extracts the display name and fee fields of a record.
func Summarize(rec Record) Summary {
	var s Summary

	for _, key := range nameKeys {
		if v, ok := rec[key].(string); ok && strings.TrimSpace(v) != "" {
			s.Name = strings.TrimSpace(v)
			break
		}
	}

	for key, value := range rec {
		if !isFeeField(key) {
			continue
		}
		amount, ok := toNumber(value)
		if !ok {
			continue
		}
		s.Fees = append(s.Fees, Fee{Field: key, Amount: amount})
	}
	sort.Slice(s.Fees, func(i, j int) bool { return s.Fees[i].Field < s.Fees[j].Field })

	return s
}

// FormatAmount renders a fee with thousands separators and up to two decimals.
func FormatAmount(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

// String renders the summary as a single human-readable line.
func (s Summary) String() string {
	var sb strings.Builder

	name := s.Name
	if name == "" {
		name = "(unnamed)"
	}
	sb.WriteString(name)

	for i, fee := range s.Fees {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s=%s", fee.Field, FormatAmount(fee.Amount)))
	}
	return sb.String()
}

func isFeeField(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range feeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// toNumber accepts finite numbers only; ParseFloat also takes "NaN" and "Inf".
func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
