package normalization

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"forecast-guard/internal/domain"
	"forecast-guard/internal/idhash"
)

// ErrInvalidDocument is returned when a present field cannot be parsed.
// Absent fields are never an error; the bounds checker reports them.
var ErrInvalidDocument = errors.New("invalid forecast document")

// dateLayouts are tried in order for date and timestamp fields.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.DateTime,
	time.DateOnly,
}

// Normalize converts one document into a canonical record. Documents
// without an id get a deterministic one from idhash.ComputeForecastID.
func Normalize(doc map[string]any) (*domain.ForecastRecord, error) {
	r := &domain.ForecastRecord{}
	var err error

	if r.Company, err = stringField(doc, FieldCompany); err != nil {
		return nil, err
	}
	if r.Account, err = stringField(doc, FieldAccount); err != nil {
		return nil, err
	}
	if r.ForecastType, err = stringField(doc, FieldForecastType); err != nil {
		return nil, err
	}

	if r.ForecastStartDate, err = timeField(doc, FieldForecastStartDate); err != nil {
		return nil, err
	}
	if r.ForecastEndDate, err = timeField(doc, FieldForecastEndDate); err != nil {
		return nil, err
	}
	created, err := timeField(doc, FieldCreatedAt)
	if err != nil {
		return nil, err
	}
	if created != nil {
		r.CreatedAt = *created
	}

	for _, f := range []struct {
		field string
		dst   *decimal.NullDecimal
	}{
		{FieldPredictedAmount, &r.PredictedAmount},
		{FieldUpperBound, &r.UpperBound},
		{FieldLowerBound, &r.LowerBound},
		{FieldConfidenceScore, &r.ConfidenceScore},
		{FieldActualAmount, &r.ActualAmount},
	} {
		if *f.dst, err = decimalField(doc, f.field); err != nil {
			return nil, err
		}
	}

	if r.ID, err = stringField(doc, FieldID); err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = idhash.ComputeForecastID(r.Company, r.Account, r.ForecastType, r.ForecastStartDate)
	}

	return r, nil
}

// DecodeJSON reads a JSON array of documents, or a single document, and
// normalizes each. Numbers are decoded exactly.
func DecodeJSON(rd io.Reader) ([]*domain.ForecastRecord, error) {
	dec := json.NewDecoder(rd)
	dec.UseNumber()

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode forecast json: %w", err)
	}

	var docs []map[string]any
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var doc map[string]any
		if err := unmarshalNumbers(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode forecast document: %w", err)
		}
		docs = append(docs, doc)
	} else if err := unmarshalNumbers(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode forecast documents: %w", err)
	}

	records := make([]*domain.ForecastRecord, 0, len(docs))
	for i, doc := range docs {
		r, err := Normalize(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func unmarshalNumbers(data []byte, v any) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	return dec.Decode(v)
}

func stringField(doc map[string]any, field string) (string, error) {
	v, key, ok := resolve(doc, field)
	if !ok {
		return "", nil
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), nil
	case json.Number:
		return x.String(), nil
	}
	return "", fmt.Errorf("%w: %s: expected string, got %T", ErrInvalidDocument, key, v)
}

func decimalField(doc map[string]any, field string) (decimal.NullDecimal, error) {
	v, key, ok := resolve(doc, field)
	if !ok {
		return decimal.NullDecimal{}, nil
	}

	var (
		d   decimal.Decimal
		err error
	)
	switch x := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(x.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(x))
	case float64:
		d = decimal.NewFromFloat(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case decimal.Decimal:
		d = x
	default:
		err = fmt.Errorf("expected number, got %T", v)
	}
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, key, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func timeField(doc map[string]any, field string) (*time.Time, error) {
	v, key, ok := resolve(doc, field)
	if !ok {
		return nil, nil
	}

	switch x := v.(type) {
	case time.Time:
		t := x.UTC()
		return &t, nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t, nil
			}
		}
		return nil, fmt.Errorf("%w: %s: unrecognized date %q", ErrInvalidDocument, key, s)
	}
	return nil, fmt.Errorf("%w: %s: expected date string, got %T", ErrInvalidDocument, key, v)
}
