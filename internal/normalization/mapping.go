// Package normalization maps differently shaped forecast documents onto
// domain.ForecastRecord. Field aliases are resolved once, here, so the
// validation packages only ever see canonical records.
package normalization

// Canonical field names.
const (
	FieldID                = "id"
	FieldCompany           = "company"
	FieldAccount           = "account"
	FieldForecastType      = "forecast_type"
	FieldForecastStartDate = "forecast_start_date"
	FieldForecastEndDate   = "forecast_end_date"
	FieldPredictedAmount   = "predicted_amount"
	FieldUpperBound        = "upper_bound"
	FieldLowerBound        = "lower_bound"
	FieldConfidenceScore   = "confidence_score"
	FieldActualAmount      = "actual_amount"
	FieldCreatedAt         = "created_at"
)

// Aliases lists, per canonical field, the document keys accepted for it in
// priority order. The first key present with a non-empty value wins.
var Aliases = map[string][]string{
	FieldID:                {"id", "name", "forecast_id"},
	FieldCompany:           {"company"},
	FieldAccount:           {"account", "expense_account", "income_account", "bank_account"},
	FieldForecastType:      {"forecast_type"},
	FieldForecastStartDate: {"forecast_start_date", "forecast_date", "from_date", "start_date"},
	FieldForecastEndDate:   {"forecast_end_date", "to_date", "end_date"},
	FieldPredictedAmount: {
		"predicted_amount",
		"total_predicted_expenses",
		"predicted_expenses",
		"total_predicted_revenue",
		"predicted_revenue",
		"predicted_sales",
	},
	FieldUpperBound:      {"upper_bound", "upper_confidence_bound"},
	FieldLowerBound:      {"lower_bound", "lower_confidence_bound"},
	FieldConfidenceScore: {"confidence_score", "prediction_confidence", "confidence"},
	FieldActualAmount:    {"actual_amount", "actual_expenses", "actual_revenue", "actual_sales"},
	FieldCreatedAt:       {"created_at", "creation"},
}

// resolve returns the value of the first alias of field present in doc.
func resolve(doc map[string]any, field string) (value any, key string, ok bool) {
	for _, alias := range Aliases[field] {
		v, present := doc[alias]
		if !present || isEmpty(v) {
			continue
		}
		return v, alias, true
	}
	return nil, "", false
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}
