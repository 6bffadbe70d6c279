package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldCostID     = "cost_id"
	FieldSum        = "sum"
	FieldCurrency   = "currency"
	FieldCategory   = "category"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldRatesURL   = "rates_url"
	FieldKey        = "key"
)

// Components
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentRates   = "rates"
	ComponentReport  = "report"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentCLI     = "cli"
)

// Operations
const (
	OpAddCost     = "add_cost"
	OpGetAll      = "get_all"
	OpGetSetting  = "get_setting"
	OpSetSetting  = "set_setting"
	OpReport      = "monthly_report"
	OpYearly      = "yearly_report"
	OpFetchRates  = "fetch_rates"
	OpValidateURL = "validate_rates_url"
	OpMigrate     = "migrate"
	OpPublish     = "publish"
)

// LogFields is a builder for structured log fields.
type LogFields map[string]any

// NewFields creates an empty field set.
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error message; nil is ignored.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithCost adds the fields identifying a stored cost.
func (f LogFields) WithCost(id int64, sum, currency, category string) LogFields {
	f[FieldCostID] = id
	f[FieldSum] = sum
	f[FieldCurrency] = currency
	f[FieldCategory] = category
	return f
}

// WithPeriod adds year and, when month > 0, month.
func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	if month > 0 {
		f[FieldMonth] = month
	}
	return f
}

// ToSlice flattens the fields into slog key/value arguments.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
