package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldMonth       = "month"
	FieldExpenseID   = "expense_id"
	FieldCreditID    = "credit_id"
	FieldDate        = "date"
	FieldAmount      = "amount"
	FieldCategory    = "category"
	FieldSubcategory = "subcategory"
	FieldUserID      = "userid"
	FieldCount       = "count"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpClear  = "clear"
	OpList   = "list"
	OpLogin  = "login"
	OpExport = "export"
	OpReport = "report"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithMonth adds the month key field
func (f LogFields) WithMonth(month string) LogFields {
	if month != "" {
		f[FieldMonth] = month
	}
	return f
}

// WithExpense adds expense-related fields. Descriptions are left out.
func (f LogFields) WithExpense(id int64, date, amount, category, subcategory string) LogFields {
	f[FieldExpenseID] = id
	f[FieldDate] = date
	f[FieldAmount] = amount
	f[FieldCategory] = category
	f[FieldSubcategory] = subcategory
	return f
}

// WithCredit adds credit-related fields
func (f LogFields) WithCredit(id int64, date, amount string) LogFields {
	f[FieldCreditID] = id
	f[FieldDate] = date
	f[FieldAmount] = amount
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
