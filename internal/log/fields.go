package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldBudgetID   = "budget_id"
	FieldEntityKind = "entity_kind"
	FieldEntityID   = "entity_id"
	FieldCursor     = "cursor"
	FieldMonth      = "month"
	FieldQuery      = "query"
	FieldCategory   = "category"
	FieldPayee      = "payee"
	FieldAmount     = "amount"
	FieldCount      = "count"
	FieldConfidence = "confidence"
)

// Standard component names.
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentCache       = "cache"
	ComponentResolver    = "resolver"
	ComponentCategorizer = "categorizer"
	ComponentProvider    = "provider"
	ComponentService     = "service"
	ComponentBackend     = "backend"
	ComponentRefresh     = "refresh"
	ComponentRateLimit   = "rate_limit"
	ComponentTrace       = "trace"
)

// LogFields builds structured log attributes incrementally.
type LogFields map[string]any

// NewFields creates an empty LogFields.
func NewFields() LogFields {
	return make(LogFields)
}

// WithRequestID adds the request ID field.
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds the client IP field.
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error field when err is non-nil.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds the operation field.
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntity adds entity kind and ID fields.
func (f LogFields) WithEntity(kind, id string) LogFields {
	f[FieldEntityKind] = kind
	f[FieldEntityID] = id
	return f
}

// WithHTTPRequest adds request fields.
func (f LogFields) WithHTTPRequest(method, path string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	return f
}

// WithHTTPResponse adds response fields.
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice flattens the fields for slog's variadic API.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
