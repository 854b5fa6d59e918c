package log

import "sort"

// Field names shared by every log line.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldQuery     = "query"
	FieldStatus    = "status_code"
	FieldDuration  = "duration_ms"
	FieldUserAgent = "user_agent"
	FieldError     = "error"
	FieldOperation = "operation"

	FieldYear          = "year"
	FieldMonth         = "month"
	FieldTransactionID = "transaction_id"
	FieldDescription   = "description"
	FieldAmountCents   = "amount_cents"
	FieldCategory      = "category"
	FieldHouseholdID   = "household_id"
	FieldUserID        = "user_id"
	FieldSheetsRef     = "sheets_ref"
	FieldRows          = "rows"
	FieldPushed        = "pushed"
	FieldPulledAdded   = "pulled_added"
	FieldPulledUpdated = "pulled_updated"
)

const (
	ComponentApp           = "app"
	ComponentHTTP          = "http"
	ComponentLedger        = "ledger"
	ComponentSync          = "sync"
	ComponentExport        = "export"
	ComponentNotifications = "notifications"
	ComponentTemplate      = "template"
)

// Operation names, used as the "operation" field on handler errors.
const (
	OpCreate = "create"
	OpRead   = "read"
	OpUpdate = "update"
	OpDelete = "delete"
	OpList   = "list"
	OpSync   = "sync"
	OpExport = "export"
	OpRender = "render"
)

// LogFields collects attributes for one log line.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

func (f LogFields) WithTransaction(id, desc string, amountCents int64, category string) LogFields {
	f[FieldTransactionID] = id
	f[FieldDescription] = desc
	f[FieldAmountCents] = amountCents
	f[FieldCategory] = category
	return f
}

func (f LogFields) WithIdentity(userID, householdID string) LogFields {
	f[FieldUserID] = userID
	f[FieldHouseholdID] = householdID
	return f
}

// WithRequest records method and path; the query only when present.
func (f LogFields) WithRequest(method, path, query string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	return f
}

func (f LogFields) WithResponse(status int, durationMs int64) LogFields {
	f[FieldStatus] = status
	f[FieldDuration] = durationMs
	return f
}

// ToSlice flattens the fields into slog key/value pairs, sorted by key.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(f)*2)
	for _, k := range keys {
		out = append(out, k, f[k])
	}
	return out
}
