package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldUserID    = "user_id"
	FieldExpenseID = "expense_id"
	FieldCategory  = "category"
	FieldAmount    = "amount"
	FieldTotal     = "total"
	FieldIncome    = "income"
	FieldKey       = "key"
	FieldBytes     = "bytes"
	FieldUsers     = "users"
	FieldBackend   = "backend"
	FieldPath      = "path"
	FieldExchange  = "exchange"
	FieldQueue     = "queue"
	FieldDuration  = "duration_ms"
	FieldSuccess   = "success"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentCLI     = "cli"
	ComponentStore   = "store"
	ComponentStorage = "storage"
	ComponentBackend = "backend"
	ComponentNotify  = "notify"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentCache   = "cache"
	ComponentAuth    = "auth"
)

// Operations defines standard operation names
const (
	OpLoad          = "load"
	OpSave          = "save"
	OpRegister      = "register"
	OpAuthenticate  = "authenticate"
	OpBiometric     = "biometric_sign_in"
	OpSignOut       = "sign_out"
	OpAddExpense    = "add_expense"
	OpUpdateProfile = "update_profile"
	OpNotify        = "notify"
	OpConsume       = "consume"
	OpStartup       = "startup"
	OpShutdown      = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeEncoding      = "encoding_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error message, skipping nil errors
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithUser(id string) LogFields {
	if id != "" {
		f[FieldUserID] = id
	}
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(id, category, amount string) LogFields {
	f[FieldExpenseID] = id
	f[FieldCategory] = category
	f[FieldAmount] = amount
	return f
}

func (f LogFields) WithKey(key string, size int) LogFields {
	f[FieldKey] = key
	f[FieldBytes] = size
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
