package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldPerson      = "person"
	FieldDependent   = "dependent"
	FieldIncome      = "income"
	FieldExpense     = "expense"
	FieldPayer       = "payer"
	FieldAmountCents = "amount_cents"
	FieldCycleStart  = "cycle_start"
	FieldCycleEnd    = "cycle_end"
	FieldResult      = "result"
	FieldEventID     = "event_id"
	FieldBackend     = "backend"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentCycle   = "cycle"
	ComponentService = "service"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpCreate        = "create"
	OpRead          = "read"
	OpDelete        = "delete"
	OpList          = "list"
	OpAddPerson     = "add_person"
	OpAddIncome     = "add_income"
	OpRemoveIncome  = "remove_income"
	OpAddExpense    = "add_expense"
	OpRemoveExpense = "remove_expense"
	OpClose         = "close"
	OpPublish       = "publish"
	OpConsume       = "consume"
	OpShutdown      = "shutdown"
	OpStartup       = "startup"
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

// WithPerson adds the person field
func (f LogFields) WithPerson(name string) LogFields {
	f[FieldPerson] = name
	return f
}

// WithCycle adds cycle date fields; end is omitted while the cycle is open.
func (f LogFields) WithCycle(start, end string) LogFields {
	f[FieldCycleStart] = start
	if end != "" {
		f[FieldCycleEnd] = end
	}
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
