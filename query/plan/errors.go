package plan

// Usage describes the shape of a valid query.
const Usage = "queries take the form: [explain] from <table> [limit <n>] [concurrency <n>];"

// BadPlanError is returned when a query is syntactically valid but cannot be
// planned.
type BadPlanError struct {
	Err error
}

func (e BadPlanError) Error() string {
	return e.Err.Error()
}

func (e BadPlanError) Is(target error) bool {
	_, ok := target.(BadPlanError)
	return ok
}

// Detail returns a description of valid queries.
func (e BadPlanError) Detail() string {
	return Usage
}
