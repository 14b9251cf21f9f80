package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of storing one item in a batch. A failed item keeps
// its position with an empty id so callers can align results with input.
type Result struct {
	key    string
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(key, id string) Result { return Result{key: key, id: id, status: StatusOK} }

// NewError creates a failed batch result with an empty id placeholder.
func NewError(key string, err error) Result { return Result{key: key, status: StatusError, err: err} }

// Key returns the caller-supplied item key.
func (r Result) Key() string { return r.key }

// ID returns the stored record id, empty on failure.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// IDs returns ids aligned with input order.
func IDs(results []Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.id
	}
	return ids
}

// Failed counts failed items.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.status == StatusError {
			n++
		}
	}
	return n
}
