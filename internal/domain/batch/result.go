package batch

// ItemStatus is the load outcome of a single project.
type ItemStatus string

// Load status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of loading one project in a batch.
type Result struct {
	id     string
	blocks int
	status ItemStatus
	err    error
}

// NewOK creates a successful load result.
func NewOK(projectID string, blocks int) Result {
	return Result{id: projectID, blocks: blocks, status: StatusOK}
}

// NewError creates a failed load result.
func NewError(projectID string, err error) Result {
	return Result{id: projectID, status: StatusError, err: err}
}

// ID returns the project identifier.
func (r Result) ID() string { return r.id }

// Blocks returns how many blocks were written.
func (r Result) Blocks() int { return r.blocks }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Failed counts error results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.status == StatusError {
			n++
		}
	}
	return n
}
