package model

// EnvVar is a single environment variable forwarded to the renderer.
// Order is preserved when building the worker environment.
type EnvVar struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RenderRequest is the payload written to a worker's mailbox. One request
// renders one or more page paths with the renderer entry module.
type RenderRequest struct {
	ID        string   `json:"id"`
	Paths     []string `json:"paths"`
	EntryPath string   `json:"entry"`
	WorkDir   string   `json:"workDir"`
	Env       []EnvVar `json:"env,omitempty"`
	Warming   bool     `json:"warming,omitempty"`
}

// RenderReply is what the worker writes back for a request.
type RenderReply struct {
	ID     string       `json:"id"`
	Status string       `json:"status"` // "ok" or "err"
	HTML   []string     `json:"html,omitempty"`
	Error  *WorkerError `json:"error,omitempty"`
}

// WorkerError carries a failure thrown inside the isolated renderer across
// the process boundary.
type WorkerError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

func (e *WorkerError) Error() string {
	if e.Type != "" {
		return e.Type + ": " + e.Message
	}
	return e.Message
}

// Diagnostic is the structured, human-readable form of a render failure.
type Diagnostic struct {
	Filename  string `json:"filename"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	CodeFrame string `json:"codeFrame"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Stack     string `json:"stack"`
}
