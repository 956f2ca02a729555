package domain

// CodeExecutionResult is the outcome of running a submitted snippet.
type CodeExecutionResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
	Trace   string `json:"traceback,omitempty"`

	// OutputTruncated is set when earlier output was dropped to stay within
	// the runner's output cap.
	OutputTruncated bool `json:"output_truncated,omitempty"`
}
