package api

// Wire types for the billing backend. Each endpoint gets its own
// request/response pair; decoding and validation happen once in the client,
// and nothing outside this package inspects raw response fields.

// FileInfo describes one uploaded spreadsheet as reported by the backend.
type FileInfo struct {
	Filename string  `json:"filename"`
	Path     string  `json:"path,omitempty"`
	Size     int64   `json:"size"`
	Modified float64 `json:"modified,omitempty"`
}

type fileListResponse struct {
	Success bool       `json:"success"`
	Files   []FileInfo `json:"files"`
	Message string     `json:"message,omitempty"`
}

type uploadResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type deleteFileResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// KeyStatus is the backend's view of a user's API-key state. The backend is
// authoritative; clients never assume a set or remove took effect without
// re-fetching this.
type KeyStatus struct {
	Exists         bool `json:"exists"`
	HasAPIKey      bool `json:"has_api_key"`
	UsingCustomKey bool `json:"using_custom_key"`
	IsNewUser      bool `json:"is_new_user"`
}

type setKeyRequest struct {
	APIKey   string `json:"api_key"`
	Username string `json:"username"`
}

// SetKeyResult reports the outcome of storing an API key.
type SetKeyResult struct {
	Message        string `json:"message"`
	UsingCustomKey bool   `json:"using_custom_key"`
	IsNewUser      bool   `json:"is_new_user"`
}

type setKeyResponse struct {
	Success bool `json:"success"`
	SetKeyResult
}

type removeKeyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type queryRequest struct {
	Query    string `json:"query"`
	FileName string `json:"file_name,omitempty"`
	Username string `json:"username"`
}

// QueryResult is a successful answer from the analysis engine.
type QueryResult struct {
	Answer        string  `json:"answer"`
	Reasoning     string  `json:"reasoning,omitempty"`
	ExecutionTime float64 `json:"execution_time"`
}

type queryResponse struct {
	Success bool `json:"success"`
	QueryResult
	// Detail is populated by some backends on success:false instead of an
	// HTTP error status. It takes priority over Answer as the user-facing
	// failure message.
	Detail string `json:"detail,omitempty"`
}

// Health is the backend liveness report.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// errorBody is the shape of FastAPI-style HTTP error responses.
type errorBody struct {
	Detail string `json:"detail"`
}
