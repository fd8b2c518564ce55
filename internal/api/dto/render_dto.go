package dto

type CreateRenderRequest struct {
	// JobID is optional; one is generated when absent.
	JobID      string `json:"job_id"`
	SourceCode string `json:"source_code" binding:"required"`
}

type RenderJobDTO struct {
	JobID        string `json:"job_id"`
	State        string `json:"state"`
	CreatedAt    string `json:"created_at"`
	CompletedAt  string `json:"completed_at,omitempty"`
	ArtifactURL  string `json:"artifact_url,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ExitCode     *int   `json:"exit_code,omitempty"`
	Log          string `json:"log,omitempty"`
}
