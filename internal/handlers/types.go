package handlers

// SubmitCodeRequest is the request body for submitting a code snippet.
type SubmitCodeRequest struct {
	Body struct {
		Code string `doc:"The code to submit" example:"SELECT 1;" json:"code" maxLength:"65536"`
	}
}

// SubmitCodeResponse acknowledges an accepted submission.
type SubmitCodeResponse struct {
	Body struct {
		OK bool `doc:"Whether the submission was accepted" example:"true" json:"ok"`
	}
}
