// Package job defines the wire types exchanged with the host scheduler.
// A worker invocation always yields exactly one Result: either the
// completed shape or an error shape, never both and never neither.
package job

const (
	// ModelName identifies the synthesis model in completed results.
	ModelName = "musetalk"

	// StatusCompleted is the only success status the scheduler observes.
	StatusCompleted = "completed"
)

// Job is one unit of work handed to the worker by the host scheduler.
type Job struct {
	ID    string `json:"id"`
	Input Input  `json:"input"`
}

// Input carries references to the two source media for a job.
type Input struct {
	ImageURL string `json:"input_image_url"`
	AudioURL string `json:"input_audio_url"`
}

// Result is the single externally observable output of a job.
type Result struct {
	OutputVideoURL string `json:"output_video_url,omitempty"`
	Status         string `json:"status,omitempty"`
	Model          string `json:"model,omitempty"`
	JobID          string `json:"job_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Completed builds the success result shape.
func Completed(jobID, videoURL string) *Result {
	return &Result{
		OutputVideoURL: videoURL,
		Status:         StatusCompleted,
		Model:          ModelName,
		JobID:          jobID,
	}
}

// Failed builds the error result shape.
func Failed(message string) *Result {
	return &Result{Error: message}
}

// Succeeded reports whether the result is success-shaped.
func (r *Result) Succeeded() bool {
	return r.Error == ""
}
