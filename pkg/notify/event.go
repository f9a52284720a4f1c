package notify

import "time"

// Event is the job-outcome message sent downstream. It describes where an
// edition was written; the document itself is never attached.
type Event struct {
	JobID      string    `json:"job_id"`
	PlatformID string    `json:"platform_id"`
	Date       string    `json:"date"`
	State      string    `json:"state"`
	Reason     string    `json:"reason,omitempty"`
	Skipped    bool      `json:"skipped,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`
	Pages      int       `json:"pages"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// attributes are the routing attributes attached on brokers that support them.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"platform_id": e.PlatformID,
		"state":       e.State,
	}
}
