package model

const (
	MaxCountdownHours   = 99
	MaxCountdownMinutes = 59
	MaxCountdownSeconds = 59
)

// CountdownState is the countdown widget's slice of its config blob.
// Deadline is a unix millisecond timestamp, set only while running.
type CountdownState struct {
	Hours     int    `json:"hours" mapstructure:"hours"`
	Minutes   int    `json:"minutes" mapstructure:"minutes"`
	Seconds   int    `json:"seconds" mapstructure:"seconds"`
	IsRunning bool   `json:"isRunning" mapstructure:"isRunning"`
	Deadline  *int64 `json:"deadline,omitempty" mapstructure:"deadline"`
}

// TotalSeconds is the configured duration in seconds.
func (s CountdownState) TotalSeconds() int {
	return s.Hours*3600 + s.Minutes*60 + s.Seconds
}
