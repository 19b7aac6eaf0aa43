package domain

// Template maps a sequence step to its content and timing. Delay is in
// whole days from enrollment time.
type Template struct {
	Step        int    `json:"step" yaml:"step"`
	Subject     string `json:"subject" yaml:"subject"`
	Body        string `json:"body" yaml:"body"`
	DelayDays   int    `json:"delay_days" yaml:"delay_days"`
	TrackingTag string `json:"tracking_tag" yaml:"tracking_tag"`
}
