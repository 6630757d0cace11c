package model

// ReportInput is the payload accepted by the public report endpoint.
//
// ClientReportID and CreatedAtClient are optional client-side idempotency
// fields; timestamps are epoch milliseconds. Pointers distinguish "absent"
// from a present-but-invalid zero.
type ReportInput struct {
	LikCodes             []string `json:"lik_codes"`
	InteractionLevel     float64  `json:"level_of_interaction_with_disaster"`
	Age                  float64  `json:"age"`
	UsageDuration        float64  `json:"usage_duration"`
	MinUsageFrequency    float64  `json:"min_frequency_of_usage"`
	FishingExperience    float64  `json:"fishing_experience"`
	ClientReportID       string   `json:"clientReportId,omitempty"`
	CreatedAtClient      *float64 `json:"createdAtClient,omitempty"`
}

// MLResult is the classifier's verdict, copied verbatim into the alert event.
type MLResult struct {
	IsHighRisk    bool           `json:"is_high_risk"`
	Description   string         `json:"description"`
	DetectedSigns []DetectedSign `json:"detected_signs"`
}

// DetectedSign is one risk sign the classifier recognised.
type DetectedSign struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

// ReportResponse is what the submitting client receives. The same payload is
// cached as the dedup record and replayed for duplicate submissions.
type ReportResponse struct {
	OK               bool        `json:"ok"`
	ReportID         string      `json:"reportId"`
	ServerTimestamp  int64       `json:"serverTimestamp"`
	ShouldDistribute bool        `json:"shouldDistribute"`
	AlertEvent       *AlertEvent `json:"alertEvent"`
	Deduped          bool        `json:"deduped,omitempty"`
}

// SyncStatus is the terminal outcome of a report submission.
type SyncStatus string

const (
	SyncAccepted SyncStatus = "ACCEPTED"
	SyncDeduped  SyncStatus = "DEDUPED"
	SyncFailedML SyncStatus = "FAILED_ML"
)

// ReportSyncEvent is the audit record appended to the report-sync log for
// every submission, whatever its outcome.
type ReportSyncEvent struct {
	Status           SyncStatus `json:"status"`
	ClientReportID   *string    `json:"clientReportId"`
	CreatedAtClient  *float64   `json:"createdAtClient"`
	ReceivedAtServer int64      `json:"receivedAtServer"`
	SyncDelayMs      *float64   `json:"syncDelayMs"`
	ReportID         string     `json:"reportId,omitempty"`
	AlertID          string     `json:"alertId,omitempty"`
	ShouldDistribute *bool      `json:"shouldDistribute,omitempty"`
	MLStatus         int        `json:"mlStatus,omitempty"`
}
