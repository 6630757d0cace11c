package model

// EventTypeAlert tags every alert event on the wire and in the logs.
const EventTypeAlert = "DISASTER_ALERT"

// AlertEvent is the canonical record of a classified report. It is written
// to the alert log exactly once and never mutated afterwards.
type AlertEvent struct {
	EventType       string     `json:"eventType"`
	AlertID         string     `json:"alertId"`
	ReportID        string     `json:"reportId"`
	ServerTimestamp int64      `json:"serverTimestamp"`
	Client          ClientEcho `json:"client"`
	Decision        Decision   `json:"decision"`
	Input           AlertInput `json:"input"`
	ML              MLResult   `json:"ml"`
}

// ClientEcho carries the client-supplied idempotency fields back out, null
// when the client omitted them.
type ClientEcho struct {
	ClientReportID  *string  `json:"clientReportId"`
	CreatedAtClient *float64 `json:"createdAtClient"`
}

// Decision records why an alert was or was not distributed.
type Decision struct {
	IsHighRisk       bool `json:"is_high_risk"`
	IsMultisign      bool `json:"is_multisign"`
	ShouldDistribute bool `json:"shouldDistribute"`
}

// AlertInput echoes the risk-sign codes from the originating report.
type AlertInput struct {
	LikCodes []string `json:"lik_codes"`
}

// DeliveryOutcome aggregates one sink's best-effort delivery attempt.
// Partial failure is the steady state; sinks count instead of erroring.
type DeliveryOutcome struct {
	Sent    int `json:"sent"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

// Add folds another outcome into this one.
func (o *DeliveryOutcome) Add(other DeliveryOutcome) {
	o.Sent += other.Sent
	o.Removed += other.Removed
	o.Failed += other.Failed
}
