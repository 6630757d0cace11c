package model

// PushSubscription is a browser push registration, keyed by its provider
// endpoint. Overwritten on re-subscribe, deleted when the provider reports
// the endpoint gone.
type PushSubscription struct {
	Endpoint string   `json:"endpoint"`
	Keys     PushKeys `json:"keys"`
}

// PushKeys holds the client key material required to encrypt notifications.
type PushKeys struct {
	Auth   string `json:"auth"`
	P256dh string `json:"p256dh"`
}

// Valid reports whether the subscription carries everything needed to send.
func (s PushSubscription) Valid() bool {
	return s.Endpoint != "" && s.Keys.Auth != "" && s.Keys.P256dh != ""
}
