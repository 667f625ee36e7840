package models

type CreateSessionResponse struct {
	SessionID string       `json:"sessionID"`
	State     SessionState `json:"state"`
}

// SearchAcceptedResponse acknowledges a search trigger. The sequence number
// identifies the request; results land in the session state snapshot once the
// backend responds and the response is still the latest issued one.
type SearchAcceptedResponse struct {
	Sequence uint64 `json:"sequence"`
	Preview  string `json:"preview,omitempty"`
}
