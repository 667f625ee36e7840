package models

// SessionState is the snapshot the UI polls while async operations run. It is
// mutated only by the session service, one completion at a time; handlers and
// presentation code get copies, never the live struct.
type SessionState struct {
	Status             string           `json:"status"`
	Metrics            *Metrics         `json:"metrics,omitempty"`
	Examples           []RetrievalImage `json:"examples"`
	Results            []RetrievalImage `json:"results"`
	ActiveQueryPreview string           `json:"active_query_preview,omitempty"`
	LoadingResources   bool             `json:"loading_resources"`
	LoadingExamples    bool             `json:"loading_examples"`
	Searching          bool             `json:"searching"`
}
