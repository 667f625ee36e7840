package models

// Configuration selects which dataset index and model variant the retrieval
// backend serves. Any field change invalidates every piece of derived session
// state (metrics, examples, results, active query) and starts a new load cycle.
type Configuration struct {
	Dataset   string `json:"dataset"`
	Size      string `json:"size"`
	Finetuned bool   `json:"finetuned"`
}

// Equal reports whether two configurations match on every field.
func (c Configuration) Equal(other Configuration) bool {
	return c == other
}
