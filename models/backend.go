package models

// BackendLoadRequest is the body of the backend's configuration-load operation.
type BackendLoadRequest struct {
	Dataset   string `json:"dataset"`
	Size      string `json:"size"`
	Finetuned bool   `json:"finetuned"`
	Family    string `json:"family"`
}

// BackendLoadResponse carries the backend's two textual outputs unmodified;
// the metrics text is decoded separately.
type BackendLoadResponse struct {
	Status  string `json:"status"`
	Metrics string `json:"metrics"`
}

// BackendImageRef is an image reference as the backend returns it. Search
// results include the raw two-line caption; sampled examples do not.
type BackendImageRef struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

type BackendSampleResponse struct {
	Images []BackendImageRef `json:"images"`
}

// BackendSearchRequest submits a query image either as raw bytes (base64) or
// as a backend-resolvable URL, never both.
type BackendSearchRequest struct {
	ImageBase64 string `json:"image_b64,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	K           int    `json:"k"`
}

type BackendSearchResponse struct {
	Results []BackendImageRef `json:"results"`
	Status  string            `json:"status"`
}
