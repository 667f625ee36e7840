package models

// RetrievalImage is a reference to an image the UI can display. Search results
// carry a two-line caption from the backend plus its decoded label/similarity
// pair; example images have neither.
type RetrievalImage struct {
	URL        string `json:"url"`
	Caption    string `json:"caption,omitempty"`
	Label      string `json:"label,omitempty"`
	Similarity string `json:"similarity,omitempty"`
}

// Caption is the display-ready pair decoded from a result caption string.
type Caption struct {
	Label      string `json:"label"`
	Similarity string `json:"similarity"`
}
