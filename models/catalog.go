package models

// Catalog lists the datasets and model variants the UI selectors can offer.
// Served from a JSON file next to the server and hot-reloaded when it changes.
type Catalog struct {
	Datasets []CatalogDataset `json:"datasets"`
	Sizes    []string         `json:"sizes"`
	MaxK     int              `json:"max_k"`
}

type CatalogDataset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
