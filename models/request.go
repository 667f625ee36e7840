package models

type ConfigureRequest struct {
	Dataset   string `json:"dataset" binding:"required"`
	Size      string `json:"size" binding:"required"`
	Finetuned bool   `json:"finetuned"`
}

type SearchByExampleRequest struct {
	ImageURL string `json:"image_url" binding:"required"`
	K        int    `json:"k" binding:"required,min=1,max=50"`
}

type SearchByPasteRequest struct {
	DataBase64 string `json:"data_base64" binding:"required"`
	MimeType   string `json:"mime_type" binding:"required"`
	K          int    `json:"k" binding:"required,min=1,max=50"`
}
