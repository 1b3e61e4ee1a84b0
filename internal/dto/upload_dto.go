package dto

// UploadResponse describes a stored file. Name, URL and Size are what
// submissions reference; the remaining fields are informational.
type UploadResponse struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Checksum string `json:"checksum"`
}
