package models

// Upload describes an object stored through POST /upload.
type Upload struct {
	URL  string `json:"url"`
	Key  string `json:"key"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}
