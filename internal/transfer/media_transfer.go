package transfer

type MediaRegistration struct {
	StorageKey string `json:"storage_key"`
	Type       string `json:"type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Duration   int    `json:"duration"`
}
