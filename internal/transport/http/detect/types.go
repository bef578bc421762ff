package detect

// Response is the success payload of POST /detect/ai.
type Response struct {
	Result     ResultData   `json:"result"`
	Analysis   AnalysisData `json:"analysis"`
	Media      MediaData    `json:"media"`
	Disclaimer string       `json:"disclaimer"`
}

type ResultData struct {
	AIGenerated float64 `json:"aiGenerated"`
	Percentage  int     `json:"percentage"`
	Label       string  `json:"label"`
	Message     string  `json:"message"`
}

type AnalysisData struct {
	RequestID  string `json:"requestId"`
	Timestamp  any    `json:"timestamp"`
	Status     string `json:"status"`
	Operations int    `json:"operations"`
}

type MediaData struct {
	Filename  string `json:"filename"`
	Mimetype  string `json:"mimetype"`
	SizeBytes int64  `json:"sizeBytes"`
}
