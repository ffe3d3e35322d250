package http

type openReq struct {
	GenerationID string `json:"generationId"`
}

type fileReq struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type selectReq struct {
	Name string `json:"name"`
}

type navigateReq struct {
	Href string `json:"href"`
}
