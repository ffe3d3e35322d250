package http

// MinPromptLength is the shortest prompt accepted by the generate endpoint.
const MinPromptLength = 10

type generateReq struct {
	Prompt string `json:"prompt"`
}

// errorBody is the failure envelope shared by all pipeline endpoints.
// Code is one of RATE_LIMIT, INVALID_API_KEY, EMPTY_RESPONSE, INVALID_FORMAT,
// GENERATION_FAILED; WaitTime (seconds) is set when a retry hint exists.
type errorBody struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error"`
	Code     string `json:"code"`
	WaitTime int    `json:"waitTime,omitempty"`
}
