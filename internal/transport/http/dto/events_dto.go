package dto

type ClientEvent struct {
	Name  string         `json:"name"`
	TS    int64          `json:"ts,omitempty"`
	Props map[string]any `json:"props,omitempty"`
}

// EventsBatchRequest carries client-side analytics such as calendar_viewed
// or day_opened. TS is unix seconds or milliseconds.
type EventsBatchRequest struct {
	Events []ClientEvent `json:"events"`
}

type EventsBatchResponse struct {
	Accepted int `json:"accepted"`
}
