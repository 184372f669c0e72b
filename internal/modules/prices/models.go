package prices

// DailyClose is one closing price point of a symbol's stored history
type DailyClose struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Close float64 `json:"close"`
}

// Quote is a real-time price snapshot for one symbol
type Quote struct {
	Symbol        string  `json:"symbol"`
	Current       float64 `json:"current"`
	PreviousClose float64 `json:"previous_close"`
}
