package api

// RPCRequest is the provider call envelope. Which fields matter depends on
// Method.
type RPCRequest struct {
	Method        string `json:"method" binding:"required"`
	Login         string `json:"login"`
	Password      string `json:"password"`
	Token         string `json:"token"`
	ActionID      string `json:"actionid"`
	PlayType      string `json:"playtype"`
	Amount        int64  `json:"amount"`
	GameReference string `json:"gamereference"`
	RoundID       string `json:"gameid"`
	Freegame      string `json:"freegame"`
}

type RPCResponse struct {
	Token         string `json:"token,omitempty"`
	Balance       int64  `json:"balance"`
	TransactionID int64  `json:"transactionid,omitempty"`
}

type ErrorResponse struct {
	ErrorCode    int    `json:"errorcode"`
	ErrorMessage string `json:"errormessage"`
}

type SessionResponse struct {
	UserID int64  `json:"user_id"`
	Token  string `json:"token"`
}

type LaunchResponse struct {
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
}
