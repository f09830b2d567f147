package transfer

type InstagramTokenResponse struct {
	AccessToken      string `json:"access_token"`
	UserID           int64  `json:"user_id"`
	Error            string `json:"error_type"`
	ErrorDescription string `json:"error_message"`
}

type InstagramLongLivedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type InstagramUserInfo struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	MediaCount int64  `json:"media_count"`
}

type InstagramErrorResponse struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FbtraceID string `json:"fbtrace_id"`
	} `json:"error"`
}
