package dto

type InfobipTextMessage struct {
	From    string             `json:"from"`
	To      string             `json:"to"`
	Content InfobipTextContent `json:"content"`
}

type InfobipTextContent struct {
	Text string `json:"text"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}
