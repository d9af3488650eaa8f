package dto

type ProcessMessageRequest struct {
	UserPhone string `json:"user_phone"`
	StoreID   string `json:"store_id"`
	Message   string `json:"message"`
}

type ProcessMessageResponse struct {
	Reply string `json:"reply"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
