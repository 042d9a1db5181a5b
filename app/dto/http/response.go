package http

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	Confirmed     bool   `json:"confirmed"`
}

type UserResponse struct {
	Message   string `json:"message"`
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
}

type ResetStatusResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}
