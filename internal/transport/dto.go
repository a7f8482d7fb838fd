package transport

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotRequest struct {
	Email string `json:"email"`
}

type PasswordRequest struct {
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

type ProfileRequest struct {
	Name     *string `json:"name"`
	Gender   *string `json:"gender"`
	Location *string `json:"location"`
	Website  *string `json:"website"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type MessageResponse struct {
	Msg string `json:"msg"`
}

type ErrorItem struct {
	Msg string `json:"msg"`
}

type ErrorResponse struct {
	Errors []ErrorItem `json:"errors"`
}

func NewErrorResponse(msgs ...string) ErrorResponse {
	items := make([]ErrorItem, len(msgs))
	for i, m := range msgs {
		items[i] = ErrorItem{Msg: m}
	}
	return ErrorResponse{Errors: items}
}
