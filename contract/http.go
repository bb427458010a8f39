package contract

type ErrorResponse struct {
	Error string `json:"error"`
}

type NewsletterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// NewsletterErrorResponse carries the upstream error body as details.
type NewsletterErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details"`
}

type ContactRequest struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Subject string `json:"subject" form:"subject"`
	Message string `json:"message" form:"message"`
}

type ContactResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type ProfileRequest struct {
	Name string `json:"name" form:"name"`
	Role string `json:"role" form:"role"`
	Bio  string `json:"bio" form:"bio"`
}

type ProfileResponse struct {
	Mode          string         `json:"mode"`
	Profile       *UserProfile   `json:"profile"`
	Fields        ProfileRequest `json:"fields"`
	Email         string         `json:"email"`
	PhotoURL      string         `json:"photoURL,omitempty"`
	SaveSuccess   bool           `json:"saveSuccess"`
	RemoteChanged bool           `json:"remoteChanged"`
	Error         string         `json:"error,omitempty"`
}

type SignInRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}
