package contract

// UserProfile is stored at users/{uid} and replaced wholesale on every save.
type UserProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Bio   string `json:"bio"`
	Role  string `json:"role"`
}

// ContactMessage is appended under contacts/{generatedId}. Timestamp is Unix milliseconds.
type ContactMessage struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
