// Package identityrpc is the wire contract between the IntelliHome client
// and the identity service: request/response messages, the gRPC service
// descriptor with its client stub, and the JSON codec the messages travel in.
package identityrpc

// User is the account as returned to clients. It never carries secrets.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	RoleID        int    `json:"role_id"`
	AccountStatus string `json:"account_status"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	// BirthDate is formatted as YYYY-MM-DD; empty when unknown.
	BirthDate string `json:"birth_date,omitempty"`
	Address   string `json:"address,omitempty"`
	Password  string `json:"password"`

	RecoveryQuestionID int    `json:"recovery_question_id"`
	RecoveryAnswer     string `json:"recovery_answer"`

	AllowBiometric bool   `json:"allow_biometric"`
	Token          string `json:"token,omitempty"`
}

type RegisterResponse struct {
	User User `json:"user"`
}

// LoginRequest identifies the account by username, e-mail or phone.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type LoginResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
}

type LookupByTokenRequest struct {
	Token string `json:"token"`
}

type LookupByTokenResponse struct {
	User User `json:"user"`
}

// BindTokenRequest binds a biometric login token to the caller's account.
// The account is taken from the access token.
type BindTokenRequest struct {
	Token string `json:"token"`
}

type BindTokenResponse struct{}

type GetRecoveryQuestionRequest struct {
	Identifier string `json:"identifier"`
}

type GetRecoveryQuestionResponse struct {
	QuestionID int    `json:"question_id"`
	Text       string `json:"text"`
}

type ResetPasswordRequest struct {
	Identifier  string `json:"identifier"`
	NewPassword string `json:"new_password"`
	Answer      string `json:"answer"`
}

type ResetPasswordResponse struct{}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
