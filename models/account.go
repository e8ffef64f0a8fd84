package models

// GmailAccount is a Gmail mailbox connected to the user.
type GmailAccount struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// Active reports whether the backend can use the account right now.
func (a *GmailAccount) Active() bool {
	return a.Status == "" || a.Status == "active"
}

// GmailConnect is the OAuth URL used to connect a new Gmail account.
type GmailConnect struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}
