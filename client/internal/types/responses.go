package types

// ------------------------------
// Response Types
// ------------------------------

// AuthToken is returned by login and register.
type AuthToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MessageResponse is the acknowledgement body some mutations return instead
// of the entity.
type MessageResponse struct {
	Message string `json:"message"`
}
