package domain

// AdminClaim is the only claim a session token can carry.
// A decoded claim always has IsAdmin set; tokens with any other shape are
// rejected during decoding rather than defaulted.
type AdminClaim struct {
	IsAdmin bool `json:"isAdmin"`
}

// NewAdminClaim returns the claim issued on a successful login.
func NewAdminClaim() AdminClaim {
	return AdminClaim{IsAdmin: true}
}
