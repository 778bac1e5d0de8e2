package dto

// RegisterSubscriptionRequest represents a subscription registration request
type RegisterSubscriptionRequest struct {
	DisplayName   string `json:"display_name" validate:"required,min=1,max=200"`
	CredentialRef string `json:"credential_ref" validate:"required"`
}
