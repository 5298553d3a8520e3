package constants

const (
	// Input and lookup errors
	ErrCodeInvalidData = "invalid_data"
	ErrCodeNotFound    = "not_found"

	// Credential errors
	ErrCodeEmailExists        = "email_exists"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeNotAuthenticated   = "not_authenticated"

	// Single-use token lifecycle errors
	ErrCodeTokenInvalid = "token_invalido"
	ErrCodeTokenUsed    = "token_usado"
	ErrCodeTokenExpired = "token_expirado"

	// Federated identity errors
	ErrCodeAudienceInvalid = "aud_invalido"
	ErrCodeIssuerInvalid   = "iss_invalido"
	ErrCodeEmailMissing    = "email_ausente"

	// Transport errors
	ErrCodeRateLimited     = "rate_limited"
	ErrCodePayloadTooLarge = "payload_too_large"
	ErrCodeInternal        = "internal_error"
)
