package constants

const (
	// TokenRandomBytes is the entropy of emailed tokens and session cookies.
	TokenRandomBytes = 32

	WSClientSendBufferSize = 64
	WSBroadcastBufferSize  = 256

	MaxTitleLength       = 255
	MaxDescriptionLength = 10000
	MaxCommentLength     = 4000
	MaxRegisterLength    = 64
)
