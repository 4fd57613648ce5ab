package domain

// ClientStateItem is one value in a client's persisted key/value namespace.
// PK: client_id, SK: key. ExpiresAt is a Unix timestamp used as DynamoDB TTL;
// zero means the item never expires.
type ClientStateItem struct {
	ClientID  string `json:"client_id" dynamodbav:"client_id"`
	Key       string `json:"key" dynamodbav:"key"`
	Value     string `json:"value" dynamodbav:"value"`
	ExpiresAt int64  `json:"expires_at,omitempty" dynamodbav:"expires_at,omitempty"`
}

// Keys used in the client-state namespace.
const (
	StateKeyAccessToken      = "access_token"
	StateKeyRefreshToken     = "refresh_token"
	StateKeyFaceVerification = "faceVerification"
)
