package domain

// CachedCredential is the persisted face-verification record.
// Timestamp is epoch milliseconds, matching what the browser UI historically stored.
type CachedCredential struct {
	Verified  bool  `json:"verified"`
	Timestamp int64 `json:"timestamp"`
}

// CredentialEntry is one stored password as returned by the backend.
type CredentialEntry struct {
	DomainName string `json:"domain_name" validate:"required"`
	Link       string `json:"link" validate:"omitempty,url"`
	Password   string `json:"password" validate:"required"`
}
