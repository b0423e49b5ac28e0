package crypto

// Keyring stores the database passphrase and the Kaiten API token
type Keyring interface {
	GetKey() (string, error)
	SetKey(password string) error
	DeleteKey() error
	GetToken() (string, error)
	SetToken(token string) error
	IsAvailable() bool
}

const (
	ServiceName = "kaitenbill"
	KeyName     = "db-encryption-key"
	TokenName   = "kaiten-api-token"

	KeyEnvVar   = "KAITENBILL_DB_KEY"
	TokenEnvVar = "KAITENBILL_API_TOKEN"
)

// NewKeyring returns the best available keyring implementation
func NewKeyring() Keyring {
	return newPlatformKeyring()
}
