package model

// ResourceType partitions credential stores: one physical store file per
// type under the project directory.
type ResourceType string

const (
	// ResourceDSN marks database connections identified by a DSN/TNS string.
	ResourceDSN ResourceType = "dsn"
	// ResourceURL marks website connections identified by a URL.
	ResourceURL ResourceType = "url"
)

// Valid reports whether r is one of the known resource types.
func (r ResourceType) Valid() bool {
	return r == ResourceDSN || r == ResourceURL
}

// Connection is one named credential entry. Name is the unique,
// case-sensitive section key within a store. Username and Password hold
// plaintext at the domain boundary; the adapter layer owns encryption.
// WalletZipPath is only meaningful for dsn connections.
type Connection struct {
	Name          string
	Username      string
	Password      string
	ResourceID    string
	WalletZipPath string
}
