package model

// ExportHeader describes the provenance of an exported credential set.
type ExportHeader struct {
	ResourceType   string `json:"resource_type"`
	ProjectID      string `json:"project_id"`
	SourceFilename string `json:"source_filename"`
	WalletZipPath  string `json:"wallet_zip_path"`
	ExportedAt     string `json:"export_dttm"`
}

// ExportedConnection carries one connection record with username and
// password re-encrypted under the export secret rather than the machine
// identity, making the record portable across machines.
type ExportedConnection struct {
	ConnectionName string `json:"connection_name"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	ResourceID     string `json:"resource_id"`
}

// ExportDocument is the JSON payload written into an export archive.
type ExportDocument struct {
	Header      ExportHeader         `json:"header"`
	Connections []ExportedConnection `json:"connections"`
}
