package config

// Default configuration values.
const (
	// DefaultRegion is used when no region is configured.
	DefaultRegion = "eu-west-1"

	// DefaultMaxAttempts is the number of attempts per remote request.
	DefaultMaxAttempts = 5

	// DefaultExportFormat is the export format used when none is given.
	DefaultExportFormat = "csv"

	// DefaultRetentionDays is how long operation history is kept.
	DefaultRetentionDays = 90

	// DatabaseFileName is the catalog database file name inside DataDir.
	DatabaseFileName = "dbData.txt"

	// AccessKeyIDLength and SecretAccessKeyLength are the lengths of AWS
	// credentials.
	AccessKeyIDLength     = 20
	SecretAccessKeyLength = 40
)

// ExportFormats lists the formats accepted by export.format.
var ExportFormats = []string{"csv", "tsv", "json", "yaml", "pdf", "tree"}
