package models

// Engine identifies one supported database engine family.
type Engine string

// Supported engine identifiers.
const (
	EngineMySQL      Engine = "mysql"
	EnginePostgreSQL Engine = "postgresql"
	EngineSQLServer  Engine = "sqlserver"
	EngineOracle     Engine = "oracle"
)

// String returns the canonical engine identifier.
func (e Engine) String() string {
	return string(e)
}
