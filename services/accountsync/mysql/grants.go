package mysql

import "strings"

// GrantScope distinguishes where a parsed grant statement applies.
type GrantScope int

// Grant scopes: ON *.* is global, ON `db`.* is schema-scoped.
const (
	ScopeGlobal GrantScope = iota
	ScopeSchema
)

// ParsedGrant is the result of parsing one SHOW GRANTS statement.
type ParsedGrant struct {
	Scope      GrantScope
	Schema     string // empty for global scope
	Privileges []string
}

// allGlobalPrivileges is the fixed set ALL PRIVILEGES expands to at global
// scope.
var allGlobalPrivileges = []string{
	"ALTER", "ALTER ROUTINE", "CREATE", "CREATE ROLE", "CREATE ROUTINE",
	"CREATE TABLESPACE", "CREATE TEMPORARY TABLES", "CREATE USER",
	"CREATE VIEW", "DELETE", "DROP", "DROP ROLE", "EVENT", "EXECUTE",
	"FILE", "INDEX", "INSERT", "LOCK TABLES", "PROCESS", "REFERENCES",
	"RELOAD", "REPLICATION CLIENT", "REPLICATION SLAVE", "SELECT",
	"SHOW DATABASES", "SHOW VIEW", "SHUTDOWN", "SUPER", "TRIGGER", "UPDATE",
}

// allSchemaPrivileges is the fixed set ALL PRIVILEGES expands to at schema
// scope.
var allSchemaPrivileges = []string{
	"ALTER", "ALTER ROUTINE", "CREATE", "CREATE ROUTINE",
	"CREATE TEMPORARY TABLES", "CREATE VIEW", "DELETE", "DROP", "EVENT",
	"EXECUTE", "INDEX", "INSERT", "LOCK TABLES", "REFERENCES", "SELECT",
	"SHOW VIEW", "TRIGGER", "UPDATE",
}

// ParseGrant parses one statement returned by SHOW GRANTS. It recognizes
// privilege grants at global (ON *.*) and schema (ON `db`.*) scope, expands
// ALL PRIVILEGES to the fixed set for the statement's scope, folds a
// trailing WITH GRANT OPTION clause into an explicit GRANT OPTION entry, and
// drops the placeholder USAGE privilege. Role grants, proxy grants and
// object-level grants are not in scope here and report ok=false.
func ParseGrant(stmt string) (*ParsedGrant, bool) {
	s := strings.TrimSpace(stmt)
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "GRANT ") {
		return nil, false
	}

	onIdx := strings.Index(upper, " ON ")
	if onIdx < 0 {
		return nil, false
	}
	privPart := strings.TrimSpace(s[len("GRANT "):onIdx])
	rest := strings.TrimSpace(s[onIdx+len(" ON "):])

	toIdx := strings.Index(strings.ToUpper(rest), " TO ")
	if toIdx < 0 {
		return nil, false
	}
	objectPart := strings.TrimSpace(rest[:toIdx])
	tail := strings.ToUpper(strings.TrimSpace(rest[toIdx+len(" TO "):]))
	grantOption := strings.HasSuffix(tail, "WITH GRANT OPTION")

	parsed := &ParsedGrant{}
	switch {
	case objectPart == "*.*":
		parsed.Scope = ScopeGlobal
	case strings.HasSuffix(objectPart, ".*"):
		schema := strings.TrimSuffix(objectPart, ".*")
		if strings.HasPrefix(schema, "`") && strings.HasSuffix(schema, "`") && len(schema) >= 2 {
			schema = strings.ReplaceAll(schema[1:len(schema)-1], "``", "`")
		}
		if schema == "" {
			return nil, false
		}
		parsed.Scope = ScopeSchema
		parsed.Schema = schema
	default:
		// Table, routine and proxy grants are handled elsewhere.
		return nil, false
	}

	for _, priv := range splitPrivileges(privPart) {
		switch priv {
		case "USAGE":
			// USAGE is MySQL's way of saying "no privileges".
		case "ALL", "ALL PRIVILEGES":
			if parsed.Scope == ScopeGlobal {
				parsed.Privileges = append(parsed.Privileges, allGlobalPrivileges...)
			} else {
				parsed.Privileges = append(parsed.Privileges, allSchemaPrivileges...)
			}
		default:
			parsed.Privileges = append(parsed.Privileges, priv)
		}
	}

	if grantOption {
		parsed.Privileges = append(parsed.Privileges, "GRANT OPTION")
	}

	return parsed, true
}

// splitPrivileges splits the privilege list of a grant statement on commas
// outside parentheses and strips column lists, so "SELECT (`a`, `b`), INSERT"
// yields [SELECT, INSERT].
func splitPrivileges(privPart string) []string {
	var pieces []string
	depth := 0
	start := 0
	for i := 0; i < len(privPart); i++ {
		switch privPart[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				pieces = append(pieces, privPart[start:i])
				start = i + 1
			}
		}
	}
	pieces = append(pieces, privPart[start:])

	out := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if idx := strings.Index(piece, "("); idx >= 0 {
			piece = piece[:idx]
		}
		piece = strings.ToUpper(strings.TrimSpace(piece))
		if piece != "" {
			out = append(out, piece)
		}
	}
	return out
}
