package token

import "strings"

// keywords maps the canonical uppercase spelling to its Token kind.
// Recognition is case-insensitive; Lookup upper-cases its input first.
var keywords = map[string]Token{
	"SELECT":  SELECT,
	"FROM":    FROM,
	"WHERE":   WHERE,
	"CREATE":  CREATE,
	"TABLE":   TABLE,
	"INSERT":  INSERT,
	"INTO":    INTO,
	"VALUES":  VALUES,
	"DELETE":  DELETE,
	"UPDATE":  UPDATE,
	"SET":     SET,
	"INT":     INT,
	"VARCHAR": VARCHAR,
	"COUNT":   COUNT,
	"SUM":     SUM,
	"AVG":     AVG,
	"MAX":     MAX,
	"MIN":     MIN,
	"GROUP":   GROUP,
	"BY":      BY,
	"ORDER":   ORDER,
	"ASC":     ASC,
	"DESC":    DESC,
	"LIMIT":   LIMIT,
	"INDEX":   INDEX,
	"UNIQUE":  UNIQUE,
	"DROP":    DROP,
	"ON":      ON,
	"AND":     AND,
	"OR":      OR,
	"NOT":     NOT,
	"AS":      AS,
}

// Lookup returns the Token kind for ident if it is a reserved keyword
// (case-insensitive), or IDENT otherwise.
func Lookup(ident string) Token {
	if tok, ok := keywords[strings.ToUpper(ident)]; ok {
		return tok
	}
	return IDENT
}
