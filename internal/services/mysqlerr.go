package services

import (
	"errors"
	"regexp"

	"github.com/go-sql-driver/mysql"
)

const mysqlErrDuplicateEntry = 1062

// MySQL reports the violated index as "for key 'name'" (5.7) or
// "for key 'table.name'" (8.0).
var duplicateKeyName = regexp.MustCompile(`for key '(?:[^'.]+\.)?([^']+)'`)

// duplicateKey reports whether err is a unique constraint violation and, if
// so, the name of the violated key.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlErrDuplicateEntry {
		return "", false
	}
	m := duplicateKeyName.FindStringSubmatch(me.Message)
	if m == nil {
		return "", true
	}
	return m[1], true
}
