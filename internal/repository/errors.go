// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// services and handlers to distinguish between failure scenarios without
// inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateRoll is returned when a registration for the same child roll
// number already exists.  The unique index enforces it at write time.
var ErrDuplicateRoll = errors.New("child roll already registered")

// ErrDuplicateTicket is returned when a generated ticket number collides
// with an existing one.  Callers regenerate and retry.
var ErrDuplicateTicket = errors.New("ticket number already issued")

// ErrEmailExists is returned when a staff account with the same email
// already exists.
var ErrEmailExists = errors.New("email already exists")

// uniqueViolation reports whether err is a unique-key violation from MySQL
// (1062) or SQLite, returning the driver message that names the key.
func uniqueViolation(err error) (string, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return me.Message, true
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return se.Error(), true
	}
	return "", false
}
