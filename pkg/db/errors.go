package db

import "strings"

// IsUniqueViolation reports whether err is a Postgres unique violation,
// optionally narrowed to one constraint. Used to turn duplicate allocation
// runs and duplicate reward imports into conflict responses.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
