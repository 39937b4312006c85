package repo

import (
	"database/sql"
	"errors"
)

// Repo is the storage layer. It performs no access checks; callers
// (the collaboration service) are expected to have authorized the
// operation already.
type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}
