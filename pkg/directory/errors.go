package directory

import (
	"errors"
	"strings"

	"github.com/juju/mgo/v3"
)

// MongoDB server error codes, see src/mongo/base/error_codes.yml.
const (
	codeAuthenticationFailed = 18
	codeUserAlreadyExists    = 51003
)

func isDuplicateUser(err error) bool {
	if err == nil {
		return false
	}
	var queryErr *mgo.QueryError
	if errors.As(err, &queryErr) && queryErr.Code == codeUserAlreadyExists {
		return true
	}
	// Servers before 3.6 report the conflict without a dedicated code.
	return strings.Contains(err.Error(), "already exists")
}

func isAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	var queryErr *mgo.QueryError
	if errors.As(err, &queryErr) && queryErr.Code == codeAuthenticationFailed {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "authentication failed")
}
