package provisioning

import (
	"fmt"
	"strings"

	"github.com/stackrox/mongo-tenant-manager/pkg/directory"
)

// maxDatabaseNameLength is MongoDB's limit on database names, in bytes.
const maxDatabaseNameLength = 64

const invalidDatabaseNameChars = "/\\. \"$*<>:|?\x00"

func validateRequest(req Request) error {
	if req.Database == "" {
		return fmt.Errorf("dbName is required")
	}
	if req.User == "" {
		return fmt.Errorf("user is required")
	}
	return validateDatabaseName(req.Database)
}

func validateDatabaseName(name string) error {
	if len(name) >= maxDatabaseNameLength {
		return fmt.Errorf("dbName %q is not valid. It must be shorter than %d bytes", name, maxDatabaseNameLength)
	}
	if i := strings.IndexAny(name, invalidDatabaseNameChars); i >= 0 {
		return fmt.Errorf("dbName %q is not valid. It must not contain %q", name, name[i])
	}
	if directory.IsReservedDatabase(name) {
		return fmt.Errorf("dbName %q is reserved", name)
	}
	return nil
}
