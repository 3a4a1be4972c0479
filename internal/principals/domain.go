package principals

import (
	"errors"

	"github.com/odyssey-hr/odyssey-hr/internal/access"
)

// ErrNotFound indicates that no account exists for the requested id.
var ErrNotFound = errors.New("principals: not found")

// Record is the stored snapshot of an account and its resolved grants. It is the
// unit cached in Redis.
type Record struct {
	ID          int64                  `json:"id"`
	Role        string                 `json:"role"`
	Status      string                 `json:"status"`
	Permissions []access.RawPermission `json:"permissions"`
}

// Principal converts the record into the immutable value consumed by the access
// package. Malformed permission rows are dropped and returned for reporting.
func (r Record) Principal() (*access.Principal, []access.RawPermission) {
	set, rejected := access.PermissionSetFromRaw(r.Permissions)
	return &access.Principal{
		ID:          r.ID,
		Role:        access.Role{Name: r.Role},
		Status:      access.ParseStatus(r.Status),
		Permissions: set,
	}, rejected
}
