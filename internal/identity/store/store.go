package store

import (
	"context"
	"errors"
	"time"

	"github.com/arcwell/identity/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrReferenced is returned when a delete would orphan rows that still
	// point at the record (e.g. deleting a role users are assigned to).
	ErrReferenced = errors.New("store: still referenced")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. Sub-repositories keep concerns tidy and let
// services depend on exactly the slice of storage they use.
type Store interface {
	Users() Users
	Roles() Roles
	Permissions() Permissions
	OTPs() OTPs
	TokenBlacklist() TokenBlacklist

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to run multi-step mutations that must be atomic
	// (e.g. OTP invalidate-then-create).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user and returns its generated id.
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) (int64, error)

	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByEmail expects a normalized (lowercase) address.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	ListUsers(ctx context.Context, offset, limit int) ([]domain.User, error)

	// UpdateProfile mutates name, email and role reference; bumps updated_at.
	UpdateProfile(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID int64, newHash string) error

	// SetVerified flips the verification flag.
	SetVerified(ctx context.Context, userID int64, verified bool) error

	// UpdateLastActive stamps the last_active column.
	UpdateLastActive(ctx context.Context, userID int64, at time.Time) error

	// DeactivateUser is the soft delete: the row persists with is_active=0.
	DeactivateUser(ctx context.Context, userID int64) error

	// DeleteUser hard-deletes; OTP rows cascade per schema.
	DeleteUser(ctx context.Context, userID int64) error

	// CountByRole reports how many users reference a role.
	CountByRole(ctx context.Context, roleID int64) (int, error)
}

type Roles interface {
	// CreateRole inserts a new role and returns its generated id.
	// Returns ErrAlreadyExists when the name is taken.
	CreateRole(ctx context.Context, r domain.Role) (int64, error)

	GetRoleByID(ctx context.Context, id int64) (domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)
	ListRoles(ctx context.Context, offset, limit int) ([]domain.Role, error)

	// DeleteRole removes a role. Returns ErrReferenced while users still
	// point at it (FK RESTRICT backs this).
	DeleteRole(ctx context.Context, roleID int64) error

	// ListRolePermissions returns the role's permission set.
	ListRolePermissions(ctx context.Context, roleID int64) ([]domain.Permission, error)

	// AddPermissionToRole is idempotent: adding a present pair is a no-op.
	AddPermissionToRole(ctx context.Context, roleID, permissionID int64) error

	// RemovePermissionFromRole is idempotent: removing an absent pair is a no-op.
	RemovePermissionFromRole(ctx context.Context, roleID, permissionID int64) error
}

type Permissions interface {
	// CreatePermission inserts a new permission and returns its generated id.
	// Returns ErrAlreadyExists when the name is taken.
	CreatePermission(ctx context.Context, p domain.Permission) (int64, error)

	GetPermissionByID(ctx context.Context, id int64) (domain.Permission, error)
	GetPermissionByName(ctx context.Context, name string) (domain.Permission, error)
	ListPermissions(ctx context.Context, offset, limit int) ([]domain.Permission, error)
	DeletePermission(ctx context.Context, permissionID int64) error

	// ListUserPermissions resolves user -> role -> permission names in one
	// query. Users without a role get an empty set.
	ListUserPermissions(ctx context.Context, userID int64) ([]string, error)
}

type OTPs interface {
	// CreateOTP persists a freshly generated code and returns its id.
	CreateOTP(ctx context.Context, otp domain.OTP) (int64, error)

	// GetValidOTP finds the unused, unexpired OTP matching all three fields.
	GetValidOTP(ctx context.Context, email, code string, purpose domain.OTPPurpose, now time.Time) (domain.OTP, error)

	// GetLatestOTP returns the most recent OTP for the pair regardless of
	// validity; used to disambiguate verification failures.
	GetLatestOTP(ctx context.Context, email string, purpose domain.OTPPurpose) (domain.OTP, error)

	// MarkOTPUsed transitions a code to its terminal state. Returns
	// ErrNotFound when the code does not exist or was already used, so
	// concurrent consumers cannot both succeed.
	MarkOTPUsed(ctx context.Context, id int64) error

	// InvalidateOTPs marks every unused OTP for the pair as used, so a new
	// code is the only one that can verify.
	InvalidateOTPs(ctx context.Context, email string, purpose domain.OTPPurpose) error

	// DeleteExpiredOTPs is housekeeping; returns the number of rows removed.
	DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

type TokenBlacklist interface {
	// AddToken records a revoked token until its natural expiry.
	// Returns ErrAlreadyExists when the token is already blacklisted.
	AddToken(ctx context.Context, token string, expiresAt time.Time) error

	IsBlacklisted(ctx context.Context, token string) (bool, error)

	// DeleteExpiredTokens is housekeeping; returns the number of rows removed.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}
