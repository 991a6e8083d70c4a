package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/stemkit-identity/internal/models"
	"github.com/noah-isme/stemkit-identity/internal/repository"
)

// Clock supplies the current time to token and ledger operations.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// UserStore is the credential store consumed by the identity flows.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByLogin(ctx context.Context, login string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) (bool, error)
	IsActive(ctx context.Context, id string) (bool, error)
}

// RoleStore reads roles and links them to users.
type RoleStore interface {
	FindByName(ctx context.Context, name string) (*models.Role, error)
	AssignToUser(ctx context.Context, userID string, roleID int64) error
	NamesForUser(ctx context.Context, userID string) ([]string, error)
}

// ProfileStore writes role-specific profiles.
type ProfileStore interface {
	CreateCustomer(ctx context.Context, profile *models.CustomerProfile) error
	CreateStaff(ctx context.Context, profile *models.StaffProfile) error
}

// PermissionStore manages user permission grants.
type PermissionStore interface {
	FindByNames(ctx context.Context, names []string) ([]models.Permission, error)
	IDsForUser(ctx context.Context, userID string) ([]int64, error)
	Grant(ctx context.Context, grant *models.UserPermission) error
	ListForUser(ctx context.Context, userID string) ([]models.UserPermissionDetail, error)
	HasPermission(ctx context.Context, userID, name string) (bool, error)
}

// RefreshTokenStore persists refresh tokens.
type RefreshTokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeIfActive(ctx context.Context, token string, revokedAt time.Time, revokedByIP string, replacedBy *string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string, revokedAt time.Time, revokedByIP string) (int64, error)
	Delete(ctx context.Context, token string) (bool, error)
}

// AuditStore appends audit records.
type AuditStore interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// Stores groups the typed accessors bound to one connection or transaction.
type Stores struct {
	Users         UserStore
	Roles         RoleStore
	Profiles      ProfileStore
	Permissions   PermissionStore
	RefreshTokens RefreshTokenStore
}

// TxRunner executes fn with stores bound to a single transaction. The
// transaction commits only when fn returns nil.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(Stores) error) error
}

// SQLStores binds every accessor to q.
func SQLStores(q repository.Queryer) Stores {
	return Stores{
		Users:         repository.NewUserRepository(q),
		Roles:         repository.NewRoleRepository(q),
		Profiles:      repository.NewProfileRepository(q),
		Permissions:   repository.NewPermissionRepository(q),
		RefreshTokens: repository.NewRefreshTokenRepository(q),
	}
}

type sqlTxRunner struct {
	tm *repository.TxManager
}

// NewSQLTxRunner adapts a TxManager to TxRunner.
func NewSQLTxRunner(tm *repository.TxManager) TxRunner {
	return &sqlTxRunner{tm: tm}
}

func (r *sqlTxRunner) WithinTx(ctx context.Context, fn func(Stores) error) error {
	return r.tm.WithinTx(ctx, func(tx *sqlx.Tx) error {
		return fn(SQLStores(tx))
	})
}
