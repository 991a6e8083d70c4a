package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/noah-isme/stemkit-identity/internal/models"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

type memData struct {
	users         map[string]models.User
	userRoles     []models.UserRole
	customers     []models.CustomerProfile
	staff         []models.StaffProfile
	grants        []models.UserPermission
	refreshTokens map[string]models.RefreshToken
}

func (d memData) clone() memData {
	out := memData{
		users:         make(map[string]models.User, len(d.users)),
		userRoles:     append([]models.UserRole(nil), d.userRoles...),
		customers:     append([]models.CustomerProfile(nil), d.customers...),
		staff:         append([]models.StaffProfile(nil), d.staff...),
		grants:        append([]models.UserPermission(nil), d.grants...),
		refreshTokens: make(map[string]models.RefreshToken, len(d.refreshTokens)),
	}
	for k, v := range d.users {
		out.users[k] = v
	}
	for k, v := range d.refreshTokens {
		out.refreshTokens[k] = v
	}
	return out
}

// memStore is an in-memory implementation of every store. Transactions are
// serialised and roll back by restoring a snapshot.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	data        memData
	roles       []models.Role
	permissions []models.Permission
	failures    map[string]error
	audits      []models.AuditLog
}

func newMemStore() *memStore {
	desc := "Shop as a customer"
	return &memStore{
		data: memData{
			users:         map[string]models.User{},
			refreshTokens: map[string]models.RefreshToken{},
		},
		roles: []models.Role{
			{ID: 1, Name: models.RoleCustomer},
			{ID: 2, Name: models.RoleStaff},
			{ID: 3, Name: models.RoleManager},
		},
		permissions: []models.Permission{
			{ID: 10, Name: models.RoleCustomer, Description: &desc},
			{ID: 11, Name: models.RoleStaff},
			{ID: 12, Name: models.RoleManager},
		},
		failures: map[string]error{},
	}
}

func (m *memStore) stores() Stores {
	return Stores{Users: m, Roles: memRoles{m}, Profiles: m, Permissions: memPermissions{m}, RefreshTokens: memTokens{m}}
}

func (m *memStore) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

func (m *memStore) fail(op string) error {
	return m.failures[op]
}

func (m *memStore) WithinTx(ctx context.Context, fn func(Stores) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.data.clone()
	m.mu.Unlock()

	if err := fn(m.stores()); err != nil {
		m.mu.Lock()
		m.data = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) counts() (users, userRoles, profiles, tokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data.users), len(m.data.userRoles), len(m.data.customers) + len(m.data.staff), len(m.data.refreshTokens)
}

func (m *memStore) tokensFor(userID string) []models.RefreshToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RefreshToken
	for _, t := range m.data.refreshTokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

// users

func (m *memStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("users.FindByID"); err != nil {
		return nil, err
	}
	u, ok := m.data.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (m *memStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *memStore) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	if err := m.fail("users.FindByLogin"); err != nil {
		return nil, err
	}
	return m.findUser(func(u models.User) bool {
		return strings.EqualFold(u.Email, login) || strings.EqualFold(u.Username, login)
	})
}

func (m *memStore) findUser(match func(models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.data.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	_, err := m.findUser(func(u models.User) bool {
		return strings.EqualFold(u.Username, username) || strings.EqualFold(u.Email, email)
	})
	return err == nil, nil
}

func (m *memStore) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("users.Create"); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	m.data.users[user.ID] = *user
	return nil
}

func (m *memStore) SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.data.users[id]
	if !ok || u.Active == active {
		return false, nil
	}
	u.Active = active
	u.UpdatedAt = updatedAt
	m.data.users[id] = u
	return true, nil
}

func (m *memStore) IsActive(ctx context.Context, id string) (bool, error) {
	u, err := m.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.Active, nil
}

// profiles

func (m *memStore) CreateCustomer(ctx context.Context, profile *models.CustomerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("profiles.CreateCustomer"); err != nil {
		return err
	}
	m.data.customers = append(m.data.customers, *profile)
	return nil
}

func (m *memStore) CreateStaff(ctx context.Context, profile *models.StaffProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.staff = append(m.data.staff, *profile)
	return nil
}

// audit

func (m *memStore) recordAudit(ctx context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, *entry)
	return nil
}

type memAudit struct{ *memStore }

func (a memAudit) Create(ctx context.Context, entry *models.AuditLog) error {
	return a.recordAudit(ctx, entry)
}

// roles

type memRoles struct{ *memStore }

func (r memRoles) FindByName(ctx context.Context, name string) (*models.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.roles {
		if strings.EqualFold(role.Name, name) {
			role := role
			return &role, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memRoles) AssignToUser(ctx context.Context, userID string, roleID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("roles.AssignToUser"); err != nil {
		return err
	}
	for _, ur := range r.data.userRoles {
		if ur.UserID == userID && ur.RoleID == roleID {
			return appErrors.Clone(appErrors.ErrAlreadyExists, "duplicate user role")
		}
	}
	r.data.userRoles = append(r.data.userRoles, models.UserRole{UserID: userID, RoleID: roleID})
	return nil
}

func (r memRoles) NamesForUser(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("roles.NamesForUser"); err != nil {
		return nil, err
	}
	var names []string
	for _, ur := range r.data.userRoles {
		if ur.UserID != userID {
			continue
		}
		for _, role := range r.roles {
			if role.ID == ur.RoleID {
				names = append(names, role.Name)
			}
		}
	}
	return names, nil
}

// permissions

type memPermissions struct{ *memStore }

func (p memPermissions) FindByNames(ctx context.Context, names []string) ([]models.Permission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Permission
	for _, perm := range p.permissions {
		for _, n := range names {
			if strings.EqualFold(perm.Name, n) {
				out = append(out, perm)
				break
			}
		}
	}
	return out, nil
}

func (p memPermissions) IDsForUser(ctx context.Context, userID string) ([]int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []int64
	for _, g := range p.data.grants {
		if g.UserID == userID {
			ids = append(ids, g.PermissionID)
		}
	}
	return ids, nil
}

func (p memPermissions) Grant(ctx context.Context, grant *models.UserPermission) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail("permissions.Grant"); err != nil {
		return err
	}
	p.data.grants = append(p.data.grants, *grant)
	return nil
}

func (p memPermissions) ListForUser(ctx context.Context, userID string) ([]models.UserPermissionDetail, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.UserPermissionDetail
	for _, g := range p.data.grants {
		if g.UserID != userID {
			continue
		}
		for _, perm := range p.permissions {
			if perm.ID != g.PermissionID {
				continue
			}
			detail := models.UserPermissionDetail{PermissionID: perm.ID, PermissionName: perm.Name, Description: perm.Description}
			if assigner, ok := p.data.users[g.AssignedBy]; ok {
				detail.AssignedBy = assigner.FullName
			}
			out = append(out, detail)
		}
	}
	return out, nil
}

func (p memPermissions) HasPermission(ctx context.Context, userID, name string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, g := range p.data.grants {
		if g.UserID != userID {
			continue
		}
		for _, perm := range p.permissions {
			if perm.ID == g.PermissionID && strings.EqualFold(perm.Name, name) {
				return true, nil
			}
		}
	}
	return false, nil
}

// refresh tokens

type memTokens struct{ *memStore }

func (t memTokens) Create(ctx context.Context, token *models.RefreshToken) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.fail("tokens.Create"); err != nil {
		return err
	}
	if _, exists := t.data.refreshTokens[token.Token]; exists {
		return appErrors.Clone(appErrors.ErrAlreadyExists, "duplicate refresh token")
	}
	t.data.refreshTokens[token.Token] = *token
	return nil
}

func (t memTokens) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rt, ok := t.data.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &rt, nil
}

func (t memTokens) RevokeIfActive(ctx context.Context, token string, revokedAt time.Time, revokedByIP string, replacedBy *string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rt, ok := t.data.refreshTokens[token]
	if !ok || !rt.IsActive(revokedAt) {
		return false, nil
	}
	rt.RevokedAt = &revokedAt
	rt.RevokedByIP = &revokedByIP
	rt.ReplacedByToken = replacedBy
	t.data.refreshTokens[token] = rt
	return true, nil
}

func (t memTokens) RevokeAllForUser(ctx context.Context, userID string, revokedAt time.Time, revokedByIP string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int64
	for k, rt := range t.data.refreshTokens {
		if rt.UserID != userID || !rt.IsActive(revokedAt) {
			continue
		}
		at, ip := revokedAt, revokedByIP
		rt.RevokedAt = &at
		rt.RevokedByIP = &ip
		t.data.refreshTokens[k] = rt
		n++
	}
	return n, nil
}

func (t memTokens) Delete(ctx context.Context, token string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.data.refreshTokens[token]; !ok {
		return false, nil
	}
	delete(t.data.refreshTokens, token)
	return true, nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func uniqueViolation() error {
	return &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
}
