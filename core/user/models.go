package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-playground/validator/v10"

	"github.com/jmvidalr/corredora/core"
)

// Roles
const (
	RolCliente = "cliente"
	RolAgente  = "agente"
	RolAdmin   = "administrador"
)

var (
	AllRoles = []string{RolCliente, RolAgente, RolAdmin}

	Roles = []Role{
		{Name: "Cliente", Value: RolCliente},
		{Name: "Agente", Value: RolAgente},
		{Name: "Administrador", Value: RolAdmin},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID                  string    `json:"id"`
	Nombre              string    `json:"nombre"`
	Apellido            string    `json:"apellido"`
	Username            string    `json:"username"`
	Email               string    `json:"email"`
	Rol                 string    `json:"rol"`
	IsActive            *bool     `json:"is_active"`
	DebeCambiarPassword bool      `json:"debe_cambiar_password"`
	PasswordHash        []byte    `json:"-"`
	CreatedAt           time.Time `json:"created_at"` // UTC
	UpdatedAt           time.Time `json:"updated_at"` // UTC
	LastLogin           time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

func (u *User) Active() bool {
	return u.IsActive != nil && *u.IsActive
}

func (u *User) IsCliente() bool { return u.Rol == RolCliente }
func (u *User) IsAgente() bool  { return u.Rol == RolAgente }
func (u *User) IsAdmin() bool   { return u.Rol == RolAdmin }

// IsStaff reports whether the user reviews contracts and claims.
func (u *User) IsStaff() bool { return u.IsAgente() || u.IsAdmin() }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Nombre          string `json:"nombre" validate:"required"`
	Apellido        string `json:"apellido" validate:"required"`
	Username        string `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Rol             string `json:"rol" validate:"required,allroles"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Nombre = core.CleanString(nu.Nombre)
	nu.Apellido = core.CleanString(nu.Apellido)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Nombre          string `json:"nombre"`
	Apellido        string `json:"apellido"`
	Username        string `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Rol             string `json:"rol" validate:"omitempty,allroles"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc *Service) error {
	if nombre := core.CleanString(uu.Nombre); nombre != "" {
		uu.Nombre = nombre
	} else {
		uu.Nombre = origUsr.Nombre
	}
	if apellido := core.CleanString(uu.Apellido); apellido != "" {
		uu.Apellido = apellido
	} else {
		uu.Apellido = origUsr.Apellido
	}
	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.checkUniqueness(uu.Username, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

// ChangePassword is the authenticated password change payload.
// A successful change clears User.DebeCambiarPassword.
type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(cp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Rol         string    `query:"rol"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Rol == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Rol = core.CleanString(qf.Rol, true /* lower */)
}

// GetFilter selects a single User; first set field wins.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}
