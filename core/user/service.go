package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/jmvidalr/corredora/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrUserExists     = errors.New("a user with this username or email already exists")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		// GetUser returns the single User matching the first set GetFilter field;
		// ErrNotFound if none matches.
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf,
	}
}

func (svc *Service) checkUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUniqueness(context.Background(), uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		case ErrUserExists:
			field = "username"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Create registers a new User. New accounts must change the password
// provided by the administrator on first login.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Nombre:              nu.Nombre,
		Apellido:            nu.Apellido,
		Username:            nu.Username,
		Email:               nu.Email,
		Rol:                 nu.Rol,
		DebeCambiarPassword: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

// Update applies uu on top of the original user. An admin-set password is
// temporary: it flips DebeCambiarPassword back on.
func (svc *Service) Update(ctx context.Context, orig User, uu UpdateUser) (User, error) {
	usr := orig
	usr.Nombre = uu.Nombre
	usr.Apellido = uu.Apellido
	usr.Username = uu.Username
	usr.Email = uu.Email
	if uu.Rol != "" {
		usr.Rol = uu.Rol
	}
	if uu.IsActive != nil {
		usr.IsActive = uu.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
		usr.DebeCambiarPassword = true
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

// ChangePassword verifies the old password and replaces it;
// a successful change clears DebeCambiarPassword.
func (svc *Service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) (User, error) {
	if err := usr.CheckPassword(cp.OldPassword); err != nil {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "old_password", Error: "wrong password"})
	}
	if err := usr.SetPassword(cp.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.DebeCambiarPassword = false
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestPasswordReset emails a password reset link to the given address if
// an active account exists for it.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.Active() {
		return ErrNotFound
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

// ResetPassword verifies the UID+token pair and sets the new password.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	fail := func() error {
		return core.NewValidationError(nil, core.FieldError{Field: "token", Error: errInvalidToken.Error()})
	}

	id, err := decodeUID(rp.UID)
	if err != nil {
		return fail()
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return fail()
		}
		return err
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "token", Error: err.Error()})
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.DebeCambiarPassword = false
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *Service) sendWelcomeMail(usr User) {
	if usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Nombre + " " + usr.Apellido, Address: usr.Email}},
		Subject: "Bienvenido a " + svc.conf.AppName,
		Body: fmt.Sprintf(
			"Hola %s,\n\nSe ha creado una cuenta para ti en %s.\n"+
				"Inicia sesión con tu contraseña temporal y cámbiala de inmediato.\n\n%s",
			usr.Nombre, svc.conf.AppName, svc.conf.FrontendBaseURL,
		),
	})
}

func (svc *Service) sendPasswordResetMail(usr User) {
	resetURL := fmt.Sprintf(
		"%s/password-reset-confirm?uid=%s&token=%s",
		svc.conf.FrontendBaseURL, EncodeUID(usr), makeToken(usr),
	)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Nombre + " " + usr.Apellido, Address: usr.Email}},
		Subject: "Restablecimiento de contraseña",
		Body: fmt.Sprintf(
			"Hola %s,\n\nRecibimos una solicitud para restablecer tu contraseña.\n"+
				"Visita el siguiente enlace para continuar:\n\n%s\n\n"+
				"Si no solicitaste este cambio, ignora este correo.",
			usr.Nombre, resetURL,
		),
	})
}
