package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"

	. "github.com/jmvidalr/corredora/apps/api/echo"
	"github.com/jmvidalr/corredora/core/user"
	emailsvc "github.com/jmvidalr/corredora/services/email"
	testutil "github.com/jmvidalr/corredora/tests"
)

const testPassword = "S3gur0&Fuerte"

func Test_userApi_login(t *testing.T) {
	resetDB(t)

	ctx := context.Background()
	cliente := testutil.CreateUser(t, usrRepo, "Jane", "Doe", "janedoe", "jane@test.cl", testPassword, user.RolCliente, true)
	testutil.CreateUser(t, usrRepo, "Gone", "User", "goneuser", "gone@test.cl", testPassword, user.RolCliente, false)

	fresh := testutil.CreateUser(t, usrRepo, "Fresh", "User", "freshuser", "fresh@test.cl", testPassword, user.RolCliente, true)
	fresh.DebeCambiarPassword = true
	if _, err := usrRepo.UpdateUser(ctx, fresh); err != nil {
		t.Fatalf("UpdateUser() failed: %v", err)
	}

	tests := []httpTest{
		{
			name: "Fields are required", body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "Unknown user fails", body: marchallObj(t, LoginRequest{Username: "ghost", Password: testPassword}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password fails", body: marchallObj(t, LoginRequest{Username: "janedoe", Password: "NotIt123!"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Deactivated account forbidden", body: marchallObj(t, LoginRequest{Username: "goneuser", Password: testPassword}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "Login with username succeeds", body: marchallObj(t, LoginRequest{Username: "janedoe", Password: testPassword}), wantCode: http.StatusOK, extra: false},
		{name: "Login with email succeeds", body: marchallObj(t, LoginRequest{Username: "jane@test.cl", Password: testPassword}), wantCode: http.StatusOK, extra: false},
		{name: "Temporary password flags change", body: marchallObj(t, LoginRequest{Username: "freshuser", Password: testPassword}), wantCode: http.StatusOK, extra: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}
			assert.Equal(t, tt.wantCode, rec.Code)
			var resp LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling LoginResponse: %v", err)
			}
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, tt.extra.(bool), resp.DebeCambiarPassword)
		})
	}

	// a successful login records LastLogin
	usr, err := usrRepo.GetUser(ctx, user.GetFilter{ID: cliente.ID})
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	assert.False(t, usr.LastLogin.IsZero())
}

func Test_userApi_refreshToken(t *testing.T) {
	resetDB(t)

	cliente := testutil.CreateUser(t, usrRepo, "Jane", "Doe", "janedoe", "jane@test.cl", testPassword, user.RolCliente, true)
	naughty := testutil.CreateUser(t, usrRepo, "Bad", "Actor", "badactor", "bad@test.cl", testPassword, user.RolCliente, false)

	now := time.Now()
	unrefreshableClaims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   cliente.ID,
			Audience:  "Corredora",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Nombre:       cliente.Nombre,
		Apellido:     cliente.Apellido,
		Username:     cliente.Username,
		Email:        cliente.Email,
		Rol:          cliente.Rol,
	}
	unrefreshableToken, err := GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, cliente), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", tt.token)
			app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}
			assert.Equal(t, tt.wantCode, rec.Code)
			var resp LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling LoginResponse: %v", err)
			}
			assert.NotEmpty(t, resp.Token)
		})
	}
}

func Test_userApi_register(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, usrRepo, "Root", "Admin", "rootadmin", "admin@test.cl", testPassword, user.RolAdmin, true)
	agente := testutil.CreateUser(t, usrRepo, "Busy", "Agent", "busyagent", "agent@test.cl", testPassword, user.RolAgente, true)
	testutil.CreateUser(t, usrRepo, "Jane", "Doe", "janedoe", "jane@test.cl", testPassword, user.RolCliente, true)

	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, agente), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Fields are required", token: adminToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{Password: testPassword, PasswordConfirm: testPassword}),
			wantData: marchallObj(t, map[string]string{
				"nombre":   "this field is required",
				"apellido": "this field is required",
				"rol":      "this field is required",
				"username": "one of username or email is required",
				"email":    "one of username or email is required",
			}),
		},
		{
			name:  "Unknown rol rejected",
			token: adminToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{
				Nombre: "New", Apellido: "Guy", Username: "newguy01",
				Rol: "gerente", Password: testPassword, PasswordConfirm: testPassword,
			}),
			wantData: marchallObj(t, map[string]string{"rol": "invalid rol"}),
		},
		{
			name:  "Weak password rejected",
			token: adminToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{
				Nombre: "New", Apellido: "Guy", Username: "newguy01",
				Rol: user.RolCliente, Password: "abc", PasswordConfirm: "abc",
			}),
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
		{
			name:  "Duplicate username rejected",
			token: adminToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{
				Nombre: "Second", Apellido: "Jane", Username: "janedoe",
				Rol: user.RolCliente, Password: testPassword, PasswordConfirm: testPassword,
			}),
			wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name:  "Duplicate email rejected",
			token: adminToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{
				Nombre: "Second", Apellido: "Jane", Username: "otherjane", Email: "jane@test.cl",
				Rol: user.RolCliente, Password: testPassword, PasswordConfirm: testPassword,
			}),
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name:  "Cliente created",
			token: adminToken, wantCode: http.StatusCreated,
			body: marchallObj(t, user.NewUser{
				Nombre: "Pedro", Apellido: "Soto", Username: "pedrosoto", Email: "pedro@test.cl",
				Rol: user.RolCliente, Password: testPassword, PasswordConfirm: testPassword,
			}),
			extra: user.RolCliente,
		},
		{
			name:  "Agente created",
			token: adminToken, wantCode: http.StatusCreated,
			body: marchallObj(t, user.NewUser{
				Nombre: "Ana", Apellido: "Lopez", Username: "analopez", Email: "ana@test.cl",
				Rol: user.RolAgente, Password: testPassword, PasswordConfirm: testPassword,
			}),
			extra: user.RolAgente,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusCreated {
				checkCodeAndData(t, tt, rec)
				return
			}
			assert.Equal(t, tt.wantCode, rec.Code)
			var usr user.User
			if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
				t.Fatalf("unmarshalling User: %v", err)
			}
			assert.NotEmpty(t, usr.ID)
			assert.Equal(t, tt.extra.(string), usr.Rol)
			assert.True(t, usr.Active())
			assert.True(t, usr.DebeCambiarPassword)
		})
	}

	// new accounts get a welcome email
	assert.NotEmpty(t, emailsvc.SentMessages)
}

func Test_userApi_userQuery(t *testing.T) {
	resetDB(t)

	path := func(search, rol string, isActive *bool, createdFrom, createdTo time.Time) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if rol != "" {
			v.Add("rol", rol)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		if !createdFrom.IsZero() {
			v.Add("created_from", createdFrom.Format(time.RFC3339))
		}
		if !createdTo.IsZero() {
			v.Add("created_to", createdTo.Format(time.RFC3339))
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	now := time.Now().Truncate(time.Second) // RFC3339 query params carry no sub-second precision
	t1 := now.Add(1 * time.Hour)
	t2 := now.Add(2 * time.Hour)
	t3 := now.Add(3 * time.Hour)
	t4 := now.Add(4 * time.Hour)

	cliente1 := testutil.CreateUser(t, usrRepo, "Jane", "Doe", "janedoe", "jane@test.cl", "", user.RolCliente, true, t1)
	cliente2 := testutil.CreateUser(t, usrRepo, "Pedro", "Soto", "pedrosoto", "pedro@test.cl", "", user.RolCliente, true)
	agente := testutil.CreateUser(t, usrRepo, "Ana", "Lopez", "analopez", "ana@test.cl", "", user.RolAgente, true, t2)
	admin := testutil.CreateUser(t, usrRepo, "Root", "Admin", "rootadmin", "admin@test.cl", testPassword, user.RolAdmin, true, t3)
	naughty := testutil.CreateUser(t, usrRepo, "Bad", "Actor", "badactor", "bad@test.cl", "", user.RolCliente, false)

	adminToken := getToken(t, admin)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, cliente1), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errPermDenied),
		},
		{name: "Get all", path: "/v1/users", token: adminToken, wantData: marchallList(t, cliente1, cliente2, agente, admin, naughty)},
		// filtering
		{name: "search (unknown)", path: path("nadie", "", nil, time.Time{}, time.Time{}), token: adminToken, wantData: empty},
		{name: "search=SOTO", path: path("SOTO", "", nil, time.Time{}, time.Time{}), token: adminToken, wantData: marchallList(t, cliente2)},
		{name: "rol (unknown)", path: path("", "gerente", nil, time.Time{}, time.Time{}), token: adminToken, wantData: empty},
		{name: "rol=cliente", path: path("", user.RolCliente, nil, time.Time{}, time.Time{}), token: adminToken, wantData: marchallList(t, cliente1, cliente2, naughty)},
		{name: "rol=agente", path: path("", user.RolAgente, nil, time.Time{}, time.Time{}), token: adminToken, wantData: marchallList(t, agente)},
		{name: "is_active=true", path: path("", "", bPtr(true), time.Time{}, time.Time{}), token: adminToken, wantData: marchallList(t, cliente1, cliente2, agente, admin)},
		{name: "is_active=false", path: path("", "", bPtr(false), time.Time{}, time.Time{}), token: adminToken, wantData: marchallList(t, naughty)},
		{name: "created_from", path: path("", "", nil, t2, time.Time{}), token: adminToken, wantData: marchallList(t, agente, admin)},
		{name: "created_to", path: path("", "", nil, time.Time{}, t1), token: adminToken, wantData: marchallList(t, cliente1, cliente2, naughty)},
		{name: "created_from - created_to (empty)", path: path("", "", nil, t4, t4.Add(time.Hour)), token: adminToken, wantData: empty},
		{name: "created_from - created_to (found)", path: path("", "", nil, t1, t2), token: adminToken, wantData: marchallList(t, cliente1, agente)},
		{name: "all combo (empty)", path: path("ana", user.RolAgente, bPtr(false), time.Time{}, time.Time{}), token: adminToken, wantData: empty},
		{name: "all combo (found)", path: path("ana", user.RolAgente, bPtr(true), t1, t3), token: adminToken, wantData: marchallList(t, agente)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_retrieve(t *testing.T) {
	resetDB(t)

	cliente := testutil.CreateUser(t, usrRepo, "Jane", "Doe", "janedoe", "jane@test.cl", "", user.RolCliente, true)
	other := testutil.CreateUser(t, usrRepo, "Pedro", "Soto", "pedrosoto", "pedro@test.cl", "", user.RolCliente, true)
	admin := testutil.CreateUser(t, usrRepo, "Root", "Admin", "rootadmin", "admin@test.cl", "", user.RolAdmin, true)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/" + cliente.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Fellow user hidden", path: "/v1/users/" + other.ID, token: getToken(t, cliente),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Own account", path: "/v1/users/" + cliente.ID, token: getToken(t, cliente),
			wantCode: http.StatusOK, wantData: marchallObj(t, cliente),
		},
		{
			name: "Admin sees any account", path: "/v1/users/" + other.ID, token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, other),
		},
		{
			name: "Unknown ID", path: "/v1/users/00000000-0000-0000-0000-000000000000", token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_update(t *testing.T) {
	resetDB(t)

	cliente := testutil.CreateUser(t, usrRepo, "Jane", "Doe", "janedoe", "jane@test.cl", "", user.RolCliente, true)
	admin := testutil.CreateUser(t, usrRepo, "Root", "Admin", "rootadmin", "admin@test.cl", "", user.RolAdmin, true)
	bPtr := func(b bool) *bool { return &b }

	tests := []httpTest{
		{
			name: "Rol change is admin-only", path: "/v1/users/" + cliente.ID, token: getToken(t, cliente),
			body:     marchallObj(t, user.UpdateUser{Rol: user.RolAdmin}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Deactivation is admin-only", path: "/v1/users/" + cliente.ID, token: getToken(t, cliente),
			body:     marchallObj(t, user.UpdateUser{IsActive: bPtr(false)}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Username change is admin-only", path: "/v1/users/" + cliente.ID, token: getToken(t, cliente),
			body:     marchallObj(t, user.UpdateUser{Username: "betterjane"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Own name change allowed", path: "/v1/users/" + cliente.ID, token: getToken(t, cliente),
			body:     marchallObj(t, user.UpdateUser{Nombre: "Juana"}),
			wantCode: http.StatusOK, extra: "Juana",
		},
		{
			name: "Admin changes any account", path: "/v1/users/" + cliente.ID, token: getToken(t, admin),
			body:     marchallObj(t, user.UpdateUser{Nombre: "Juanita", Rol: user.RolAgente}),
			wantCode: http.StatusOK, extra: "Juanita",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}
			assert.Equal(t, tt.wantCode, rec.Code)
			var usr user.User
			if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
				t.Fatalf("unmarshalling User: %v", err)
			}
			assert.Equal(t, tt.extra.(string), usr.Nombre)
		})
	}

	// an admin-set password is temporary
	t.Run("Admin-set password must be changed", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Password: testPassword, PasswordConfirm: testPassword})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+cliente.ID, getToken(t, admin), body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("unmarshalling User: %v", err)
		}
		assert.True(t, usr.DebeCambiarPassword)
	})
}

func Test_userApi_changePassword(t *testing.T) {
	resetDB(t)

	ctx := context.Background()
	cliente := testutil.CreateUser(t, usrRepo, "Jane", "Doe", "janedoe", "jane@test.cl", testPassword, user.RolCliente, true)
	cliente.DebeCambiarPassword = true
	if _, err := usrRepo.UpdateUser(ctx, cliente); err != nil {
		t.Fatalf("UpdateUser() failed: %v", err)
	}

	const newPassword = "Otr0&Secreto"
	token := getToken(t, cliente)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Wrong old password", token: token,
			body:     marchallObj(t, user.ChangePassword{OldPassword: "NotIt123!", Password: newPassword, PasswordConfirm: newPassword}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"old_password": "wrong password"}),
		},
		{
			name: "Weak new password", token: token,
			body:     marchallObj(t, user.ChangePassword{OldPassword: testPassword, Password: "abc", PasswordConfirm: "abc"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
		{
			name: "Password changed", token: token,
			body:     marchallObj(t, user.ChangePassword{OldPassword: testPassword, Password: newPassword, PasswordConfirm: newPassword}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/change-password", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}
			assert.Equal(t, tt.wantCode, rec.Code)

			usr, err := usrRepo.GetUser(ctx, user.GetFilter{ID: cliente.ID})
			if err != nil {
				t.Fatalf("GetUser() failed: %v", err)
			}
			assert.NoError(t, usr.CheckPassword(newPassword))
			assert.False(t, usr.DebeCambiarPassword)
		})
	}
}

func Test_userApi_passwordReset(t *testing.T) {
	resetDB(t)

	ctx := context.Background()
	cliente := testutil.CreateUser(t, usrRepo, "Jane", "Doe", "janedoe", "jane@test.cl", testPassword, user.RolCliente, true)

	okResp := marchallObj(t, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})

	t.Run("Unknown email swallowed", func(t *testing.T) {
		body := marchallObj(t, PasswordResetRequest{Email: "ghost@test.cl"})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", body)
		app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: okResp}, rec)
		assert.Empty(t, emailsvc.SentMessages)
	})

	var uid, token string
	t.Run("Reset email sent", func(t *testing.T) {
		body := marchallObj(t, PasswordResetRequest{Email: cliente.Email})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", body)
		app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: okResp}, rec)
		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("want 1 sent message, got %d", len(emailsvc.SentMessages))
		}

		re := regexp.MustCompile(`uid=([^&\s]+)&token=([^&\s]+)`)
		match := re.FindStringSubmatch(emailsvc.SentMessages[0].Body)
		if len(match) != 3 {
			t.Fatalf("reset link not found in message body:\n%s", emailsvc.SentMessages[0].Body)
		}
		uid, token = match[1], match[2]
	})

	const newPassword = "Otr0&Secreto"

	t.Run("Bad token rejected", func(t *testing.T) {
		body := marchallObj(t, user.ResetUserPassword{UID: uid, Token: "HE4TS-sigsig-sig", Password: newPassword, PasswordConfirm: newPassword})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset-confirm", body)
		app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"token": "invalid token"}),
		}, rec)
	})

	t.Run("Password reset", func(t *testing.T) {
		body := marchallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: newPassword, PasswordConfirm: newPassword})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset-confirm", body)
		app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
		}, rec)

		usr, err := usrRepo.GetUser(ctx, user.GetFilter{ID: cliente.ID})
		if err != nil {
			t.Fatalf("GetUser() failed: %v", err)
		}
		assert.NoError(t, usr.CheckPassword(newPassword))
	})
}

func Test_userApi_destroy(t *testing.T) {
	resetDB(t)

	ctx := context.Background()
	cliente := testutil.CreateUser(t, usrRepo, "Jane", "Doe", "janedoe", "jane@test.cl", "", user.RolCliente, true)
	other := testutil.CreateUser(t, usrRepo, "Pedro", "Soto", "pedrosoto", "pedro@test.cl", "", user.RolCliente, true)
	admin := testutil.CreateUser(t, usrRepo, "Root", "Admin", "rootadmin", "admin@test.cl", "", user.RolAdmin, true)

	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/" + other.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users/" + cliente.ID, token: getToken(t, cliente),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Self-delete forbidden", path: "/v1/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{name: "Account deleted", path: "/v1/users/" + other.ID, token: adminToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodDelete, tt.path, tt.token)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				assert.Equal(t, tt.wantCode, rec.Code)
				_, err := usrRepo.GetUser(ctx, user.GetFilter{ID: other.ID})
				assert.Equal(t, user.ErrNotFound, err)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_destroyMultiple(t *testing.T) {
	resetDB(t)

	ctx := context.Background()
	cliente := testutil.CreateUser(t, usrRepo, "Jane", "Doe", "janedoe", "jane@test.cl", "", user.RolCliente, true)
	other := testutil.CreateUser(t, usrRepo, "Pedro", "Soto", "pedrosoto", "pedro@test.cl", "", user.RolCliente, true)
	admin := testutil.CreateUser(t, usrRepo, "Root", "Admin", "rootadmin", "admin@test.cl", "", user.RolAdmin, true)

	adminToken := getToken(t, admin)
	path := func(ids ...string) string {
		v := make(url.Values)
		for _, id := range ids {
			v.Add("id", id)
		}
		return "/v1/users?" + v.Encode()
	}

	t.Run("Self-delete forbidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path(cliente.ID, admin.ID), adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})

	t.Run("Accounts deleted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path(cliente.ID, other.ID), adminToken)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		for _, id := range []string{cliente.ID, other.ID} {
			_, err := usrRepo.GetUser(ctx, user.GetFilter{ID: id})
			assert.Equal(t, user.ErrNotFound, err)
		}
	})
}

func Test_userApi_queryRoles(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, usrRepo, "Root", "Admin", "rootadmin", "admin@test.cl", "", user.RolAdmin, true)

	req, rec := newAuthRequest(http.MethodGet, "/v1/users/roles", getToken(t, admin))
	app.ServeHTTP(rec, req)

	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)}, rec)
}
