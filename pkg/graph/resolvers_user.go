package graph

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"lireddit/pkg/session"
	"lireddit/pkg/user"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"golang.org/x/crypto/argon2"
)

const (
	sessionLifetime    = 24 * time.Hour
	mysqlDuplicateCode = 1062
)

// UserResponse is the payload of every auth flow: either a list of
// field-scoped errors, or the user plus a fresh session token.
type UserResponse struct {
	Errors []*FieldError `json:"errors"`
	User   *user.User    `json:"user"`
	Token  string        `json:"token"`
}

func HashPass(salt []byte, plainPassword string) []byte {
	hashedPass := argon2.IDKey([]byte(plainPassword), salt, 1, 64*1024, 4, 32)
	return append(salt, hashedPass...)
}

func checkPass(passHash []byte, plainPassword string) bool {
	if len(passHash) < 8 {
		return false
	}
	salt := make([]byte, 8)
	copy(salt, passHash[0:8])
	return bytes.Equal(HashPass(salt, plainPassword), passHash)
}

func newPassHash(plainPassword string) []byte {
	salt := make([]byte, 8)
	rand.Read(salt)
	return HashPass(salt, plainPassword)
}

func (rv *Resolver) signIn(ctx context.Context, u *user.User) (string, error) {
	sessID := uuid.New().String()
	expiresAt := time.Now().Add(sessionLifetime).Unix()
	return rv.Sm.Create(ctx, &session.User{ID: u.ID, Username: u.Username}, sessID, expiresAt)
}

// resolveUserResponseErrors keeps the errors field null on a clean response.
// The default resolver would complete a nil slice as an empty list, and
// clients test the field's presence, not its length.
func (rv *Resolver) resolveUserResponseErrors(p graphql.ResolveParams) (interface{}, error) {
	resp, ok := p.Source.(*UserResponse)
	if !ok {
		return nil, fmt.Errorf("errors: unexpected source %T", p.Source)
	}

	if len(resp.Errors) == 0 {
		return nil, nil
	}

	return resp.Errors, nil
}

func (rv *Resolver) resolveMe(p graphql.ResolveParams) (interface{}, error) {
	sess, err := session.SessionFromContext(p.Context)
	if err != nil {
		return nil, nil
	}

	u, err := rv.UsersRepo.GetByID(p.Context, sess.User.ID)
	if err != nil {
		rv.Logger.Errorf("me query failed: %v", err)
		return nil, err
	}
	if u == nil {
		return nil, nil
	}

	return u, nil
}

func (rv *Resolver) resolveRegister(p graphql.ResolveParams) (interface{}, error) {
	options, _ := p.Args["options"].(map[string]interface{})
	username, _ := options["username"].(string)
	email, _ := options["email"].(string)
	password, _ := options["password"].(string)

	if validationErrors := validateRegister(username, email, password); len(validationErrors) > 0 {
		return &UserResponse{Errors: validationErrors}, nil
	}

	u := &user.User{
		Username: username,
		Email:    email,
		Password: newPassHash(password),
	}

	_, err := rv.UsersRepo.Add(p.Context, u)
	if err != nil {
		if fieldErr := duplicateKeyError(err); fieldErr != nil {
			return &UserResponse{Errors: []*FieldError{fieldErr}}, nil
		}
		rv.Logger.Errorf("register failed: %v", err)
		return nil, err
	}

	token, err := rv.signIn(p.Context, u)
	if err != nil {
		rv.Logger.Errorf("register sign-in failed: %v", err)
		return nil, err
	}

	return &UserResponse{User: u, Token: token}, nil
}

// duplicateKeyError translates a MySQL 1062 into a field-scoped error instead
// of leaking the raw constraint violation.
func duplicateKeyError(err error) *FieldError {
	mysqlErr, ok := err.(*mysql.MySQLError)
	if !ok || mysqlErr.Number != mysqlDuplicateCode {
		return nil
	}

	if strings.Contains(mysqlErr.Message, "email") {
		return &FieldError{Field: "email", Message: "already taken"}
	}

	return &FieldError{Field: "username", Message: "already taken"}
}

func (rv *Resolver) resolveLogin(p graphql.ResolveParams) (interface{}, error) {
	usernameOrEmail, _ := p.Args["usernameOrEmail"].(string)
	password, _ := p.Args["password"].(string)

	var (
		u   *user.User
		err error
	)
	if strings.Contains(usernameOrEmail, "@") {
		u, err = rv.UsersRepo.GetByEmail(p.Context, usernameOrEmail)
	} else {
		u, err = rv.UsersRepo.GetByUsername(p.Context, usernameOrEmail)
	}
	if err != nil {
		rv.Logger.Errorf("login failed: %v", err)
		return nil, err
	}

	if u == nil {
		return &UserResponse{Errors: []*FieldError{
			{Field: "usernameOrEmail", Message: "that account doesn't exist"},
		}}, nil
	}

	if !checkPass(u.Password, password) {
		return &UserResponse{Errors: []*FieldError{
			{Field: "password", Message: "incorrect password"},
		}}, nil
	}

	token, err := rv.signIn(p.Context, u)
	if err != nil {
		rv.Logger.Errorf("login sign-in failed: %v", err)
		return nil, err
	}

	return &UserResponse{User: u, Token: token}, nil
}

func (rv *Resolver) resolveLogout(p graphql.ResolveParams) (interface{}, error) {
	sess, err := session.SessionFromContext(p.Context)
	if err != nil {
		return false, nil
	}

	if err := rv.Sm.Destroy(p.Context, sess); err != nil {
		rv.Logger.Errorf("logout failed: %v", err)
		return false, nil
	}

	return true, nil
}

func (rv *Resolver) resolveForgotPassword(p graphql.ResolveParams) (interface{}, error) {
	email, _ := p.Args["email"].(string)

	u, err := rv.UsersRepo.GetByEmail(p.Context, email)
	if err != nil {
		rv.Logger.Errorf("forgotPassword lookup failed: %v", err)
		return nil, err
	}
	if u == nil {
		// unknown address still reports success, no account enumeration
		return true, nil
	}

	token, err := rv.ResetTokens.Issue(p.Context, u.ID)
	if err != nil {
		rv.Logger.Errorf("forgotPassword token failed: %v", err)
		return nil, err
	}

	link := rv.FrontendURL + "/change-password/" + token
	if err := rv.Mailer.SendPasswordReset(p.Context, email, link); err != nil {
		rv.Logger.Errorf("forgotPassword mail failed: %v", err)
		return nil, err
	}

	return true, nil
}

func (rv *Resolver) resolveChangePassword(p graphql.ResolveParams) (interface{}, error) {
	token, _ := p.Args["token"].(string)
	newPassword, _ := p.Args["newPassword"].(string)

	pwd := &fieldValidator{field: "newPassword", value: newPassword}
	if verr := pwd.minLength(3); verr != nil {
		return &UserResponse{Errors: []*FieldError{verr}}, nil
	}

	userID, err := rv.ResetTokens.Redeem(p.Context, token)
	if err != nil {
		rv.Logger.Errorf("changePassword redeem failed: %v", err)
		return nil, err
	}
	if userID == 0 {
		return &UserResponse{Errors: []*FieldError{
			{Field: "token", Message: "token expired"},
		}}, nil
	}

	u, err := rv.UsersRepo.GetByID(p.Context, userID)
	if err != nil {
		rv.Logger.Errorf("changePassword lookup failed: %v", err)
		return nil, err
	}
	if u == nil {
		return &UserResponse{Errors: []*FieldError{
			{Field: "token", Message: "user no longer exists"},
		}}, nil
	}

	if err := rv.UsersRepo.UpdatePassword(p.Context, u.ID, newPassHash(newPassword)); err != nil {
		rv.Logger.Errorf("changePassword update failed: %v", err)
		return nil, err
	}

	if err := rv.ResetTokens.Revoke(p.Context, token); err != nil {
		rv.Logger.Errorf("changePassword revoke failed: %v", err)
		return nil, err
	}

	// a leaked password may have live sessions, drop them all
	if err := rv.Sm.DestroyAll(p.Context, &session.User{ID: u.ID, Username: u.Username}); err != nil {
		rv.Logger.Errorf("changePassword destroy sessions failed: %v", err)
		return nil, err
	}

	newToken, err := rv.signIn(p.Context, u)
	if err != nil {
		rv.Logger.Errorf("changePassword sign-in failed: %v", err)
		return nil, err
	}

	return &UserResponse{User: u, Token: newToken}, nil
}

// resolveUserEmail hides the address from everyone but its owner.
func (rv *Resolver) resolveUserEmail(p graphql.ResolveParams) (interface{}, error) {
	u, ok := p.Source.(*user.User)
	if !ok {
		return nil, fmt.Errorf("email: unexpected source %T", p.Source)
	}

	sess, err := session.SessionFromContext(p.Context)
	if err == nil && sess.User.ID == u.ID {
		return u.Email, nil
	}

	return "", nil
}

func (rv *Resolver) resolveUserCreatedAt(p graphql.ResolveParams) (interface{}, error) {
	u, ok := p.Source.(*user.User)
	if !ok {
		return nil, fmt.Errorf("createdAt: unexpected source %T", p.Source)
	}

	return formatTimestamp(u.Created), nil
}

func (rv *Resolver) resolveUserUpdatedAt(p graphql.ResolveParams) (interface{}, error) {
	u, ok := p.Source.(*user.User)
	if !ok {
		return nil, fmt.Errorf("updatedAt: unexpected source %T", p.Source)
	}

	return formatTimestamp(u.Updated), nil
}
