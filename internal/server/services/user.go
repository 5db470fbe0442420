// Package services contains server-side business logic. UserService runs
// the account flows (login, registration, profile management, username and
// password recovery) on top of the token codec, the password hasher, the
// reset ledger and the mailer.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/common"
	"github.com/dmitrijs2005/idkeeper/internal/cryptox"
	"github.com/dmitrijs2005/idkeeper/internal/dbx"
	"github.com/dmitrijs2005/idkeeper/internal/logging"
	"github.com/dmitrijs2005/idkeeper/internal/server/auth"
	"github.com/dmitrijs2005/idkeeper/internal/server/config"
	"github.com/dmitrijs2005/idkeeper/internal/server/mail"
	"github.com/dmitrijs2005/idkeeper/internal/server/models"
	"github.com/dmitrijs2005/idkeeper/internal/server/repositories/repomanager"
)

// Role sets used by the gated operations.
var (
	everyoneRoles = []models.Role{models.RoleAdmin, models.RoleHR, models.RoleManager, models.RoleGeneral}
	staffRoles    = []models.Role{models.RoleAdmin, models.RoleHR, models.RoleManager}
	roleGranters  = []models.Role{models.RoleAdmin, models.RoleHR}
)

// LoginResult is returned by a successful Login.
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *auth.Codec
	authz       *auth.Authorizer
	hasher      *cryptox.Hasher
	ledger      *ResetLedger
	mailer      *mail.Mailer
	validator   *inputValidator
	logger      logging.Logger

	sessionTTL time.Duration
	itRoles    []models.Role
	now        func() time.Time

	// compared against on unknown usernames so both login failures cost a hash
	dummyHash []byte
	dummySalt []byte
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, codec *auth.Codec, hasher *cryptox.Hasher,
	ledger *ResetLedger, mailer *mail.Mailer, logger logging.Logger, cfg *config.Config) (*UserService, error) {
	itRoles, err := cfg.ITRoles()
	if err != nil {
		return nil, err
	}
	dummyHash, dummySalt, err := hasher.Hash([]byte("idkeeper-timing-equalizer"))
	if err != nil {
		return nil, err
	}
	return &UserService{
		db:          db,
		repomanager: m,
		codec:       codec,
		authz:       auth.NewAuthorizer(codec),
		hasher:      hasher,
		ledger:      ledger,
		mailer:      mailer,
		validator:   newInputValidator(cfg.DefaultPhoneRegion),
		logger:      logger.With("module", "users"),
		sessionTTL:  cfg.SessionTokenTTL,
		itRoles:     itRoles,
		now:         time.Now,
		dummyHash:   dummyHash,
		dummySalt:   dummySalt,
	}, nil
}

// Login checks credentials and issues a session token carrying the user's
// current roles. Unknown usernames return common.ErrUserNotFound and wrong
// passwords common.ErrInvalidCredentials; callers must not tell them apart
// in responses.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.repomanager.Users(s.db).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify([]byte(password), s.dummyHash, s.dummySalt)
			s.record(ctx, nil, models.EventLoginFailed, map[string]any{"username": username, "reason": "unknown_user"})
			return nil, common.ErrUserNotFound
		}
		return nil, storeErr(err)
	}

	if !s.hasher.Verify([]byte(password), user.PasswordHash, user.PasswordSalt) {
		s.record(ctx, user, models.EventLoginFailed, map[string]any{"reason": "bad_password"})
		return nil, common.ErrInvalidCredentials
	}

	issued := s.now()
	token, err := s.codec.Sign(user.ID, user.UserName, user.Roles, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	s.record(ctx, user, models.EventLogin, nil)

	return &LoginResult{User: user.Public(), Token: token, ExpiresAt: issued.Add(s.sessionTTL)}, nil
}

// RegisterUser creates an identity. Roles other than General require a
// caller token holding Admin or HR.
func (s *UserService) RegisterUser(ctx context.Context, callerToken string, in UserInput) (*models.User, error) {
	if in.Password != in.ConfirmPassword {
		return nil, common.ErrPasswordMismatch
	}
	if len(in.Roles) == 0 {
		in.Roles = []models.Role{models.RoleGeneral}
	}

	for _, r := range in.Roles {
		if r != models.RoleGeneral {
			p, err := s.authorize(callerToken, roleGranters...)
			if err != nil {
				return nil, err
			}
			if !p.Covers(in.Roles...) {
				return nil, common.ErrForbidden
			}
			break
		}
	}

	return s.create(ctx, in)
}

// CreateUser creates an identity with any roles. It performs no caller
// check and is only reachable from operator tooling.
func (s *UserService) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	if len(in.Roles) == 0 {
		in.Roles = []models.Role{models.RoleGeneral}
	}
	return s.create(ctx, in)
}

func (s *UserService) create(ctx context.Context, in UserInput) (*models.User, error) {
	if err := s.validator.user(&in); err != nil {
		return nil, err
	}
	phone, err := s.validator.normalizePhone(in.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrValidation, err)
	}

	hash, salt, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		UserName:     in.UserName,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Office:       in.Office,
		PhoneNumber:  phone,
		JobTitle:     in.JobTitle,
		LinkedIn:     in.LinkedIn,
		Certificates: in.Certificates,
		Roles:        in.Roles,
		PasswordHash: hash,
		PasswordSalt: salt,
	}

	user, err = s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, err
		}
		return nil, storeErr(err)
	}
	s.record(ctx, user, models.EventRegistered, map[string]any{"roles": models.RoleNames(user.Roles)})

	return user.Public(), nil
}

// UpdateUser applies in to the named user, or to the caller when no name is
// given. General users may only update themselves. Staff may update others
// only when their roles cover the target's; changing roles needs Admin or
// HR and roles the caller covers. A password change drops any outstanding
// reset pointer.
func (s *UserService) UpdateUser(ctx context.Context, token string, in UpdateInput) (*models.User, error) {
	p, err := s.authorize(token, everyoneRoles...)
	if err != nil {
		return nil, err
	}

	target := in.UserName
	if target == "" {
		target = p.UserName
	}
	if target != p.UserName && !p.HasAnyRole(staffRoles...) {
		return nil, common.ErrForbidden
	}
	if in.Roles != nil && (!p.HasAnyRole(roleGranters...) || !p.Covers(in.Roles...)) {
		return nil, common.ErrForbidden
	}

	if err := s.validator.update(&in); err != nil {
		return nil, err
	}

	user, err := s.findByUsername(ctx, target)
	if err != nil {
		return nil, err
	}
	if target != p.UserName && !p.Covers(user.Roles...) {
		return nil, common.ErrForbidden
	}

	if err := s.apply(user, &in); err != nil {
		return nil, err
	}

	var hash, salt []byte
	if in.Password != nil {
		if hash, salt, err = s.hasher.Hash([]byte(*in.Password)); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)
		if err := users.Update(ctx, user); err != nil {
			return err
		}
		if hash != nil {
			if err := users.UpdatePassword(ctx, user.ID, hash, salt); err != nil {
				return err
			}
		}
		return s.repomanager.Activity(tx).Append(ctx, &models.Activity{
			UserID:   user.ID,
			UserName: user.UserName,
			Event:    models.EventUpdated,
			Metadata: map[string]any{"by": p.UserName, "password_changed": hash != nil},
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrConflict):
			return nil, err
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrUserNotFound
		}
		return nil, storeErr(err)
	}
	if hash != nil {
		user.ResetToken = ""
	}

	return user.Public(), nil
}

func (s *UserService) apply(user *models.User, in *UpdateInput) error {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&user.Email, in.Email)
	set(&user.FirstName, in.FirstName)
	set(&user.LastName, in.LastName)
	set(&user.Office, in.Office)
	set(&user.JobTitle, in.JobTitle)
	set(&user.LinkedIn, in.LinkedIn)
	if in.PhoneNumber != nil {
		phone, err := s.validator.normalizePhone(*in.PhoneNumber)
		if err != nil {
			return fmt.Errorf("%w: %s", common.ErrValidation, err)
		}
		user.PhoneNumber = phone
	}
	if in.Certificates != nil {
		user.Certificates = in.Certificates
	}
	if in.Roles != nil {
		user.Roles = in.Roles
	}
	return nil
}

// GetAllITStaff lists identities holding any of the configured IT roles.
func (s *UserService) GetAllITStaff(ctx context.Context, token string) ([]*models.User, error) {
	if _, err := s.authorize(token, staffRoles...); err != nil {
		return nil, err
	}
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	staff := make([]*models.User, 0, len(all))
	for _, u := range all {
		if u.HasAnyRole(s.itRoles...) {
			staff = append(staff, u.Public())
		}
	}
	return staff, nil
}

func (s *UserService) GetAllUsers(ctx context.Context, token string) ([]*models.User, error) {
	if _, err := s.authorize(token, staffRoles...); err != nil {
		return nil, err
	}
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	return models.PublicUsers(all), nil
}

// Profile returns the caller's own identity.
func (s *UserService) Profile(ctx context.Context, token string) (*models.User, error) {
	p, err := s.authorize(token, everyoneRoles...)
	if err != nil {
		return nil, err
	}
	user, err := s.repomanager.Users(s.db).FindByID(ctx, p.SubjectID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, storeErr(err)
	}
	return user.Public(), nil
}

// DelUser deletes username and returns the identities that remain.
// Callers cannot delete themselves or users whose roles they do not cover.
func (s *UserService) DelUser(ctx context.Context, token, username string) ([]*models.User, error) {
	p, err := s.authorize(token, staffRoles...)
	if err != nil {
		return nil, err
	}
	if username == p.UserName {
		return nil, fmt.Errorf("%w: cannot delete your own account", common.ErrForbidden)
	}

	user, err := s.findByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !p.Covers(user.Roles...) {
		return nil, common.ErrForbidden
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// logged first; the foreign key is nulled by the delete
		if err := s.repomanager.Activity(tx).Append(ctx, &models.Activity{
			UserID:   user.ID,
			UserName: user.UserName,
			Event:    models.EventDeleted,
			Metadata: map[string]any{"by": p.UserName},
		}); err != nil {
			return err
		}
		return s.repomanager.Users(tx).Delete(ctx, username)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, storeErr(err)
	}

	remaining, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	return models.PublicUsers(remaining), nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, token, email string) (*models.User, error) {
	if _, err := s.authorize(token, staffRoles...); err != nil {
		return nil, err
	}
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// CheckUsername reports whether username is taken.
func (s *UserService) CheckUsername(ctx context.Context, username string) (bool, error) {
	_, err := s.repomanager.Users(s.db).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, storeErr(err)
	}
	return true, nil
}

// ForgotUsername mails the username registered to email. An unknown email
// is not an error, so responses do not reveal which addresses exist.
func (s *UserService) ForgotUsername(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			s.logger.Info(ctx, "Username reminder requested for unknown email")
			return nil
		}
		return err
	}

	if err := s.mailer.SendUsername(ctx, user); err != nil {
		s.logger.Error(ctx, "Username reminder not delivered", "user_id", user.ID, "error", err)
		return err
	}
	s.record(ctx, user, models.EventForgotUsername, nil)
	return nil
}

// ForgotPassword issues a reset token for the account behind email and
// mails a link carrying it. If the token cannot be stored no mail is sent.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := s.ledger.Issue(ctx, user)
	if err != nil {
		return err
	}

	if err := s.mailer.SendResetLink(ctx, user, token, s.ledger.TTL()); err != nil {
		s.logger.Error(ctx, "Reset link not delivered", "user_id", user.ID, "error", err)
		return err
	}
	s.record(ctx, user, models.EventForgotPassword, nil)
	return nil
}

// ResetPassword consumes resetToken and sets newPassword. The confirmation
// mail is sent after the change is committed; its failure is reported but
// does not undo the reset.
func (s *UserService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		return common.ErrMissingToken
	}
	if err := s.validator.password(newPassword); err != nil {
		return err
	}

	user, err := s.ledger.Consume(ctx, resetToken, []byte(newPassword))
	if err != nil {
		return err
	}

	if err := s.mailer.SendResetConfirmation(ctx, user); err != nil {
		s.logger.Error(ctx, "Reset confirmation not delivered", "user_id", user.ID, "error", err)
		return err
	}
	return nil
}

// VerifyToken reports who token speaks for, without any role check.
func (s *UserService) VerifyToken(_ context.Context, token string) (auth.Principal, error) {
	if token == "" {
		return auth.Principal{}, common.ErrMissingToken
	}
	claims, err := s.codec.Verify(token)
	if err != nil {
		return auth.Principal{}, err
	}
	return auth.PrincipalFromClaims(claims), nil
}

func (s *UserService) authorize(token string, required ...models.Role) (auth.Principal, error) {
	p, permitted, err := s.authz.Authorize(token, required...)
	if err != nil {
		return auth.Principal{}, err
	}
	if !permitted {
		return p, common.ErrForbidden
	}
	return p, nil
}

func (s *UserService) findByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, storeErr(err)
	}
	return user, nil
}

func (s *UserService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, storeErr(err)
	}
	return user, nil
}

func (s *UserService) list(ctx context.Context) ([]*models.User, error) {
	all, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return all, nil
}

// record appends an activity entry. Failures are logged and otherwise
// ignored: the log is an audit aid, not part of the operation.
func (s *UserService) record(ctx context.Context, user *models.User, event models.ActivityEvent, meta map[string]any) {
	e := &models.Activity{Event: event, Metadata: meta}
	if user != nil {
		e.UserID = user.ID
		e.UserName = user.UserName
	}
	if err := s.repomanager.Activity(s.db).Append(ctx, e); err != nil {
		s.logger.Warn(ctx, "Activity not recorded", "event", string(event), "error", err)
	}
}
