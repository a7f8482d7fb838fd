package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Skotchmaster/accounts/internal/directory"
	"github.com/Skotchmaster/accounts/internal/events"
	"github.com/Skotchmaster/accounts/internal/hash"
	"github.com/Skotchmaster/accounts/internal/logging"
	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/internal/notify"
	"github.com/Skotchmaster/accounts/internal/repo"
	"github.com/Skotchmaster/accounts/internal/resettoken"
	"github.com/Skotchmaster/accounts/internal/tokens"
)

const MinPasswordLength = 8

type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByResetToken(ctx context.Context, token string) (*models.Account, error)
	List(ctx context.Context) ([]models.Account, error)
	UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.Account, error)
	SetPassword(ctx context.Context, id, passwordHash string) error
	SetRole(ctx context.Context, id string, role models.Role) error
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	ConsumeResetToken(ctx context.Context, id, token, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

type Deps struct {
	Store     AccountStore
	Hasher    *hash.Hasher
	Tokens    *tokens.TokenService
	Resets    *resettoken.Store
	Notifier  notify.Notifier
	Events    events.Publisher
	Directory directory.Directory
	// AppURL prefixes the reset link sent by email.
	AppURL string
}

type AccountService struct {
	store     AccountStore
	hasher    *hash.Hasher
	tokens    *tokens.TokenService
	resets    *resettoken.Store
	notifier  notify.Notifier
	events    events.Publisher
	directory directory.Directory
	appURL    string
	validate  *validator.Validate
}

func New(d Deps) *AccountService {
	s := &AccountService{
		store:     d.Store,
		hasher:    d.Hasher,
		tokens:    d.Tokens,
		resets:    d.Resets,
		notifier:  d.Notifier,
		events:    d.Events,
		directory: d.Directory,
		appURL:    strings.TrimSuffix(d.AppURL, "/"),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	if s.hasher == nil {
		s.hasher = hash.New(0)
	}
	if s.resets == nil {
		s.resets = resettoken.NewStore(d.Store, resettoken.DefaultTTL)
	}
	if s.notifier == nil {
		s.notifier = &notify.LogNotifier{}
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	return s
}

type AccountView struct {
	ID      string         `json:"id"`
	Email   string         `json:"email"`
	Role    models.Role    `json:"role"`
	Avatar  string         `json:"avatar"`
	Profile models.Profile `json:"profile"`
}

type SearchResult struct {
	Total int64
	Page  int
	Size  int
	Items []AccountView
}

// ProfileUpdate holds the fields to overwrite; nil fields are left as they are.
type ProfileUpdate = models.ProfilePatch

// Avatar is a gravatar URL derived from the lower-cased email.
func Avatar(email string) string {
	sum := md5.Sum([]byte(repo.NormalizeEmail(email)))
	return "https://gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=200&d=retro"
}

func view(id, email string, role models.Role, p models.Profile) AccountView {
	return AccountView{ID: id, Email: email, Role: role, Avatar: Avatar(email), Profile: p}
}

func (s *AccountService) validEmail(email string) bool {
	return s.validate.Var(email, "required,email") == nil
}

func passwordViolations(password, confirm string, checkConfirm bool) []string {
	var msgs []string
	if len(password) < MinPasswordLength {
		msgs = append(msgs, MsgPasswordTooShort)
	}
	if checkConfirm && password != confirm {
		msgs = append(msgs, MsgPasswordMismatch)
	}
	return msgs
}

func (s *AccountService) Register(ctx context.Context, email, password string) (string, error) {
	email = repo.NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "account.register", "email", email)

	var msgs []string
	if !s.validEmail(email) {
		msgs = append(msgs, MsgInvalidEmail)
	}
	msgs = append(msgs, passwordViolations(password, "", false)...)
	if len(msgs) > 0 {
		l.Warn("register_error", "status", 422, "reason", "validation", "messages", msgs)
		return "", newError(ErrValidation, msgs...)
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		l.Warn("register_error", "status", 422, "reason", "account already exists")
		return "", newError(ErrConflict, MsgAccountExists)
	} else if !errors.Is(err, repo.ErrNotFound) {
		l.Error("register_error", "status", 500, "reason", "lookup failed", "error", err)
		return "", fmt.Errorf("find account: %w", err)
	}

	pwHash, err := s.hasher.Hash(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return "", fmt.Errorf("hash password: %w", err)
	}

	acc := &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := s.store.Create(ctx, acc); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("register_error", "status", 422, "reason", "lost race on unique email")
			return "", newError(ErrConflict, MsgAccountExists)
		}
		l.Error("register_error", "status", 500, "reason", "cannot create account", "error", err)
		return "", fmt.Errorf("create account: %w", err)
	}

	token, err := s.tokens.Issue(acc.ID, acc.Email, string(acc.Role), 0)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot issue token", "error", err)
		return "", err
	}

	s.index(ctx, acc)
	s.publish(ctx, events.AccountRegistered, acc)
	l.Info("register_successful", "account_id", acc.ID)
	return token, nil
}

// Login reports an unknown email as ErrNotRegistered but never distinguishes
// a wrong password from missing credentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	email = repo.NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "account.login", "email", email)

	if email == "" || password == "" {
		l.Warn("login_failed", "status", 403, "reason", "missing credentials")
		return "", newError(ErrInvalidCredentials, MsgInvalidCredentials)
	}

	acc, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "status", 403, "reason", "email not registered")
			return "", newError(ErrNotRegistered, MsgEmailNotRegistered)
		}
		l.Error("login_failed", "status", 500, "error", err)
		return "", fmt.Errorf("find account: %w", err)
	}

	if !s.hasher.Check(acc.PasswordHash, password) {
		l.Warn("login_failed", "status", 403, "reason", "wrong password")
		return "", newError(ErrInvalidCredentials, MsgInvalidCredentials)
	}

	token, err := s.tokens.Issue(acc.ID, acc.Email, string(acc.Role), 0)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot issue token", "error", err)
		return "", err
	}

	s.publish(ctx, events.AccountLoggedIn, acc)
	l.Info("login_successful", "account_id", acc.ID)
	return token, nil
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]AccountView, error) {
	accounts, err := s.store.List(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list_accounts_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]AccountView, len(accounts))
	for i, a := range accounts {
		out[i] = view(a.ID, a.Email, a.Role, a.Profile)
	}
	return out, nil
}

func (s *AccountService) SearchAccounts(ctx context.Context, query string, page, size int) (*SearchResult, error) {
	l := logging.FromContext(ctx).With("svc", "account.search")
	if s.directory == nil {
		return nil, errors.New("no directory configured")
	}

	from, limit := directory.Page(page, size)
	res, err := s.directory.Search(ctx, strings.TrimSpace(query), from, limit)
	if err != nil {
		l.Error("search_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("search accounts: %w", err)
	}

	items := make([]AccountView, len(res.Entries))
	for i, e := range res.Entries {
		items[i] = view(e.ID, e.Email, e.Role, e.Profile)
	}
	return &SearchResult{
		Total: res.Total,
		Page:  from/limit + 1,
		Size:  limit,
		Items: items,
	}, nil
}

func (s *AccountService) RefreshSession(ctx context.Context, token string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "account.refresh")

	newToken, err := s.tokens.Refresh(ctx, token)
	if err != nil {
		if errors.Is(err, tokens.ErrInvalidToken) || errors.Is(err, tokens.ErrUnauthorized) {
			l.Warn("refresh_failed", "status", 401, "error", err)
			return "", newError(ErrUnauthorized, MsgUnauthorized)
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return "", err
	}
	return newToken, nil
}

// RequestPasswordReset generates a reset token and mails the link. If sending
// fails the token stays valid and the error is returned.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = repo.NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "account.forgot", "email", email)

	if !s.validEmail(email) {
		l.Warn("forgot_error", "status", 422, "reason", "invalid email")
		return newError(ErrValidation, MsgInvalidEmail)
	}

	acc, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("forgot_error", "status", 404, "reason", "account not found")
			return newError(ErrNotFound, MsgNoSuchEmail)
		}
		l.Error("forgot_error", "status", 500, "error", err)
		return fmt.Errorf("find account: %w", err)
	}

	token, err := s.resets.Generate(ctx, acc)
	if err != nil {
		l.Error("forgot_error", "status", 500, "reason", "cannot store reset token", "error", err)
		return err
	}

	link := s.appURL + "/account/reset/" + token
	if err := s.notifier.Send(ctx, notify.ResetInstructions(acc.Email, link)); err != nil {
		l.Error("forgot_error", "status", 500, "reason", "cannot send reset email", "error", err)
		return fmt.Errorf("send reset email: %w", err)
	}

	s.publish(ctx, events.PasswordResetRequested, acc)
	l.Info("forgot_successful", "account_id", acc.ID)
	return nil
}

// CompletePasswordReset runs every check before failing so the caller gets
// all messages at once, in a fixed order: length, confirmation, token.
func (s *AccountService) CompletePasswordReset(ctx context.Context, token, password, confirm string) error {
	l := logging.FromContext(ctx).With("svc", "account.reset")

	msgs := passwordViolations(password, confirm, true)

	acc, err := s.resets.Validate(ctx, token)
	if err != nil {
		if !errors.Is(err, resettoken.ErrInvalidToken) {
			l.Error("reset_error", "status", 500, "error", err)
			return fmt.Errorf("validate reset token: %w", err)
		}
		msgs = append(msgs, MsgInvalidToken)
	}

	if len(msgs) > 0 {
		kind := ErrValidation
		if acc == nil && len(msgs) == 1 {
			kind = ErrInvalidToken
		}
		l.Warn("reset_error", "status", 422, "messages", msgs)
		return newError(kind, msgs...)
	}

	pwHash, err := s.hasher.Hash(password)
	if err != nil {
		l.Error("reset_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.ConsumeResetToken(ctx, acc.ID, token, pwHash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("reset_error", "status", 422, "reason", "token consumed concurrently")
			return newError(ErrInvalidToken, MsgInvalidToken)
		}
		l.Error("reset_error", "status", 500, "error", err)
		return fmt.Errorf("consume reset token: %w", err)
	}

	s.confirmPasswordChanged(ctx, acc)
	s.publish(ctx, events.PasswordReset, acc)
	l.Info("reset_successful", "account_id", acc.ID)
	return nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, upd ProfileUpdate) (models.Profile, error) {
	l := logging.FromContext(ctx).With("svc", "account.profile", "account_id", accountID)

	acc, err := s.authorized(ctx, accountID)
	if err != nil {
		return models.Profile{}, err
	}

	acc, err = s.store.UpdateProfile(ctx, acc.ID, upd)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return models.Profile{}, newError(ErrUnauthorized, MsgUnauthorized)
		}
		l.Error("profile_error", "status", 500, "error", err)
		return models.Profile{}, fmt.Errorf("update profile: %w", err)
	}

	s.index(ctx, acc)
	s.publish(ctx, events.ProfileUpdated, acc)
	l.Info("profile_updated")
	return acc.Profile, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, accountID, password, confirm string) error {
	l := logging.FromContext(ctx).With("svc", "account.password", "account_id", accountID)

	acc, err := s.authorized(ctx, accountID)
	if err != nil {
		return err
	}

	if msgs := passwordViolations(password, confirm, true); len(msgs) > 0 {
		l.Warn("password_error", "status", 422, "messages", msgs)
		return newError(ErrValidation, msgs...)
	}

	pwHash, err := s.hasher.Hash(password)
	if err != nil {
		l.Error("password_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.SetPassword(ctx, acc.ID, pwHash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return newError(ErrUnauthorized, MsgUnauthorized)
		}
		l.Error("password_error", "status", 500, "error", err)
		return fmt.Errorf("update password: %w", err)
	}

	s.confirmPasswordChanged(ctx, acc)
	s.publish(ctx, events.PasswordChanged, acc)
	l.Info("password_changed")
	return nil
}

func (s *AccountService) DeleteAccount(ctx context.Context, accountID string) error {
	l := logging.FromContext(ctx).With("svc", "account.delete", "account_id", accountID)

	acc, err := s.authorized(ctx, accountID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, acc.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return newError(ErrUnauthorized, MsgUnauthorized)
		}
		l.Error("delete_error", "status", 500, "error", err)
		return fmt.Errorf("delete account: %w", err)
	}

	if s.directory != nil {
		if err := s.directory.Remove(ctx, acc.ID); err != nil {
			l.Warn("directory_remove_failed", "error", err)
		}
	}
	s.publish(ctx, events.AccountDeleted, acc)
	l.Info("account_deleted")
	return nil
}

// EnsureAdmin creates the admin account if missing, or promotes an existing
// account with that email. The password of an existing account is kept.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = repo.NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "account.ensure_admin", "email", email)

	acc, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if acc.IsAdmin() {
			return nil
		}
		if err := s.store.SetRole(ctx, acc.ID, models.RoleAdmin); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		acc.Role = models.RoleAdmin
		s.index(ctx, acc)
		l.Info("admin_promoted", "account_id", acc.ID)
		return nil
	case !errors.Is(err, repo.ErrNotFound):
		return fmt.Errorf("find admin: %w", err)
	}

	if !s.validEmail(email) {
		return newError(ErrValidation, MsgInvalidEmail)
	}
	if msgs := passwordViolations(password, "", false); len(msgs) > 0 {
		return newError(ErrValidation, msgs...)
	}

	pwHash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	acc = &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: pwHash,
		Role:         models.RoleAdmin,
	}
	if err := s.store.Create(ctx, acc); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("create admin: %w", err)
	}

	s.index(ctx, acc)
	s.publish(ctx, events.AccountRegistered, acc)
	l.Info("admin_created", "account_id", acc.ID)
	return nil
}

// authorized resolves the account named by a verified session. A missing
// account means the token outlived it.
func (s *AccountService) authorized(ctx context.Context, accountID string) (*models.Account, error) {
	if accountID == "" {
		return nil, newError(ErrUnauthorized, MsgUnauthorized)
	}
	acc, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logging.FromContext(ctx).Warn("unauthorized", "status", 401, "reason", "account no longer exists", "account_id", accountID)
			return nil, newError(ErrUnauthorized, MsgUnauthorized)
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return acc, nil
}

func (s *AccountService) confirmPasswordChanged(ctx context.Context, acc *models.Account) {
	if err := s.notifier.Send(ctx, notify.PasswordChanged(acc.Email)); err != nil {
		logging.FromContext(ctx).Warn("confirmation_email_failed", "account_id", acc.ID, "error", err)
	}
}

func (s *AccountService) index(ctx context.Context, acc *models.Account) {
	if s.directory == nil {
		return
	}
	if err := s.directory.Index(ctx, acc); err != nil {
		logging.FromContext(ctx).Warn("directory_index_failed", "account_id", acc.ID, "error", err)
	}
}

func (s *AccountService) publish(ctx context.Context, t events.Type, acc *models.Account) {
	ev := events.Event{
		Type:      t,
		AccountID: acc.ID,
		Email:     acc.Email,
		Role:      string(acc.Role),
		At:        time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", t, "account_id", acc.ID, "error", err)
	}
}
