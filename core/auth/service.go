package auth

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
)

var devMessageRegex = regexp.MustCompile(`"developer_message"\s*:\s*"([^"]+)"`)

type (
	// Client talks to the authenticated upstream API.
	// Non-success responses are returned as *core.StatusError.
	Client interface {
		Login(ctx context.Context, req LoginRequest) (TokenResponse, error)
		Refresh(ctx context.Context, refreshToken string) (TokenResponse, error)
		Logout(ctx context.Context, accessToken string) error
		Children(ctx context.Context, accessToken string) ([]ChildItem, error)
		Grades(ctx context.Context, accessToken, childUUID string) ([]SubjectGrades, error)
		// Notifications returns the page following lastID, or the newest page when lastID is 0.
		Notifications(ctx context.Context, accessToken, childUUID string, lastID int64) ([]NotificationItem, error)
	}

	Service struct {
		client Client
		tokens *TokenStore
		log    core.Logger
		now    func() time.Time

		refreshMu sync.Mutex

		hooksMu  sync.RWMutex
		onLogout []func(ctx context.Context)

		grades *gradesCache
	}
)

func NewService(client Client, store core.Store, logger core.Logger) *Service {
	if logger == nil {
		logger = core.NewDiscardLogger()
	}
	return &Service{
		client: client,
		tokens: NewTokenStore(store),
		log:    logger,
		now:    time.Now,
		grades: newGradesCache(),
	}
}

// OnLogout registers fn to run after every logout, including forced ones.
func (svc *Service) OnLogout(fn func(ctx context.Context)) {
	svc.hooksMu.Lock()
	defer svc.hooksMu.Unlock()
	svc.onLogout = append(svc.onLogout, fn)
}

func extractDevMessage(raw string) string {
	if m := devMessageRegex.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}

func (svc *Service) Login(ctx context.Context, username, password string) (Session, error) {
	resp, err := svc.client.Login(ctx, LoginRequest{
		Username:           username,
		Password:           password,
		SupportedUserTypes: supportedUserTypes,
	})
	if err != nil {
		var se *core.StatusError
		if errors.As(err, &se) {
			msg := extractDevMessage(se.Body)
			if msg == "" {
				msg = fmt.Sprintf("Login failed: HTTP %d", se.Code)
			}
			return Session{}, &core.AuthError{Message: msg}
		}
		return Session{}, errors.Wrap(err, "login")
	}
	if resp.AccessToken.Token == "" {
		return Session{}, &core.EmptyResponseError{What: "login"}
	}

	claims, err := DecodeClaims(resp.AccessToken.Token)
	if err != nil {
		svc.log.Debug("access token payload not readable", err)
	}
	name := null.StringFrom(username)
	if resp.User != nil && resp.User.Name.Valid {
		name = resp.User.Name
	}

	creds := Credentials{
		AccessToken:      null.StringFrom(resp.AccessToken.Token),
		AccessExpiration: null.StringFrom(resp.AccessToken.ExpirationDate),
		RefreshToken:     null.StringFrom(resp.RefreshToken),
		UserName:         name,
		UserID:           claims.UserID,
		SchoolID:         claims.SchoolIDInt(),
	}
	if err = svc.tokens.Save(ctx, creds); err != nil {
		return Session{}, err
	}
	return Session{
		AccessToken:  resp.AccessToken.Token,
		RefreshToken: resp.RefreshToken,
		UserName:     name,
		UserID:       claims.UserID,
		SchoolID:     creds.SchoolID,
	}, nil
}

// RefreshIfNeeded exchanges the stored refresh token for a new token pair.
// It never fails: false means the session could not be refreshed.
func (svc *Service) RefreshIfNeeded(ctx context.Context) bool {
	svc.refreshMu.Lock()
	defer svc.refreshMu.Unlock()
	return svc.refresh(ctx)
}

// refreshAfter refreshes unless another caller already replaced staleToken.
func (svc *Service) refreshAfter(ctx context.Context, staleToken string) bool {
	svc.refreshMu.Lock()
	defer svc.refreshMu.Unlock()

	if tok, err := svc.tokens.AccessToken(ctx); err == nil && tok != staleToken {
		return true
	}
	return svc.refresh(ctx)
}

func (svc *Service) refresh(ctx context.Context) bool {
	creds, err := svc.tokens.Load(ctx)
	if err != nil {
		svc.log.Warn("could not read credentials", err)
		return false
	}
	if !creds.RefreshToken.Valid || creds.RefreshToken.String == "" {
		return false
	}

	resp, err := svc.client.Refresh(ctx, creds.RefreshToken.String)
	if err != nil {
		svc.log.Warn("token refresh failed", err)
		return false
	}
	if resp.AccessToken.Token == "" {
		svc.log.Warn("token refresh failed", &core.EmptyResponseError{What: "refresh"})
		return false
	}

	claims, _ := DecodeClaims(resp.AccessToken.Token)
	err = svc.tokens.Save(ctx, Credentials{
		AccessToken:      null.StringFrom(resp.AccessToken.Token),
		AccessExpiration: null.StringFrom(resp.AccessToken.ExpirationDate),
		RefreshToken:     null.StringFrom(resp.RefreshToken),
		SchoolID:         claims.SchoolIDInt(),
	})
	if err != nil {
		svc.log.Warn("could not persist refreshed tokens", err)
		return false
	}
	return true
}

// Logout invalidates the session server side (best effort) and always clears it locally.
func (svc *Service) Logout(ctx context.Context) {
	if tok, err := svc.tokens.AccessToken(ctx); err == nil {
		if err = svc.client.Logout(ctx, tok); err != nil {
			svc.log.Warn("server logout failed", err)
		}
	}
	if err := svc.tokens.Clear(ctx); err != nil {
		svc.log.Error("could not clear credentials", err)
	}
	svc.grades.clear()

	svc.hooksMu.RLock()
	hooks := append([]func(context.Context){}, svc.onLogout...)
	svc.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(ctx)
	}
}

// CurrentSession rebuilds the session from storage.
// Both tokens must be present, otherwise core.ErrNotLoggedIn is returned.
func (svc *Service) CurrentSession(ctx context.Context) (Session, error) {
	creds, err := svc.tokens.Load(ctx)
	if err != nil {
		return Session{}, err
	}
	if !creds.AccessToken.Valid || !creds.RefreshToken.Valid {
		return Session{}, core.ErrNotLoggedIn
	}
	return Session{
		AccessToken:  creds.AccessToken.String,
		RefreshToken: creds.RefreshToken.String,
		UserName:     creds.UserName,
		UserID:       creds.UserID,
		SchoolID:     creds.SchoolID,
	}, nil
}
