package auth

import (
	"context"

	"github.com/trezcool/ratiba/core"
)

// Do runs call with the stored access token.
//
// An unauthorized failure triggers at most one refresh followed by exactly one retry with the new
// token. If the refresh fails, or the retry is unauthorized again, the session is logged out and
// core.ErrSessionExpired is returned. Other errors are returned as they are.
func (svc *Service) Do(ctx context.Context, call func(ctx context.Context, accessToken string) error) error {
	token, err := svc.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	err = call(ctx, token)
	if !core.IsUnauthorized(err) {
		return err
	}

	if !svc.refreshAfter(ctx, token) {
		return svc.expire(ctx)
	}
	if token, err = svc.tokens.AccessToken(ctx); err != nil {
		return err
	}
	if err = call(ctx, token); core.IsUnauthorized(err) {
		return svc.expire(ctx)
	}
	return err
}

func (svc *Service) expire(ctx context.Context) error {
	// a cancelled caller does not get to end the session
	if err := ctx.Err(); err != nil {
		return err
	}
	svc.log.Info("session expired, logging out")
	svc.Logout(ctx)
	return core.ErrSessionExpired
}
