package auth

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
)

// persisted keys
const (
	keyAccess    = "access_token"
	keyAccessExp = "access_exp"
	keyRefresh   = "refresh_token"
	keyUserName  = "user_name"
	keyUserID    = "user_id"
	keySchoolID  = "school_id"
)

var tokenKeys = []string{keyAccess, keyAccessExp, keyRefresh, keyUserName, keyUserID, keySchoolID}

// Credentials are the persisted session fields. Invalid fields are left untouched on Save.
type Credentials struct {
	AccessToken      null.String
	AccessExpiration null.String
	RefreshToken     null.String
	UserName         null.String
	UserID           null.String
	SchoolID         null.Int
}

// TokenStore keeps Credentials in a core.Store. It shares the store with other settings and only
// ever touches its own keys.
type TokenStore struct {
	store core.Store
}

func NewTokenStore(store core.Store) *TokenStore {
	return &TokenStore{store: store}
}

func (ts *TokenStore) get(ctx context.Context, key string) (null.String, error) {
	v, err := ts.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return null.String{}, nil
		}
		return null.String{}, errors.Wrapf(err, "read %s", key)
	}
	return null.StringFrom(v), nil
}

func (ts *TokenStore) Load(ctx context.Context) (Credentials, error) {
	var (
		creds Credentials
		err   error
	)
	fields := []struct {
		key string
		dst *null.String
	}{
		{keyAccess, &creds.AccessToken},
		{keyAccessExp, &creds.AccessExpiration},
		{keyRefresh, &creds.RefreshToken},
		{keyUserName, &creds.UserName},
		{keyUserID, &creds.UserID},
	}
	for _, f := range fields {
		if *f.dst, err = ts.get(ctx, f.key); err != nil {
			return Credentials{}, err
		}
	}

	school, err := ts.get(ctx, keySchoolID)
	if err != nil {
		return Credentials{}, err
	}
	if school.Valid {
		if id, err := strconv.Atoi(school.String); err == nil && id >= 0 {
			creds.SchoolID = null.IntFrom(id)
		}
	}
	return creds, nil
}

func (ts *TokenStore) Save(ctx context.Context, creds Credentials) error {
	fields := []struct {
		key string
		val null.String
	}{
		{keyAccess, creds.AccessToken},
		{keyAccessExp, creds.AccessExpiration},
		{keyRefresh, creds.RefreshToken},
		{keyUserName, creds.UserName},
		{keyUserID, creds.UserID},
	}
	if creds.SchoolID.Valid {
		fields = append(fields, struct {
			key string
			val null.String
		}{keySchoolID, null.StringFrom(strconv.Itoa(creds.SchoolID.Int))})
	}
	for _, f := range fields {
		if !f.val.Valid {
			continue
		}
		if err := ts.store.Set(ctx, f.key, f.val.String); err != nil {
			return errors.Wrapf(err, "write %s", f.key)
		}
	}
	return nil
}

// AccessToken returns core.ErrNotLoggedIn when no access token is stored.
func (ts *TokenStore) AccessToken(ctx context.Context) (string, error) {
	tok, err := ts.get(ctx, keyAccess)
	if err != nil {
		return "", err
	}
	if !tok.Valid || tok.String == "" {
		return "", core.ErrNotLoggedIn
	}
	return tok.String, nil
}

func (ts *TokenStore) Clear(ctx context.Context) error {
	return ts.store.Delete(ctx, tokenKeys...)
}
