package auth

import (
	"context"
)

// Children lists the profiles of the children the session has access to.
// Items whose uuid carries no student id are dropped.
func (svc *Service) Children(ctx context.Context) ([]ChildProfile, error) {
	var items []ChildItem
	err := svc.Do(ctx, func(ctx context.Context, token string) (err error) {
		items, err = svc.client.Children(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}

	profiles := make([]ChildProfile, 0, len(items))
	for _, item := range items {
		if p, ok := NewChildProfile(item); ok {
			profiles = append(profiles, p)
		}
	}
	return profiles, nil
}

// Child looks up one child by uuid; ok is false when the session has no such child.
func (svc *Service) Child(ctx context.Context, uuid string) (ChildProfile, bool, error) {
	children, err := svc.Children(ctx)
	if err != nil {
		return ChildProfile{}, false, err
	}
	for _, c := range children {
		if c.UUID == uuid {
			return c, true, nil
		}
	}
	return ChildProfile{}, false, nil
}
