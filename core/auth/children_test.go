package auth

import (
	"context"
	"testing"

	"github.com/volatiletech/null/v8"
)

func TestParseChildUUID(t *testing.T) {
	tests := []struct {
		uuid        string
		wantStudent int
		wantClass   null.Int
		wantOK      bool
	}{
		{uuid: "a1b2$77.2024.1234.10.5531", wantStudent: 5531, wantClass: null.IntFrom(10), wantOK: true},
		{uuid: "77.2024.1234.10.5531", wantStudent: 5531, wantClass: null.IntFrom(10), wantOK: true},
		{uuid: "x$77.2024.1234.abc.5531", wantStudent: 5531, wantOK: true},
		{uuid: "x$77.2024.1234.10", wantClass: null.IntFrom(10)},
		{uuid: "x$77.2024.1234.10.me", wantClass: null.IntFrom(10)},
		{uuid: ""},
	}
	for _, tt := range tests {
		t.Run(tt.uuid, func(t *testing.T) {
			student, class, ok := ParseChildUUID(tt.uuid)
			if ok != tt.wantOK || student != tt.wantStudent || class != tt.wantClass {
				t.Errorf("ParseChildUUID() = %d, %v, %v, want %d, %v, %v",
					student, class, ok, tt.wantStudent, tt.wantClass, tt.wantOK)
			}
		})
	}
}

func TestService_Children(t *testing.T) {
	client := &fakeClient{children: func(token string) ([]ChildItem, error) {
		return []ChildItem{
			{UUID: "p$1.2024.9.10.501", DisplayName: null.StringFrom("Luka"), ClassName: null.StringFrom("7.a")},
			{UUID: "broken"},
			{UUID: "p$1.2024.9.11.502", DisplayName: null.StringFrom("Maja")},
		}, nil
	}}
	svc, _ := loggedIn(t, client)

	children, err := svc.Children(context.Background())
	if err != nil {
		t.Fatalf("Children() failed: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("len(children) = %d, want 2", len(children))
	}
	if c := children[0]; c.StudentID != 501 || c.ClassID.Int != 10 || c.DisplayName.String != "Luka" || c.ClassName.String != "7.a" {
		t.Errorf("children[0] = %+v", c)
	}

	c, ok, err := svc.Child(context.Background(), "p$1.2024.9.11.502")
	if err != nil || !ok || c.StudentID != 502 {
		t.Errorf("Child() = %+v, %v, %v", c, ok, err)
	}
	if _, ok, _ = svc.Child(context.Background(), "p$nope"); ok {
		t.Error("Child(unknown) ok = true")
	}
}
