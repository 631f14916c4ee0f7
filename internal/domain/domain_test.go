package domain

import (
	"errors"
	"testing"

	"github.com/MrSnakeDoc/marks/internal/errs"
)

func TestDraftValidate(t *testing.T) {
	tests := []struct {
		name    string
		draft   Draft
		wantErr bool
	}{
		{"both set", Draft{Title: "Paper", URL: "http://x.test"}, false},
		{"whitespace title kept", Draft{Title: "  ", URL: "http://x.test"}, false},
		{"empty title", Draft{Title: "", URL: "http://x.test"}, true},
		{"blank url", Draft{Title: "Paper", URL: ""}, true},
		{"empty", Draft{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.wantErr != (err != nil) {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errs.ErrValidation) {
				t.Errorf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestDraftBookmarkKeepsInput(t *testing.T) {
	nb := Draft{Title: " Paper ", URL: " http://x.test "}.Bookmark("u-1")

	if nb.Title != " Paper " || nb.URL != " http://x.test " || nb.UserID != "u-1" {
		t.Errorf("Bookmark() = %+v", nb)
	}
	if !(Draft{}).IsEmpty() {
		t.Errorf("zero draft should be empty")
	}
}

func TestSessionUserID(t *testing.T) {
	var s *Session
	if s.UserID() != "" {
		t.Errorf("nil session should have no user")
	}
	s = &Session{User: User{ID: "u-1"}}
	if s.UserID() != "u-1" {
		t.Errorf("UserID() = %v", s.UserID())
	}
}
