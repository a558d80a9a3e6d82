package validator

import "testing"

func TestValidateUsername(t *testing.T) {
	cases := map[string]bool{
		"alice":                            true,
		"bob_99":                           true,
		"Zoë":                              true,
		"ab":                               false,
		"has space":                        false,
		"semi;colon":                       false,
		"":                                 false,
		"a_very_long_username_over_thirty": false,
	}
	for input, ok := range cases {
		err := ValidateUsername(input)
		if ok && err != nil {
			t.Fatalf("%q: unexpected error %v", input, err)
		}
		if !ok && err != ErrInvalidUsername {
			t.Fatalf("%q: expected ErrInvalidUsername, got %v", input, err)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err != ErrInvalidPassword {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if err := ValidatePassword("long enough"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type signup struct {
	Username        string `json:"username" validate:"username"`
	Password        string `json:"password" validate:"min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
	Receiver        string `json:"receiver" validate:"omitempty,username"`
	Amount          string `json:"amount" validate:"required"`
}

func TestStruct(t *testing.T) {
	valid := signup{Username: "alice", Password: "password1", ConfirmPassword: "password1", Amount: "1"}
	if err := Struct(valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	badName := valid
	badName.Username = "x"
	if err := Struct(badName); err != ErrInvalidUsername {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}

	badPassword := valid
	badPassword.Password = "short"
	badPassword.ConfirmPassword = "short"
	if err := Struct(badPassword); err != ErrInvalidPassword {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}

	mismatch := valid
	mismatch.ConfirmPassword = "password2"
	if err := Struct(mismatch); err == nil || err.Error() != "confirm_password does not match" {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := valid
	missing.Amount = ""
	if err := Struct(missing); err == nil || err.Error() != "invalid amount" {
		t.Fatalf("unexpected error: %v", err)
	}
}
