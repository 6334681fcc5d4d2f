package validate

import "testing"

func TestPhoneNumber(t *testing.T) {
	valid := []string{"+12345678901", "+18005551234", "12345678901", "+442071838750"}
	for _, p := range valid {
		if err := PhoneNumber(p); err != nil {
			t.Errorf("PhoneNumber(%q) = %v, want nil", p, err)
		}
	}
	invalid := []string{"", "+0123456789", "0123456789", "abc", "+1234567890123456", "+1", "+1-800-555"}
	for _, p := range invalid {
		if err := PhoneNumber(p); err == nil {
			t.Errorf("PhoneNumber(%q) = nil, want error", p)
		}
	}
}

func TestEmail(t *testing.T) {
	if err := Email("a.b@example.com"); err != nil {
		t.Errorf("Email valid address: %v", err)
	}
	for _, e := range []string{"", "x@y", "no-at-sign.com", "a@b."} {
		if err := Email(e); err == nil {
			t.Errorf("Email(%q) = nil, want error", e)
		}
	}
}

func TestPassword(t *testing.T) {
	if err := Password("Passw0rd"); err != nil {
		t.Errorf("Password valid: %v", err)
	}
	for _, p := range []string{"short1A", "alllowercase1", "ALLUPPERCASE1", "NoDigitsHere"} {
		if err := Password(p); err == nil {
			t.Errorf("Password(%q) = nil, want error", p)
		}
	}
}

func TestPersonName(t *testing.T) {
	if err := PersonName("  Jo  ", 2, 100); err != nil {
		t.Errorf("PersonName trims before measuring: %v", err)
	}
	if err := PersonName("J", 2, 100); err == nil {
		t.Error("PersonName below minimum should fail")
	}
}
