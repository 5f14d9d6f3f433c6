package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNewAndWrap(t *testing.T) {
	base := New(ErrCodeParse, "bad line %d", 7)
	if base.Error() != "PARSE_ERROR: bad line 7" {
		t.Errorf("Error() = %q", base.Error())
	}
	if !Is(base, ErrCodeParse) {
		t.Error("Is() = false for matching code")
	}
	if Is(base, ErrCodeAlignment) {
		t.Error("Is() = true for mismatched code")
	}

	wrapped := Wrap(ErrCodeCreation, base, "placing tendon %d", 3)
	if GetCode(wrapped) != ErrCodeCreation {
		t.Errorf("GetCode(wrapped) = %v", GetCode(wrapped))
	}
	if !stderrors.Is(wrapped, base) {
		t.Error("wrapped error does not unwrap to its cause")
	}
}

type codedError struct{ code Code }

func (e *codedError) Error() string { return "coded" }
func (e *codedError) Code() Code    { return e.code }

func TestCoderSupport(t *testing.T) {
	err := fmt.Errorf("outer: %w", &codedError{code: ErrCodeAlignment})
	if !Is(err, ErrCodeAlignment) {
		t.Error("Is() did not find Coder through the chain")
	}
	if GetCode(err) != ErrCodeAlignment {
		t.Errorf("GetCode() = %v", GetCode(err))
	}
}

func TestGetCodePlainError(t *testing.T) {
	if GetCode(fmt.Errorf("plain")) != "" {
		t.Error("GetCode(plain) should be empty")
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeInvalidInput, "boundary file missing")
	if UserMessage(err) != "boundary file missing" {
		t.Errorf("UserMessage() = %q", UserMessage(err))
	}
	plain := fmt.Errorf("plain failure")
	if UserMessage(plain) != "plain failure" {
		t.Errorf("UserMessage(plain) = %q", UserMessage(plain))
	}
}

func TestValidateFamilyName(t *testing.T) {
	valid := []string{
		"3Daro_PT_Tendon_Plan_001.rfa",
		"tendon tag.rfa",
	}
	for _, name := range valid {
		if err := ValidateFamilyName(name); err != nil {
			t.Errorf("ValidateFamilyName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{
		"",
		"../tendon.rfa",
		"a/b.rfa",
		"a\\b.rfa",
		"bad\x00name.rfa",
		"ctl\x07.rfa",
		string(make([]byte, 300)),
	}
	for _, name := range invalid {
		if err := ValidateFamilyName(name); err == nil {
			t.Errorf("ValidateFamilyName(%q) = nil, want error", name)
		}
	}
}

func TestValidateDocumentKey(t *testing.T) {
	if err := ValidateDocumentKey("slab-l3.doc"); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
	if err := ValidateDocumentKey(""); err == nil {
		t.Error("empty key accepted")
	}
	if err := ValidateDocumentKey("bad\nkey"); err == nil {
		t.Error("control character accepted")
	}
}
