package auth

import (
	"context"
	"testing"
)

// stubHIBP lets tests substitute the network-calling HIBP lookup with a
// deterministic result, restoring the real lookup afterwards.
func stubHIBP(t *testing.T, found bool, err error) {
	t.Helper()
	prev := hibpLookupFn
	hibpLookupFn = func(ctx context.Context, pw string) (HIBPResult, error) {
		return HIBPResult{Found: found}, err
	}
	t.Cleanup(func() { hibpLookupFn = prev })
}

func TestValidateMasterPasswordAdvancedRejectsShortPassword(t *testing.T) {
	stubHIBP(t, false, nil)
	err := ValidateMasterPasswordAdvanced(context.Background(), "Ab1!", ValidateOptions{RequireLUDS: true})
	if err == nil {
		t.Fatalf("expected error for a password under the minimum length")
	}
}

func TestValidateMasterPasswordAdvancedRequiresLUDSComposition(t *testing.T) {
	stubHIBP(t, false, nil)
	for _, pw := range []string{
		"alllowercaseverylong",
		"ALLUPPERCASEVERYLONG1!",
	} {
		if err := ValidateMasterPasswordAdvanced(context.Background(), pw, ValidateOptions{RequireLUDS: true}); err == nil {
			t.Fatalf("expected LUDS composition error for %q", pw)
		}
	}
}

func TestValidateMasterPasswordAdvancedRejectsMissingLowercase(t *testing.T) {
	stubHIBP(t, false, nil)
	err := ValidateMasterPasswordAdvanced(context.Background(), "ALLUPPERCASEVERYLONG1!", ValidateOptions{RequireLUDS: true})
	if err == nil {
		t.Fatalf("expected a lowercase-composition error for an all-uppercase password")
	}
}

func TestValidateMasterPasswordAdvancedHonorsCallerMinLength(t *testing.T) {
	stubHIBP(t, false, nil)
	pw := "Tr0ub4dor&3xtra!Long" // passes the default 12-char policy
	err := ValidateMasterPasswordAdvanced(context.Background(), pw, ValidateOptions{
		RequireLUDS: true,
		MinLength:   len(pw) + 1,
	})
	if err == nil {
		t.Fatalf("expected a caller-supplied MinLength stricter than the default to be honored")
	}
}

func TestValidateMasterPasswordAdvancedAcceptsStrongPassword(t *testing.T) {
	stubHIBP(t, false, nil)
	err := ValidateMasterPasswordAdvanced(context.Background(), "Tr0ub4dor&3xtra!Long", ValidateOptions{RequireLUDS: true})
	if err != nil {
		t.Fatalf("expected a long, high-entropy, LUDS-complete password to pass: %v", err)
	}
}

func TestValidateMasterPasswordAdvancedRejectsBreachedPassword(t *testing.T) {
	stubHIBP(t, true, nil)
	err := ValidateMasterPasswordAdvanced(context.Background(), "Tr0ub4dor&3xtra!Long", ValidateOptions{RequireLUDS: true, EnableHIBP: true})
	if err == nil {
		t.Fatalf("expected rejection when HIBP reports the password as breached")
	}
}

func TestValidateMasterPasswordAdvancedSkipsHIBPWhenDisabled(t *testing.T) {
	// Even if the lookup would report a breach, EnableHIBP: false must
	// skip the check entirely rather than erroring or blocking.
	stubHIBP(t, true, nil)
	err := ValidateMasterPasswordAdvanced(context.Background(), "Tr0ub4dor&3xtra!Long", ValidateOptions{RequireLUDS: true, EnableHIBP: false})
	if err != nil {
		t.Fatalf("expected no error with HIBP disabled, got %v", err)
	}
}

func TestValidateMasterPasswordUsesDefaultPolicy(t *testing.T) {
	stubHIBP(t, false, nil)
	if err := ValidateMasterPassword("short"); err == nil {
		t.Fatalf("expected the default policy to reject a short password")
	}
	if err := ValidateMasterPassword("Tr0ub4dor&3xtra!Long"); err != nil {
		t.Fatalf("expected the default policy to accept a strong password: %v", err)
	}
}
