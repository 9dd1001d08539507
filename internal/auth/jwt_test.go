package auth

import "testing"

func TestGenerateAndValidateUserToken(t *testing.T) {
	token, err := GenerateUserToken("user-123", "Ada", "ada@example.com")
	if err != nil {
		t.Fatalf("GenerateUserToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Errorf("UserID = %q, want user-123", claims.UserID)
	}
	if claims.Email != "ada@example.com" {
		t.Errorf("Email = %q, want ada@example.com", claims.Email)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Error("Expected error for malformed token")
	}

	if _, err := ValidateToken(""); err == nil {
		t.Error("Expected error for empty token")
	}
}
