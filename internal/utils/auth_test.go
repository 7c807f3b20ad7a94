package utils

import (
	"testing"

	"github.com/kibslabs/labstock/internal/models"
)

func TestPasswordHashing(t *testing.T) {
	password := "secret123"

	// Test Hashing
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if hash == password {
		t.Error("Hash should not match plaintext password")
	}
	if len(hash) == 0 {
		t.Error("Hash should not be empty")
	}

	// Test Comparison (Success)
	if !CheckPasswordHash(password, hash) {
		t.Error("Password should match hash")
	}

	// Test Comparison (Failure)
	if CheckPasswordHash("wrongpassword", hash) {
		t.Error("Wrong password should not match hash")
	}
}

func TestJWT(t *testing.T) {
	secret := "test-secret-key-12345"

	worker := &models.Worker{
		ID:      "uuid-1234",
		Email:   "test@example.com",
		IsAdmin: true,
	}

	// Test Generation
	token, err := GenerateToken(worker, secret)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if len(token) == 0 {
		t.Error("Token should not be empty")
	}

	// Test Validation (Success)
	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims["id"] != worker.ID {
		t.Errorf("Expected id %s, got %v", worker.ID, claims["id"])
	}
	if claims["email"] != worker.Email {
		t.Errorf("Expected email %s, got %v", worker.Email, claims["email"])
	}
	if claims["isAdmin"] != true {
		t.Errorf("Expected isAdmin true, got %v", claims["isAdmin"])
	}

	// Test Validation (Wrong Secret)
	if _, err := ValidateToken(token, "wrong-secret"); err == nil {
		t.Error("Token signed with another secret should not validate")
	}

	// Test Validation (Garbage)
	if _, err := ValidateToken("not.a.token", secret); err == nil {
		t.Error("Malformed token should not validate")
	}
}
