package helpers

import (
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testKey = []byte("test-signing-key-of-reasonable-length")

func testValidator() *TokenValidator {
	jwks := keyfunc.NewGiven(map[string]keyfunc.GivenKey{
		"test-kid": keyfunc.NewGivenHMAC(testKey, keyfunc.GivenKeyOptions{Algorithm: jwt.SigningMethodHS256.Alg()}),
	})
	return NewTokenValidatorFromJWKS(jwks)
}

func signToken(t *testing.T, kid, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := CustomClaims{
		Email: "ama@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(testKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestTokenValidator(t *testing.T) {
	tv := testValidator()
	defer tv.Close()
	subject := uuid.NewString()

	claims, err := tv.Validate("Bearer " + signToken(t, "test-kid", subject, time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.Subject != subject || claims.Email != "ama@example.com" {
		t.Errorf("unexpected claims %+v", claims)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"expired", signToken(t, "test-kid", subject, time.Now().Add(-time.Hour))},
		{"unknown key id", signToken(t, "other-kid", subject, time.Now().Add(time.Hour))},
		{"no subject", signToken(t, "test-kid", "", time.Now().Add(time.Hour))},
		{"garbage", "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tv.Validate(tt.token); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestEnhancedClaimsRoles(t *testing.T) {
	id := uuid.New()
	ec := &EnhancedClaims{Role: "provider", UserID: id.String()}

	if !ec.IsProvider() || ec.IsAdmin() || ec.IsCustomer() {
		t.Errorf("role helpers disagree for %q", ec.Role)
	}
	if !ec.HasRole("admin", "provider") || ec.HasRole("user") {
		t.Errorf("HasRole() mismatch")
	}
	got, err := ec.UserUUID()
	if err != nil || got != id {
		t.Errorf("UserUUID() = %v, %v", got, err)
	}
	if (&EnhancedClaims{}).GetSafeRole() != "guest" {
		t.Errorf("empty role should default to guest")
	}
}

func TestResponses(t *testing.T) {
	res := SuccessWithWarning("data", "ok", "notification delivery failed")
	if !res.Success || res.Warning == "" || res.Message != "ok" {
		t.Errorf("unexpected response %+v", res)
	}
	if er := ErrorResponse("boom"); er.Success || er.Error != "boom" {
		t.Errorf("unexpected error response %+v", er)
	}
	if pr := PaginatedResponse([]int{1}, 2, 10, 11); pr.Page != 2 || pr.Limit != 10 || pr.Total != 11 {
		t.Errorf("unexpected paginated response %+v", pr)
	}
}
