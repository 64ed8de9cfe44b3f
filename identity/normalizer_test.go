package identity

import (
	"errors"
	"testing"
)

func TestNormalizeProviders(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		raw      string
		want     OAuthAttributes
	}{
		{
			name:     "google flat",
			provider: "google",
			raw:      `{"sub":"g1","name":"Ann","email":"ann@x.com","picture":"https://p/ann.png"}`,
			want:     OAuthAttributes{Name: "Ann", Email: "ann@x.com", Picture: "https://p/ann.png", Provider: ProviderGoogle, ProviderID: "g1"},
		},
		{
			name:     "naver one level",
			provider: "naver",
			raw:      `{"resultcode":"00","message":"success","response":{"id":"n-77","name":"Bo","email":"bo@x.com","profile_image":"https://p/bo.png"}}`,
			want:     OAuthAttributes{Name: "Bo", Email: "bo@x.com", Picture: "https://p/bo.png", Provider: ProviderNaver, ProviderID: "n-77"},
		},
		{
			name:     "kakao two levels numeric id",
			provider: "kakao",
			raw:      `{"id":4242424242,"kakao_account":{"email":"cy@x.com","profile":{"nickname":"Cy","profile_image_url":"https://p/cy.png"}}}`,
			want:     OAuthAttributes{Name: "Cy", Email: "cy@x.com", Picture: "https://p/cy.png", Provider: ProviderKakao, ProviderID: "4242424242"},
		},
		{
			name:     "kakao without profile",
			provider: "KAKAO",
			raw:      `{"id":7,"kakao_account":{"email":"dee@x.com"}}`,
			want:     OAuthAttributes{Email: "dee@x.com", Provider: ProviderKakao, ProviderID: "7"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.provider, []byte(tc.raw))
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestNormalizeUnknownProvider(t *testing.T) {
	for _, name := range []string{"github", "", "dev", "local"} {
		if _, err := Normalize(name, []byte(`{"email":"a@x.com","sub":"1"}`)); !errors.Is(err, ErrUnsupportedProvider) {
			t.Fatalf("provider %q: expected ErrUnsupportedProvider, got %v", name, err)
		}
	}
}

func TestNormalizeRejectsShapeMismatch(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		raw      string
	}{
		{name: "not json", provider: "google", raw: `nope`},
		{name: "google missing email", provider: "google", raw: `{"sub":"g1","name":"Ann"}`},
		{name: "google missing sub", provider: "google", raw: `{"email":"ann@x.com"}`},
		{name: "google shape sent as naver", provider: "naver", raw: `{"sub":"g1","email":"ann@x.com"}`},
		{name: "naver missing id", provider: "naver", raw: `{"response":{"email":"bo@x.com"}}`},
		{name: "kakao string id", provider: "kakao", raw: `{"id":"abc","kakao_account":{"email":"cy@x.com"}}`},
		{name: "kakao missing account", provider: "kakao", raw: `{"id":1}`},
		{name: "kakao missing id", provider: "kakao", raw: `{"kakao_account":{"email":"cy@x.com"}}`},
		{name: "kakao blank email", provider: "kakao", raw: `{"id":1,"kakao_account":{"email":"  "}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Normalize(tc.provider, []byte(tc.raw)); !errors.Is(err, ErrMalformedAttributes) {
				t.Fatalf("expected ErrMalformedAttributes, got %v", err)
			}
		})
	}
}

func TestRoleAuthority(t *testing.T) {
	if got := RoleUser.Authority(); got != "ROLE_USER" {
		t.Fatalf("unexpected authority %q", got)
	}
	if got := (Identity{Role: RoleAdmin}).Authorities(); len(got) != 1 || got[0] != "ROLE_ADMIN" {
		t.Fatalf("unexpected authorities %v", got)
	}
	if Role("ROOT").Valid() {
		t.Fatal("unknown role must not be valid")
	}
}
