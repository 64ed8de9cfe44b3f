package identity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// googlePayload is the OpenID Connect userinfo shape.
type googlePayload struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// naverPayload nests the profile one level deep under "response".
type naverPayload struct {
	ResultCode string `json:"resultcode"`
	Message    string `json:"message"`
	Response   *struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Email        string `json:"email"`
		ProfileImage string `json:"profile_image"`
	} `json:"response"`
}

// kakaoPayload nests the profile two levels deep and uses a numeric id.
type kakaoPayload struct {
	ID           *int64 `json:"id"`
	KakaoAccount *struct {
		Email   string `json:"email"`
		Profile *struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

// Normalize decodes raw with the payload shape of provider.
//
// Unknown providers fail with ErrUnsupportedProvider. Payloads that do not
// decode, miss their nested objects, or lack an email or provider id fail
// with ErrMalformedAttributes.
func Normalize(provider string, raw []byte) (OAuthAttributes, error) {
	p, err := ParseProvider(provider)
	if err != nil {
		return OAuthAttributes{}, fmt.Errorf("%w: %q", err, provider)
	}

	var attrs OAuthAttributes
	switch p {
	case ProviderGoogle:
		attrs, err = normalizeGoogle(raw)
	case ProviderNaver:
		attrs, err = normalizeNaver(raw)
	case ProviderKakao:
		attrs, err = normalizeKakao(raw)
	}
	if err != nil {
		return OAuthAttributes{}, err
	}

	attrs.Provider = p
	attrs.Email = strings.TrimSpace(attrs.Email)
	attrs.Name = strings.TrimSpace(attrs.Name)
	if attrs.Email == "" {
		return OAuthAttributes{}, fmt.Errorf("%w: %s payload has no email", ErrMalformedAttributes, provider)
	}
	if attrs.ProviderID == "" {
		return OAuthAttributes{}, fmt.Errorf("%w: %s payload has no id", ErrMalformedAttributes, provider)
	}
	return attrs, nil
}

func normalizeGoogle(raw []byte) (OAuthAttributes, error) {
	var p googlePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return OAuthAttributes{}, fmt.Errorf("%w: %v", ErrMalformedAttributes, err)
	}
	return OAuthAttributes{
		Name:       p.Name,
		Email:      p.Email,
		Picture:    p.Picture,
		ProviderID: p.Sub,
	}, nil
}

func normalizeNaver(raw []byte) (OAuthAttributes, error) {
	var p naverPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return OAuthAttributes{}, fmt.Errorf("%w: %v", ErrMalformedAttributes, err)
	}
	if p.Response == nil {
		return OAuthAttributes{}, fmt.Errorf("%w: naver payload has no response object", ErrMalformedAttributes)
	}
	return OAuthAttributes{
		Name:       p.Response.Name,
		Email:      p.Response.Email,
		Picture:    p.Response.ProfileImage,
		ProviderID: p.Response.ID,
	}, nil
}

func normalizeKakao(raw []byte) (OAuthAttributes, error) {
	var p kakaoPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return OAuthAttributes{}, fmt.Errorf("%w: %v", ErrMalformedAttributes, err)
	}
	if p.ID == nil {
		return OAuthAttributes{}, fmt.Errorf("%w: kakao payload has no id", ErrMalformedAttributes)
	}
	if p.KakaoAccount == nil {
		return OAuthAttributes{}, fmt.Errorf("%w: kakao payload has no kakao_account object", ErrMalformedAttributes)
	}
	attrs := OAuthAttributes{
		Email:      p.KakaoAccount.Email,
		ProviderID: strconv.FormatInt(*p.ID, 10),
	}
	if p.KakaoAccount.Profile != nil {
		attrs.Name = p.KakaoAccount.Profile.Nickname
		attrs.Picture = p.KakaoAccount.Profile.ProfileImageURL
	}
	return attrs, nil
}
