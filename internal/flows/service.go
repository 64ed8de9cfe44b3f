package flows

import (
	"context"

	"github.com/MrEthical07/tokenauth/identity"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Authenticate.Parse != nil && s.deps.Reissue.Parse != nil
}

func (s Service) Login(ctx context.Context, provider string, raw []byte) LoginResult {
	return RunLogin(ctx, provider, raw, s.deps.Login)
}

func (s Service) Issue(ctx context.Context, id identity.Identity) LoginResult {
	return RunIssue(ctx, id, s.deps.Login)
}

func (s Service) Authenticate(ctx context.Context, tokenStr string) AuthenticateResult {
	return RunAuthenticate(ctx, tokenStr, s.deps.Authenticate)
}

func (s Service) Reissue(ctx context.Context, refreshToken string) ReissueResult {
	return RunReissue(ctx, refreshToken, s.deps.Reissue)
}

func (s Service) Logout(ctx context.Context, accessToken string) LogoutResult {
	return RunLogout(ctx, accessToken, s.deps.Logout)
}
