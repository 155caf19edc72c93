package providers

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/quillpost/quillpost-server/internal/auth"
	"github.com/quillpost/quillpost-server/internal/config"
	"github.com/quillpost/quillpost-server/internal/logger"
	"github.com/quillpost/quillpost-server/internal/ratelimit"
)

// loginLimiterIdleTTL is how long an idle per-IP limiter is kept.
const loginLimiterIdleTTL = 10 * time.Minute

// ProvideSessionCredential provides the PASETO session issuer.
// A missing or short secret is reported on each login, not at startup.
func ProvideSessionCredential(i do.Injector) (*auth.SessionCredential, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.Secret == "" {
		log.Warn("AUTH_SECRET is not set - logins will fail until it is configured")
	}

	return auth.NewSessionCredential(cfg.Auth.Secret), nil
}

// ProvideOperator provides the operator credential check.
func ProvideOperator(i do.Injector) (*auth.Operator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	op, err := auth.NewOperator(cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
	if err != nil {
		return nil, err
	}
	if !op.Configured() {
		log.Warn("ADMIN_USERNAME or ADMIN_PASSWORD is not set - admin login is disabled")
	}
	return op, nil
}

// ProvideLoginLimiter provides the per-IP login rate limiter. It implements
// do.Shutdownable, which stops its cleanup goroutine.
func ProvideLoginLimiter(i do.Injector) (*ratelimit.KeyedRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	limiter := ratelimit.New(
		ratelimit.PerMinute(cfg.Auth.LoginRatePerMinute),
		cfg.Auth.LoginBurst,
		loginLimiterIdleTTL,
	)

	log.Info("Login rate limit configured",
		"per_minute", cfg.Auth.LoginRatePerMinute,
		"burst", cfg.Auth.LoginBurst,
	)

	return limiter, nil
}
