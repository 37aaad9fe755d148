package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/lojafacil/lojas-backend/api/responses"
	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
	"github.com/lojafacil/lojas-backend/pkg/logger"
	"github.com/lojafacil/lojas-backend/pkg/validation"
)

const maxLimitedBody = 1 << 20

type windowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one public form by client address and by
// submitted email.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int64
	emailLimit int64
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{
		name:       name,
		window:     window,
		ipLimit:    int64(ipLimit),
		emailLimit: int64(emailLimit),
	}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

type limitBucket struct {
	kind  string
	value string
	limit int64
}

func (b limitBucket) scope(policy string) string {
	return policy + ":" + b.kind + ":" + b.value
}

// buckets lists the counters a submission is charged against.
func (p AuthRateLimitPolicy) buckets(ip, email string) []limitBucket {
	out := make([]limitBucket, 0, 2)
	if p.ipLimit > 0 && ip != "" {
		out = append(out, limitBucket{kind: "ip", value: ip, limit: p.ipLimit})
	}
	if p.emailLimit > 0 && email != "" {
		out = append(out, limitBucket{kind: "email", value: hashValue(email), limit: p.emailLimit})
	}
	return out
}

// AuthRateLimit counts form submissions in fixed windows and answers 429 once
// any bucket goes over its limit. The form is parsed here and stays available
// to the handler through r.PostForm.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter windowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var email string
			if policy.emailLimit > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxLimitedBody)
				if err := r.ParseForm(); err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body"))
					return
				}
				email = validation.NormalizeEmail(r.PostForm.Get("email"))
			}

			for _, b := range policy.buckets(clientIP(r), email) {
				allowed, count, err := limiter.FixedWindowAllow(ctx, b.scope(policy.name), b.limit, policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":   policy.name,
							"bucket":   b.kind,
							"attempts": count,
							"limit":    b.limit,
							"window":   policy.window.String(),
						}), "auth.rate_limit.blocked")
					}
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "muitas tentativas, aguarde e tente novamente"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		first, _, _ := strings.Cut(header, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
