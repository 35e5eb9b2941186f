// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pmce/setores-web/internal/i18n"
	"github.com/pmce/setores-web/internal/logging"
	"github.com/pmce/setores-web/internal/model"
)

// LoginProtection combines per-IP rate limiting of login posts with a
// per-email lockout after repeated backend rejections.
type LoginProtection struct {
	ipLimiters *limiterCache[string]

	failedAttempts map[string]*loginAttempt
	attemptsMu     sync.RWMutex

	maxFailedAttempts int
	lockoutDuration   time.Duration // doubles with each lockout, capped at maxLockout
	attemptWindow     time.Duration

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

type loginAttempt struct {
	count       int
	firstFailed time.Time
	lockedUntil time.Time
	lockouts    int
}

const (
	maxLockout = 24 * time.Hour
	// lockoutDecay is how long after its last lock an email keeps its
	// lockout count.
	lockoutDecay = 24 * time.Hour
)

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	// IPRateLimit is requests per second per IP.
	IPRateLimit float64
	IPBurst     int
	// MaxFailedAttempts before the email is locked.
	MaxFailedAttempts int
	// LockoutDuration is the first lockout; each further one doubles it.
	LockoutDuration time.Duration
	// AttemptWindow is the window in which failures are counted.
	AttemptWindow time.Duration
}

// DefaultLoginProtectionConfig returns sensible defaults.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5, // 1 request per 2 seconds
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewLoginProtection creates a login protector and starts its cleanup loop.
// Call Close to stop the loop.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	def := DefaultLoginProtectionConfig()
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = def.IPRateLimit
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = def.IPBurst
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = def.AttemptWindow
	}

	lp := &LoginProtection{
		ipLimiters:        newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		failedAttempts:    make(map[string]*loginAttempt),
		maxFailedAttempts: cfg.MaxFailedAttempts,
		lockoutDuration:   cfg.LockoutDuration,
		attemptWindow:     cfg.AttemptWindow,
		now:               time.Now,
		stop:              make(chan struct{}),
	}

	go lp.cleanup()

	return lp
}

// Close stops the cleanup loop.
func (lp *LoginProtection) Close() {
	lp.once.Do(func() { close(lp.stop) })
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckIPRateLimit reports whether a login post from ip is allowed.
func (lp *LoginProtection) CheckIPRateLimit(ip string) bool {
	return lp.ipLimiters.get(ip).Allow()
}

// IsAccountLocked reports whether email is locked and for how much longer.
func (lp *LoginProtection) IsAccountLocked(email string) (bool, time.Duration) {
	lp.attemptsMu.RLock()
	defer lp.attemptsMu.RUnlock()

	attempt, exists := lp.failedAttempts[normalizeEmail(email)]
	if !exists {
		return false, 0
	}
	now := lp.now()
	if now.Before(attempt.lockedUntil) {
		return true, attempt.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailedAttempt records a rejected login and reports whether the
// email just became locked.
func (lp *LoginProtection) RecordFailedAttempt(email string) (bool, time.Duration) {
	email = normalizeEmail(email)

	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	now := lp.now()
	attempt, exists := lp.failedAttempts[email]
	if !exists {
		lp.failedAttempts[email] = &loginAttempt{count: 1, firstFailed: now}
		slog.Debug("login attempt recorded", "email", email, "count", 1)
		return false, 0
	}

	if now.Sub(attempt.firstFailed) > lp.attemptWindow {
		attempt.count = 1
		attempt.firstFailed = now
		slog.Debug("login attempt window reset", "email", email)
		return false, 0
	}

	attempt.count++
	slog.Debug("login attempt recorded", "email", email, "count", attempt.count)

	if attempt.count < lp.maxFailedAttempts {
		return false, 0
	}

	lockDuration := lp.lockoutDuration
	for i := 0; i < attempt.lockouts && lockDuration < maxLockout; i++ {
		lockDuration *= 2
	}
	lockDuration = min(lockDuration, maxLockout)

	attempt.lockedUntil = now.Add(lockDuration)
	attempt.lockouts++
	attempt.count = 0

	slog.Warn("login locked after failed attempts",
		logging.AttrCategory, model.EventCategoryAuth,
		logging.AttrUserEmail, email,
		"lockouts", attempt.lockouts,
		"duration", lockDuration.String(),
	)
	return true, lockDuration
}

// RecordSuccessfulLogin clears the failure history of email.
func (lp *LoginProtection) RecordSuccessfulLogin(email string) {
	email = normalizeEmail(email)

	lp.attemptsMu.Lock()
	delete(lp.failedAttempts, email)
	lp.attemptsMu.Unlock()
}

// GetRemainingAttempts returns how many failures are left before lockout.
func (lp *LoginProtection) GetRemainingAttempts(email string) int {
	lp.attemptsMu.RLock()
	defer lp.attemptsMu.RUnlock()

	attempt, exists := lp.failedAttempts[normalizeEmail(email)]
	if !exists || lp.now().Sub(attempt.firstFailed) > lp.attemptWindow {
		return lp.maxFailedAttempts
	}
	return max(lp.maxFailedAttempts-attempt.count, 0)
}

func (lp *LoginProtection) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-lp.stop:
			return
		case <-ticker.C:
			lp.cleanupStaleEntries()
		}
	}
}

func (lp *LoginProtection) cleanupStaleEntries() {
	if lp.ipLimiters.clearIfExceeds(10000) {
		slog.Info("cleared IP rate limiters due to size")
	}

	now := lp.now()
	lp.attemptsMu.Lock()
	for email, attempt := range lp.failedAttempts {
		if attempt.lockouts > 0 {
			// Lockout history drives the backoff; forget it only after a
			// quiet period past the last lock.
			if now.Sub(attempt.lockedUntil) > lockoutDecay {
				delete(lp.failedAttempts, email)
			}
			continue
		}
		if now.Sub(attempt.firstFailed) > lp.attemptWindow {
			delete(lp.failedAttempts, email)
		}
	}
	lp.attemptsMu.Unlock()
}

// Middleware rate limits login posts per client IP.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			if !lp.CheckIPRateLimit(ip) {
				slog.Warn("login rate limit exceeded", logging.AttrCategory, model.EventCategoryAuth, logging.AttrIP, ip)
				w.Header().Set("Retry-After", "2")
				http.Error(w, i18n.T(GetLang(r), "auth.rate_limit"), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
