// Package loginlimit throttles repeated actions per key inside a sliding window, locking the key out for a while once
// the limit is hit. It backs both per-IP login throttling and the public lead submission limit.
package loginlimit

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

//go:generate go tool mockery
type Limiter interface {
	IsLocked(key string) bool
	MarkAttempt(key string) (int, error)
	Reset(key string)
}

var (
	ErrLocked = errors.New("loginlimit: key is locked")
)

const (
	ConfigKeyIPFailureLimit = "security.ip_limit.failure_limit"
	ConfigKeyIPLookbackTime = "security.ip_limit.lookback_time"
	ConfigKeyIPLockDuration = "security.ip_limit.lock_duration"

	ConfigKeySubmitMax    = "leads.submit_limit.max_per_window"
	ConfigKeySubmitWindow = "leads.submit_limit.window"

	DefaultIPFailureLimit = 20
	DefaultIPLookbackTime = 15 * time.Minute
	DefaultIPLockDuration = 15 * time.Minute

	DefaultSubmitMax    = 10
	DefaultSubmitWindow = 10 * time.Minute
)

// Key builds a limiter key such as "ip|203.0.113.7". Values are NFC normalized and lower cased.
func Key(kind string, value string) string {
	chain := transform.Chain(norm.NFC, cases.Lower(language.Und))
	normalized, _, err := transform.String(chain, strings.TrimSpace(value))
	if err != nil {
		normalized = strings.ToLower(strings.TrimSpace(value))
	}
	return kind + "|" + normalized
}

type InMemoryLimiter struct {
	name string

	attemptLock sync.Mutex
	lockLock    sync.Mutex

	maxAttempts  int
	lookbackTime time.Duration
	lockDuration time.Duration

	attempts map[string][]time.Time
	locks    map[string]time.Time

	stop chan struct{}
	once sync.Once
}

func orDefault[T int | time.Duration](v T, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// IPLockDuration is how long an address stays locked out of logging in.
func IPLockDuration() time.Duration {
	return orDefault(viper.GetDuration(ConfigKeyIPLockDuration), DefaultIPLockDuration)
}

// SubmitWindow is both the counting window and the lockout of the submission limiter.
func SubmitWindow() time.Duration {
	return orDefault(viper.GetDuration(ConfigKeySubmitWindow), DefaultSubmitWindow)
}

// NewIPLoginLimiter limits failed logins per source address.
func NewIPLoginLimiter() *InMemoryLimiter {
	return newRunningLimiter("ip_login",
		orDefault(viper.GetInt(ConfigKeyIPFailureLimit), DefaultIPFailureLimit),
		orDefault(viper.GetDuration(ConfigKeyIPLookbackTime), DefaultIPLookbackTime),
		IPLockDuration(),
	)
}

// NewSubmissionLimiter limits public lead submissions per source address. The lockout lasts one window.
func NewSubmissionLimiter() *InMemoryLimiter {
	window := SubmitWindow()
	return newRunningLimiter("lead_submit",
		orDefault(viper.GetInt(ConfigKeySubmitMax), DefaultSubmitMax),
		window,
		window,
	)
}

func newRunningLimiter(name string, maxAttempts int, lookbackTime time.Duration, lockDuration time.Duration) *InMemoryLimiter {
	log.Info().
		Str("limiter", name).
		Int("max_attempts", maxAttempts).
		Dur("lookback_time", lookbackTime).
		Dur("lock_duration", lockDuration).
		Msg("initializing in-memory limiter")

	l := constructLimiter(name, maxAttempts, lookbackTime, lockDuration)

	go func() {
		ticker := time.NewTicker(2 * min(lookbackTime, lockDuration))
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.cleanup()
			case <-l.stop:
				return
			}
		}
	}()

	return l
}

func constructLimiter(name string, maxAttempts int, lookbackTime time.Duration, lockDuration time.Duration) *InMemoryLimiter {
	return &InMemoryLimiter{
		name: name,

		maxAttempts:  maxAttempts,
		lookbackTime: lookbackTime,
		lockDuration: lockDuration,

		attempts: map[string][]time.Time{},
		locks:    map[string]time.Time{},

		stop: make(chan struct{}),
	}
}

// Close stops the cleanup goroutine.
func (l *InMemoryLimiter) Close() {
	l.once.Do(func() {
		close(l.stop)
	})
}

func (l *InMemoryLimiter) cleanup() {
	now := time.Now()

	l.lockLock.Lock()
	for k, v := range l.locks {
		if !v.After(now) {
			delete(l.locks, k)
		}
	}
	l.lockLock.Unlock()

	l.attemptLock.Lock()
	for k, v := range l.attempts {
		kept := live(v, now)
		if len(kept) == 0 {
			delete(l.attempts, k)
			continue
		}
		l.attempts[k] = kept
	}
	l.attemptLock.Unlock()
}

// live keeps the expiry stamps that are still in the future.
func live(expiries []time.Time, now time.Time) []time.Time {
	var kept []time.Time
	for _, curr := range expiries {
		if curr.After(now) {
			kept = append(kept, curr)
		}
	}
	return kept
}

func (l *InMemoryLimiter) IsLocked(key string) bool {
	l.lockLock.Lock()
	defer l.lockLock.Unlock()

	unlockTime, ok := l.locks[key]
	if !ok {
		return false
	}

	if !unlockTime.After(time.Now()) {
		delete(l.locks, key)
		return false
	}

	return true
}

func (l *InMemoryLimiter) lock(key string) {
	l.lockLock.Lock()
	defer l.lockLock.Unlock()

	l.locks[key] = time.Now().Add(l.lockDuration)
}

// MarkAttempt records one attempt for key and returns how many remain before it locks. Reaching the limit locks the
// key and returns ErrLocked.
func (l *InMemoryLimiter) MarkAttempt(key string) (int, error) {
	if l.IsLocked(key) {
		return 0, ErrLocked
	}

	l.attemptLock.Lock()
	defer l.attemptLock.Unlock()

	now := time.Now()
	current := append(live(l.attempts[key], now), now.Add(l.lookbackTime))

	if len(current) >= l.maxAttempts {
		delete(l.attempts, key)
		l.lock(key)

		log.Warn().Str("limiter", l.name).Str("key", key).Msg("limit reached, locking key")
		return 0, ErrLocked
	}

	l.attempts[key] = current
	return l.maxAttempts - len(current), nil
}

func (l *InMemoryLimiter) Reset(key string) {
	l.attemptLock.Lock()
	delete(l.attempts, key)
	l.attemptLock.Unlock()

	l.lockLock.Lock()
	delete(l.locks, key)
	l.lockLock.Unlock()
}
