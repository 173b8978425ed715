package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	logLevels      = []string{"debug", "info", "warn", "error"}
	audioBackends  = []string{BackendAuto, BackendNone, BackendCoreAudio, BackendPulse}
	windowBackends = []string{BackendAuto, BackendNone, BackendWin32, BackendHypr}
	powerBackends  = []string{BackendAuto, BackendNone, BackendPowrProf, BackendPowerProfiles}
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if err := oneOf("log.level", cfg.Log.Level, logLevels); err != nil {
		return nil, err
	}
	if err := oneOf("audio.backend", cfg.Audio.Backend, audioBackends); err != nil {
		return nil, err
	}
	if err := oneOf("window.backend", cfg.Window.Backend, windowBackends); err != nil {
		return nil, err
	}
	if err := oneOf("power.backend", cfg.Power.Backend, powerBackends); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Power.Command) == "" {
		return nil, fmt.Errorf("power.command must not be empty")
	}

	d := cfg.Minimize
	checks := []error{
		positive("minimize.handle_wait_ms", d.HandleWait),
		positive("minimize.handle_poll_ms", d.HandlePoll),
		notNegative("minimize.settle_ms", d.Settle),
		notNegative("minimize.backoff_ms", d.Backoff),
		atLeastOne("minimize.attempts", d.Attempts),
	}

	f := cfg.ForceMinimize
	checks = append(checks,
		atLeastOne("force_minimize.rounds", f.Rounds),
		positive("force_minimize.round_interval_ms", f.RoundInterval),
		notNegative("force_minimize.quiet_period_ms", f.QuietPeriod),
		notNegative("force_minimize.pre_force_delay_ms", f.PreForceDelay),
		atLeastOne("force_minimize.attempts", f.ForceAttempts),
		notNegative("force_minimize.responsive_timeout_ms", f.ResponsiveTimeout),
		positive("force_minimize.probe_timeout_ms", f.ProbeTimeout),
		positive("force_minimize.probe_interval_ms", f.ProbeInterval),
		atLeastOne("force_minimize.poll_rounds", f.PollRounds),
		positive("force_minimize.poll_interval_ms", f.PollInterval),
		notNegative("force_minimize.attempt_gap_ms", f.AttemptGap),
	)
	for _, err := range checks {
		if err != nil {
			return nil, err
		}
	}

	if window := time.Duration(f.Rounds) * f.RoundInterval; f.QuietPeriod >= window {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(
			"force_minimize.quiet_period_ms (%s) is not shorter than the watch window (%s); force-minimize will never trigger",
			f.QuietPeriod, window,
		)})
	}

	return warnings, nil
}

func oneOf(key string, value string, allowed []string) error {
	if slices.Contains(allowed, strings.ToLower(strings.TrimSpace(value))) {
		return nil
	}
	return fmt.Errorf("%s must be one of: %s", key, strings.Join(allowed, ", "))
}

func positive(key string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be > 0", key)
	}
	return nil
}

func notNegative(key string, d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%s must be >= 0", key)
	}
	return nil
}

func atLeastOne(key string, n int) error {
	if n < 1 {
		return fmt.Errorf("%s must be >= 1", key)
	}
	return nil
}
