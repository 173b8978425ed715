package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

type jsoncConfig struct {
	Log           *jsoncLog           `json:"log"`
	Audio         *jsoncAudio         `json:"audio"`
	Window        *jsoncWindow        `json:"window"`
	Power         *jsoncPower         `json:"power"`
	Minimize      *jsoncMinimize      `json:"minimize"`
	ForceMinimize *jsoncForceMinimize `json:"force_minimize"`
}

type jsoncLog struct {
	Level *string `json:"level"`
	Path  *string `json:"path"`
}

type jsoncAudio struct {
	Backend *string `json:"backend"`
	AppName *string `json:"app_name"`
}

type jsoncWindow struct {
	Backend       *string          `json:"backend"`
	SystemClasses *jsoncStringList `json:"system_classes"`
}

type jsoncPower struct {
	Backend *string `json:"backend"`
	Command *string `json:"command"`
}

type jsoncMinimize struct {
	HandleWaitMS *int `json:"handle_wait_ms"`
	HandlePollMS *int `json:"handle_poll_ms"`
	SettleMS     *int `json:"settle_ms"`
	Attempts     *int `json:"attempts"`
	BackoffMS    *int `json:"backoff_ms"`
}

type jsoncForceMinimize struct {
	Rounds              *int `json:"rounds"`
	RoundIntervalMS     *int `json:"round_interval_ms"`
	QuietPeriodMS       *int `json:"quiet_period_ms"`
	PreForceDelayMS     *int `json:"pre_force_delay_ms"`
	Attempts            *int `json:"attempts"`
	ResponsiveTimeoutMS *int `json:"responsive_timeout_ms"`
	ProbeTimeoutMS      *int `json:"probe_timeout_ms"`
	ProbeIntervalMS     *int `json:"probe_interval_ms"`
	PollRounds          *int `json:"poll_rounds"`
	PollIntervalMS      *int `json:"poll_interval_ms"`
	AttemptGapMS        *int `json:"attempt_gap_ms"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		parts := strings.Split(single, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
		*l = out
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings := payload.applyTo(&cfg)

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setMillis(dst *time.Duration, src *int) {
	if src != nil {
		*dst = time.Duration(*src) * time.Millisecond
	}
}

func (payload jsoncConfig) applyTo(cfg *Config) []Warning {
	warnings := make([]Warning, 0)

	if payload.Log != nil {
		setString(&cfg.Log.Level, payload.Log.Level)
		setString(&cfg.Log.Path, payload.Log.Path)
	}

	if payload.Audio != nil {
		setString(&cfg.Audio.Backend, payload.Audio.Backend)
		setString(&cfg.Audio.AppName, payload.Audio.AppName)
	}

	if payload.Window != nil {
		setString(&cfg.Window.Backend, payload.Window.Backend)
		if payload.Window.SystemClasses != nil {
			classes := make([]string, 0, len(*payload.Window.SystemClasses))
			for _, class := range *payload.Window.SystemClasses {
				class = strings.TrimSpace(class)
				if class == "" {
					continue
				}
				classes = append(classes, class)
			}
			if len(classes) == 0 {
				warnings = append(warnings, Warning{Message: "window.system_classes is empty; shell and control windows may be force-minimized"})
			}
			cfg.Window.SystemClasses = classes
		}
	}

	if payload.Power != nil {
		setString(&cfg.Power.Backend, payload.Power.Backend)
		setString(&cfg.Power.Command, payload.Power.Command)
	}

	if m := payload.Minimize; m != nil {
		setMillis(&cfg.Minimize.HandleWait, m.HandleWaitMS)
		setMillis(&cfg.Minimize.HandlePoll, m.HandlePollMS)
		setMillis(&cfg.Minimize.Settle, m.SettleMS)
		setInt(&cfg.Minimize.Attempts, m.Attempts)
		setMillis(&cfg.Minimize.Backoff, m.BackoffMS)
	}

	if f := payload.ForceMinimize; f != nil {
		setInt(&cfg.ForceMinimize.Rounds, f.Rounds)
		setMillis(&cfg.ForceMinimize.RoundInterval, f.RoundIntervalMS)
		setMillis(&cfg.ForceMinimize.QuietPeriod, f.QuietPeriodMS)
		setMillis(&cfg.ForceMinimize.PreForceDelay, f.PreForceDelayMS)
		setInt(&cfg.ForceMinimize.ForceAttempts, f.Attempts)
		setMillis(&cfg.ForceMinimize.ResponsiveTimeout, f.ResponsiveTimeoutMS)
		setMillis(&cfg.ForceMinimize.ProbeTimeout, f.ProbeTimeoutMS)
		setMillis(&cfg.ForceMinimize.ProbeInterval, f.ProbeIntervalMS)
		setInt(&cfg.ForceMinimize.PollRounds, f.PollRounds)
		setMillis(&cfg.ForceMinimize.PollInterval, f.PollIntervalMS)
		setMillis(&cfg.ForceMinimize.AttemptGap, f.AttemptGapMS)
	}

	return warnings
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
