package config

import (
	"fmt"
	"time"
)

// Keys exposed through the settings service. Changes apply on the next start.
const (
	SettingThreshold    = "threshold"
	SettingSilenceLimit = "silence_limit"
	SettingPreRoll      = "pre_roll"
	SettingLightID      = "light_id"
)

// SettingsDefaults returns the editable settings with their current values.
// Durations are in seconds.
func (c *Config) SettingsDefaults() map[string]any {
	return map[string]any{
		SettingThreshold:    c.Segmenter.Threshold,
		SettingSilenceLimit: c.Segmenter.SilenceLimit.Seconds(),
		SettingPreRoll:      c.Segmenter.PreRoll.Seconds(),
		SettingLightID:      c.Lighting.LightID,
	}
}

// ApplySettings overlays saved settings onto c and revalidates it.
func (c *Config) ApplySettings(values map[string]any) error {
	for key, value := range values {
		f, err := toFloat(value)
		if err != nil {
			return fmt.Errorf("%w: setting %s: %v", ErrInvalid, key, err)
		}

		switch key {
		case SettingThreshold:
			c.Segmenter.Threshold = f
		case SettingSilenceLimit:
			c.Segmenter.SilenceLimit = seconds(f)
		case SettingPreRoll:
			c.Segmenter.PreRoll = seconds(f)
		case SettingLightID:
			c.Lighting.LightID = int(f)
		}
	}

	return c.Validate()
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
