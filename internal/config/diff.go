package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider and
// audio format changes require a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// KeywordsChanged covers the keyword lists and the fuzzy settings.
	KeywordsChanged bool

	// ContactsChanged covers the primary and secondary contact numbers.
	ContactsChanged bool

	// DispatchChanged covers the debounce window and the distress message.
	DispatchChanged bool

	// CountdownChanged covers the duration and the cancellation secret.
	CountdownChanged bool

	// DetectionChanged covers the scoring thresholds. The strategy itself
	// is not hot-reloadable.
	DetectionChanged bool
}

// Any reports whether the diff contains at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.KeywordsChanged || d.ContactsChanged ||
		d.DispatchChanged || d.CountdownChanged || d.DetectionChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Keywords.Critical, new.Keywords.Critical) ||
		!slices.Equal(old.Keywords.Alert, new.Keywords.Alert) ||
		old.Keywords.Fuzzy != new.Keywords.Fuzzy ||
		old.Keywords.FuzzyThreshold != new.Keywords.FuzzyThreshold {
		d.KeywordsChanged = true
	}

	if old.Contacts.Primary != new.Contacts.Primary ||
		!slices.Equal(old.Contacts.Secondary, new.Contacts.Secondary) {
		d.ContactsChanged = true
	}

	if old.Dispatch != new.Dispatch {
		d.DispatchChanged = true
	}

	if old.Countdown != new.Countdown {
		d.CountdownChanged = true
	}

	det, newDet := old.Detection, new.Detection
	if det.DangerPitchHz != newDet.DangerPitchHz ||
		det.HighEnergyRMS != newDet.HighEnergyRMS ||
		det.InferenceInterval != newDet.InferenceInterval ||
		det.DangerProbability != newDet.DangerProbability {
		d.DetectionChanged = true
	}

	return d
}
