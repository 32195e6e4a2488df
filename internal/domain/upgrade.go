package domain

import (
	"github.com/blang/semver/v4"
)

// CurrentSchemaVersion is stamped on every poll written by this build
var CurrentSchemaVersion = semver.MustParse("1.2.0")

// documents without a stamp predate versioning
var baseSchemaVersion = semver.MustParse("1.0.0")

type upgradeStep struct {
	version semver.Version
	apply   func(p *Poll)
}

var upgradeSteps = []upgradeStep{
	{version: semver.MustParse("1.1.0"), apply: promoteLegacyIsActive},
	{version: semver.MustParse("1.2.0"), apply: backfillLiveFields},
}

// SchemaVersionOf parses the stored stamp, falling back to 1.0.0
func SchemaVersionOf(p *Poll) semver.Version {
	if p.SchemaVersion == "" {
		return baseSchemaVersion
	}
	v, err := semver.Parse(p.SchemaVersion)
	if err != nil {
		return baseSchemaVersion
	}
	return v
}

// Upgrade brings an old document up to CurrentSchemaVersion in place and
// returns the versions of the steps it applied. Running it on an upgraded
// poll is a no-op.
func Upgrade(p *Poll) []string {
	current := SchemaVersionOf(p)
	var applied []string
	for _, step := range upgradeSteps {
		if current.LT(step.version) {
			step.apply(p)
			applied = append(applied, step.version.String())
		}
	}
	if current.LT(CurrentSchemaVersion) {
		p.SchemaVersion = CurrentSchemaVersion.String()
	}
	return applied
}

// 1.1.0: isActive moved from settings to the document root
func promoteLegacyIsActive(p *Poll) {
	if p.Settings.LegacyIsActive != nil {
		p.IsActive = *p.Settings.LegacyIsActive
		p.Settings.LegacyIsActive = nil
	}
}

// 1.2.0: live-control fields and the activation override were added
func backfillLiveFields(p *Poll) {
	if p.ManualOverride == "" {
		p.ManualOverride = OverrideNeverSet
	}
	if p.ViewMode == "" {
		p.ViewMode = ViewSingle
	}
	if p.CurrentQuestionIndex < 0 || p.CurrentQuestionIndex >= len(p.Questions) {
		p.CurrentQuestionIndex = 0
	}
	if !p.AdminJoined {
		p.AdminSessionID = nil
	} else if p.AdminSessionID == nil {
		p.AdminJoined = false
	}
	if p.Participants == nil {
		p.Participants = []Participant{}
	}
	if p.Responses == nil {
		p.Responses = []Response{}
	}
}
