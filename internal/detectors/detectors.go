package detectors

// Detector names as recorded on verdicts and in moderation logs.
const (
	DetectorSpam = "anti_spam"
	DetectorNuke = "anti_nuke"
	DetectorRaid = "anti_raid"
)
