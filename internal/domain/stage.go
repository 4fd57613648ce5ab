package domain

// Stage is the current step of a step-up verification session.
type Stage int

const (
	StageIdle Stage = iota
	StageCapturingFace
	StageFaceCaptured
	StageVerifyingFace
	StageFaceVerified
	StageFaceFailed
	StageOtpSent
	StageVerifyingOtp
	StageUnlocked
)

var stageNames = [...]string{
	StageIdle:          "idle",
	StageCapturingFace: "capturing_face",
	StageFaceCaptured:  "face_captured",
	StageVerifyingFace: "verifying_face",
	StageFaceVerified:  "face_verified",
	StageFaceFailed:    "face_failed",
	StageOtpSent:       "otp_sent",
	StageVerifyingOtp:  "verifying_otp",
	StageUnlocked:      "unlocked",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// MarshalText renders the stage by name in JSON payloads.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
