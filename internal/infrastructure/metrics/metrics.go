package metrics

import (
	"github.com/biopass-web/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	StageTransitions  *prometheus.CounterVec
	FaceMatches       *prometheus.CounterVec
	OTPVerifications  *prometheus.CounterVec
	StaleCaptures     prometheus.Counter
	FramesReceived    prometheus.Counter
	CredentialFetches *prometheus.CounterVec
}

// New registers the collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StageTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "biopass_stepup_transitions_total",
			Help: "Step-up session stage transitions",
		}, []string{"from", "to"}),
		FaceMatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "biopass_stepup_face_matches_total",
			Help: "Remote face match outcomes",
		}, []string{"result"}),
		OTPVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "biopass_stepup_otp_verifications_total",
			Help: "Remote OTP verification outcomes",
		}, []string{"result"}),
		StaleCaptures: f.NewCounter(prometheus.CounterOpts{
			Name: "biopass_stepup_stale_captures_total",
			Help: "Capture results discarded because their attempt was no longer current",
		}),
		FramesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "biopass_capture_frames_received_total",
			Help: "Camera frames pushed by browsers",
		}),
		CredentialFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "biopass_vault_fetches_total",
			Help: "Credential list fetch attempts by outcome",
		}, []string{"result"}),
	}
}

func (m *Metrics) Transition(from, to domain.Stage) {
	m.StageTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *Metrics) FaceMatch(ok bool) {
	m.FaceMatches.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) OTPVerification(ok bool) {
	m.OTPVerifications.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) StaleCapture() {
	m.StaleCaptures.Inc()
}

func (m *Metrics) IncrementFramesReceived() {
	m.FramesReceived.Inc()
}

// ObserveFetch records a credential list fetch: "ok", "locked" or "error".
func (m *Metrics) ObserveFetch(outcome string) {
	m.CredentialFetches.WithLabelValues(outcome).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
