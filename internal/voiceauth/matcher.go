// Package voiceauth compares voice-biometric feature vectors and
// enforces the failed-attempt lockout policy.
package voiceauth

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voiceflowhq/collab/domain/entities"
)

// DefaultThreshold is the confidence a sample must reach to be accepted.
const DefaultThreshold = 0.85

// maxFailedAttempts locks a user out of biometric login until an
// explicit reset after a non-biometric login.
const maxFailedAttempts = 3

// enrollmentSamples is the exact number of samples enrollment requires.
const enrollmentSamples = 3

var (
	// ErrRejected means the sample did not reach the confidence threshold.
	ErrRejected = errors.New("voice sample rejected")
	// ErrLockedOut means too many consecutive rejections; the user must
	// log in through a non-biometric path before trying again.
	ErrLockedOut = errors.New("too many failed attempts, use alternate login")
	// ErrInsufficientSamples means enrollment did not get exactly three
	// samples and passphrases.
	ErrInsufficientSamples = errors.New("enrollment requires exactly 3 samples and 3 passphrases")
)

// Compare scores the similarity of two feature vectors into [0, 1].
// The score is a weighted sum of pitch (0.3), formant (0.4), and
// cepstral (0.3) similarity; it is symmetric in its arguments.
func Compare(sample, reference entities.VoiceFeatureVector) float64 {
	pitchSimilarity := math.Max(0, 1-math.Abs(sample.Pitch-reference.Pitch)/100)

	var formantSum float64
	for i := range sample.Formants {
		formantSum += math.Max(0, 1-math.Abs(sample.Formants[i]-reference.Formants[i])/1000)
	}
	formantSimilarity := formantSum / float64(len(sample.Formants))

	var cepstralSum float64
	for i := range sample.Cepstral {
		cepstralSum += math.Max(0, 1-math.Abs(sample.Cepstral[i]-reference.Cepstral[i])/2)
	}
	cepstralSimilarity := cepstralSum / float64(len(sample.Cepstral))

	confidence := pitchSimilarity*0.3 + formantSimilarity*0.4 + cepstralSimilarity*0.3
	return math.Max(0, math.Min(1, confidence))
}

// Matcher authenticates samples against stored references and tracks
// per-user failed-attempt counters. Counters are the only shared mutable
// state here and follow a single-writer-per-user discipline behind one
// mutex.
type Matcher struct {
	mu        sync.Mutex
	attempts  map[string]int
	threshold float64
	logger    *zap.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold overrides the default acceptance threshold.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.threshold = threshold
	}
}

// NewMatcher creates a matcher with zeroed attempt counters.
func NewMatcher(logger *zap.Logger, opts ...Option) *Matcher {
	m := &Matcher{
		attempts:  make(map[string]int),
		threshold: DefaultThreshold,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Authenticate compares a sample against the stored reference. A nil
// return means accept and resets the failed-attempt counter. Once the
// counter reaches the lockout ceiling, no comparison is attempted until
// ResetAttempts. The context is accepted so network-backed lockout
// stores can hang off this call.
func (m *Matcher) Authenticate(ctx context.Context, userID string, sample, reference entities.VoiceFeatureVector) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.attempts[userID] >= maxFailedAttempts {
		m.logger.Warn("Voice authentication refused, user locked out",
			zap.String("userID", userID),
			zap.Int("failedAttempts", m.attempts[userID]))
		return ErrLockedOut
	}

	confidence := Compare(sample, reference)
	if confidence < m.threshold {
		m.attempts[userID]++
		m.logger.Info("Voice sample rejected",
			zap.String("userID", userID),
			zap.Float64("confidence", confidence),
			zap.Int("failedAttempts", m.attempts[userID]))
		return ErrRejected
	}

	m.attempts[userID] = 0
	return nil
}

// ResetAttempts clears the failed-attempt counter. Issued only after a
// successful non-biometric login.
func (m *Matcher) ResetAttempts(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attempts, userID)
}

// FailedAttempts reports the current counter for a user.
func (m *Matcher) FailedAttempts(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[userID]
}

// Enroll builds a voice profile from exactly three samples and three
// passphrases. The reference vector is the element-wise mean of the
// samples; the fingerprint is a non-cryptographic content hash used for
// deduplication only.
func Enroll(userID string, samples []entities.VoiceFeatureVector, passphrases []string) (*entities.VoiceProfile, error) {
	if len(samples) != enrollmentSamples || len(passphrases) != enrollmentSamples {
		return nil, ErrInsufficientSamples
	}

	var reference entities.VoiceFeatureVector
	for _, s := range samples {
		reference.Pitch += s.Pitch
		reference.SpectralCentroid += s.SpectralCentroid
		reference.Duration += s.Duration
		reference.Energy += s.Energy
		for i := range s.Formants {
			reference.Formants[i] += s.Formants[i]
		}
		for i := range s.Cepstral {
			reference.Cepstral[i] += s.Cepstral[i]
		}
	}
	n := float64(enrollmentSamples)
	reference.Pitch /= n
	reference.SpectralCentroid /= n
	reference.Duration /= n
	reference.Energy /= n
	for i := range reference.Formants {
		reference.Formants[i] /= n
	}
	for i := range reference.Cepstral {
		reference.Cepstral[i] /= n
	}

	return &entities.VoiceProfile{
		UserID:      userID,
		Fingerprint: Fingerprint(samples),
		Reference:   reference,
		Passphrases: append([]string(nil), passphrases...),
		CreatedAt:   time.Now(),
	}, nil
}

// Fingerprint hashes the rounded pitch, formants, and spectral centroid
// of each sample into a stable hex tag. Collisions are acceptable; this
// identifies content, it does not authenticate anyone.
func Fingerprint(samples []entities.VoiceFeatureVector) string {
	h := fnv.New32a()
	for i, s := range samples {
		if i > 0 {
			fmt.Fprint(h, "|")
		}
		fmt.Fprintf(h, "%.2f-%.2f,%.2f,%.2f-%.2f",
			s.Pitch, s.Formants[0], s.Formants[1], s.Formants[2], s.SpectralCentroid)
	}
	return fmt.Sprintf("%x", h.Sum32())
}
