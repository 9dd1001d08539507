package entities

import "time"

// VoiceFeatureVector is the biometric summary of one captured utterance.
// It is immutable once captured and used only for comparison; raw audio
// is never retained.
type VoiceFeatureVector struct {
	Pitch            float64     `json:"pitch" bson:"pitch"`
	Formants         [3]float64  `json:"formants" bson:"formants"`
	SpectralCentroid float64     `json:"spectral_centroid" bson:"spectral_centroid"`
	Cepstral         [13]float64 `json:"cepstral" bson:"cepstral"`
	Duration         float64     `json:"duration" bson:"duration"`
	Energy           float64     `json:"energy" bson:"energy"`
}

// VoiceProfile is a user's enrolled biometric reference. Fingerprint is a
// content fingerprint for deduplication, not an authentication secret.
type VoiceProfile struct {
	UserID      string             `json:"user_id" bson:"user_id"`
	Fingerprint string             `json:"fingerprint" bson:"fingerprint"`
	Reference   VoiceFeatureVector `json:"reference" bson:"reference"`
	Passphrases []string           `json:"passphrases" bson:"passphrases"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}
