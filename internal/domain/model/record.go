package model

import "time"

// Status is the verdict state of a ValidationRecord.
type Status int

// Record states. A record starts Rejected (with or without a reason) or
// Pending; only Pending records can become Verified.
const (
	StatusRejected Status = iota
	StatusPending
	StatusVerified
)

func (s Status) String() string {
	switch s {
	case StatusRejected:
		return "rejected"
	case StatusPending:
		return "pending"
	case StatusVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// Components are the normalized score parts of a miner.
type Components struct {
	SpeedScore   float64 `json:"speedScore"`
	VolumeScore  float64 `json:"volumeScore"`
	RecencyScore float64 `json:"recencyScore"`
}

// ValidationRecord carries one miner's verdict through the pipeline.
// Transitions return a new value; a record is never patched in place.
type ValidationRecord struct {
	MinerUID        MinerUID
	Status          Status
	ValidationError string
	Count           int
	MostRecentDate  *time.Time
	Data            []Review // spot-check sample
	ResponseTime    *float64
	Components      Components
}

// NewRecord returns the defaulted record every miner starts from.
func NewRecord(uid MinerUID) ValidationRecord {
	return ValidationRecord{
		MinerUID: uid,
		Status:   StatusRejected,
		Data:     []Review{},
	}
}

// Rejected builds a record rejected for reason.
func Rejected(uid MinerUID, reason string) ValidationRecord {
	r := NewRecord(uid)
	r.ValidationError = reason
	return r
}

// Pending builds a structurally valid record awaiting verification of sample.
func Pending(uid MinerUID, count int, mostRecent *time.Time, sample []Review) ValidationRecord {
	r := NewRecord(uid)
	r.Status = StatusPending
	r.Count = count
	r.MostRecentDate = mostRecent
	if sample != nil {
		r.Data = sample
	}
	return r
}

// PassedValidation reports whether the record is still eligible for a score.
func (r ValidationRecord) PassedValidation() bool {
	return r.Status != StatusRejected
}

// NeedsSpotCheck reports whether the record has a sample awaiting verification.
func (r ValidationRecord) NeedsSpotCheck() bool {
	return r.Status == StatusPending && len(r.Data) > 0
}

// Verify marks the sample as matching ground truth.
func (r ValidationRecord) Verify() ValidationRecord {
	if r.Status == StatusPending {
		r.Status = StatusVerified
	}
	return r
}

// FailVerification rejects the record after a sample mismatch; its volume and recency are void.
func (r ValidationRecord) FailVerification(reason string) ValidationRecord {
	r.Status = StatusRejected
	r.ValidationError = reason
	r.Count = 0
	r.MostRecentDate = nil
	return r
}

// AbortBatch rejects the record because its sample could not be verified at all.
func (r ValidationRecord) AbortBatch(reason string) ValidationRecord {
	r.Status = StatusRejected
	r.ValidationError = reason
	return r
}

// WithResponseTime returns r with its response time set.
func (r ValidationRecord) WithResponseTime(seconds float64) ValidationRecord {
	r.ResponseTime = &seconds
	return r
}

// SpotCheck groups the sampled reviews of one miner for the batched verification call.
type SpotCheck struct {
	MinerUID MinerUID
	Reviews  []Review
}
