package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/syntrixbase/marketsearch/pkg/model"
)

var (
	// ErrUnknownKind is returned when an envelope names a kind this build does not know.
	ErrUnknownKind = errors.New("unknown job kind")
	// ErrInvalidPayload is returned when an envelope or its payload cannot be decoded or fails validation.
	ErrInvalidPayload = errors.New("invalid job payload")
)

var validate = validator.New()

// Envelope is the wire format of a job.
type Envelope struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Key       string          `json:"key,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	Payload   json.RawMessage `json:"payload"`
}

// MsgID is the broker deduplication id: the idempotency key when set, the envelope id otherwise.
func (e *Envelope) MsgID() string {
	if e.Key != "" {
		return e.Key
	}
	return e.ID
}

// Encode validates job and wraps it in a new envelope. key is an optional
// idempotency key chosen by the producer.
func Encode(job Job, key string) ([]byte, *Envelope, error) {
	if err := validate.Struct(job); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, job.Kind(), err)
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal %s payload: %w", job.Kind(), err)
	}
	env := &Envelope{
		ID:        uuid.NewString(),
		Kind:      job.Kind(),
		Key:       key,
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, env, nil
}

// Decode parses an envelope and its payload. It returns ErrUnknownKind or
// ErrInvalidPayload for messages that can never succeed.
func Decode(data []byte) (Job, *Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	job, err := newJob(env.Kind)
	if err != nil {
		return nil, &env, err
	}
	if err := json.Unmarshal(env.Payload, job); err != nil {
		return nil, &env, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Kind, err)
	}
	if v, ok := job.(*VisitRecorded); ok {
		v.Scope = model.Family(strings.ToLower(string(v.Scope)))
	}
	if err := validate.Struct(job); err != nil {
		return nil, &env, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Kind, err)
	}
	return deref(job), &env, nil
}

func newJob(kind Kind) (any, error) {
	switch kind {
	case KindReindexBusiness:
		return &ReindexBusiness{}, nil
	case KindReindexCatalog:
		return &ReindexCatalog{}, nil
	case KindReindexProduct:
		return &ReindexProduct{}, nil
	case KindVisitRecorded:
		return &VisitRecorded{}, nil
	case KindFollowChanged:
		return &FollowChanged{}, nil
	case KindLikeChanged:
		return &LikeChanged{}, nil
	case KindRatingRecomputed:
		return &RatingRecomputed{}, nil
	case KindRatingRecalculate:
		return &RatingRecalculate{}, nil
	case KindProductsCountChanged:
		return &ProductsCountChanged{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func deref(v any) Job {
	switch j := v.(type) {
	case *ReindexBusiness:
		return *j
	case *ReindexCatalog:
		return *j
	case *ReindexProduct:
		return *j
	case *VisitRecorded:
		return *j
	case *FollowChanged:
		return *j
	case *LikeChanged:
		return *j
	case *RatingRecomputed:
		return *j
	case *RatingRecalculate:
		return *j
	case *ProductsCountChanged:
		return *j
	}
	return nil
}

// IsPermanent reports whether a decode error can never succeed on redelivery.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrUnknownKind) || errors.Is(err, ErrInvalidPayload)
}
