package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// QueryContext describes one keyword run. It is immutable once the run starts;
// ParamsHash is the idempotency/cache key and depends only on the fields that
// change what the upstream service would return.
type QueryContext struct {
	Query      string    `json:"query"`
	Country    string    `json:"country"`
	Language   string    `json:"language"`
	Location   string    `json:"location"`
	Device     string    `json:"device"`
	CapturedAt time.Time `json:"captured_at"`
	RunID      string    `json:"run_id"`
	ParamsHash string    `json:"params_hash"`
}

// Validate rejects contexts that cannot identify a run.
func (q QueryContext) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("%w: empty query", ErrInvalidContext)
	}
	return nil
}

// ComputeParamsHash digests the query-defining fields. Capture time, run id
// and call outcome never participate, so the hash is reproducible from the
// context alone.
func (q QueryContext) ComputeParamsHash() string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		q.Query, q.Country, q.Language, q.Location, q.Device,
	}, "|")))
	return hex.EncodeToString(sum[:])
}

// CallStatus classifies the outcome of one upstream call.
type CallStatus string

const (
	CallOK             CallStatus = "ok"
	CallTransientError CallStatus = "transient_error"
	CallFatalError     CallStatus = "fatal_error"
)

// RawCallResult is one already-fetched upstream response. The engine never
// performs the call itself; it only decides what to do with the payload it is
// handed, including a nil one.
type RawCallResult struct {
	Engine    string          `json:"engine"`
	Status    CallStatus      `json:"status"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// OK reports whether the call succeeded and carried a payload.
func (r RawCallResult) OK() bool {
	return r.Status == CallOK && len(r.Payload) > 0
}
