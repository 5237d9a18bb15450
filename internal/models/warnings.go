package models

import "fmt"

// ParsingWarning is one structured diagnostic. Warnings are append-only and
// never block extraction; a run degrades to null fields plus warnings instead
// of failing.
type ParsingWarning struct {
	Module        string   `json:"module"`
	Field         string   `json:"field,omitempty"`
	CandidateKeys []string `json:"candidate_keys,omitempty"`
	RawPath       string   `json:"raw_path,omitempty"`
	Message       string   `json:"message"`
}

// SchemaWarning reports a field missing under every candidate key.
func SchemaWarning(module, field string, keys []string, rawPath string) ParsingWarning {
	return ParsingWarning{
		Module:        module,
		Field:         field,
		CandidateKeys: keys,
		RawPath:       rawPath,
		Message:       fmt.Sprintf("%s not found under any candidate key", field),
	}
}

// CallWarning reports an upstream call that failed or was skipped; the
// affected module kinds stay absent.
func CallWarning(module string, status CallStatus) ParsingWarning {
	return ParsingWarning{
		Module:  module,
		Message: fmt.Sprintf("call failed: %s", status),
	}
}

// MalformedPayloadWarning reports a call whose payload is not a traversable
// JSON structure; the affected module kinds stay absent.
func MalformedPayloadWarning(module string) ParsingWarning {
	return ParsingWarning{
		Module:  module,
		Message: "payload is not a traversable JSON structure",
	}
}

// IncompleteSourceWarning reports a needed secondary source that was not
// available; the module is kept partial.
func IncompleteSourceWarning(module, detail string) ParsingWarning {
	return ParsingWarning{
		Module:  module,
		Message: fmt.Sprintf("secondary source unavailable: %s", detail),
	}
}

// OrderInferenceWarning reports that module order was inferred from the
// fallback precedence instead of an explicit payload signal. At most one per
// run.
func OrderInferenceWarning() ParsingWarning {
	return ParsingWarning{
		Module:  "modules",
		Message: "no explicit order signal in payload; order inferred from fallback precedence",
	}
}

// RankCollisionWarning reports an item whose position was already taken by an
// earlier item of the same module; the item keeps list order instead, bumped
// past taken ranks.
func RankCollisionWarning(module, rawPath string, wanted, assigned int) ParsingWarning {
	return ParsingWarning{
		Module:  module,
		Field:   "position",
		RawPath: rawPath,
		Message: fmt.Sprintf("position %d already assigned; using %d", wanted, assigned),
	}
}

// DiscrepancyWarning reports an explicit position field that disagrees with
// the payload list order.
func DiscrepancyWarning(module, rawPath string, listRank, explicit int) ParsingWarning {
	return ParsingWarning{
		Module:  module,
		Field:   "position",
		RawPath: rawPath,
		Message: fmt.Sprintf("explicit position %d disagrees with list order %d; using explicit", explicit, listRank),
	}
}
