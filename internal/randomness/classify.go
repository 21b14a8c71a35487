package randomness

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// Category groups submission failures by what the operator can do about them.
type Category string

const (
	CategoryUserRejected       Category = "user_rejected"
	CategoryInsufficientFunds  Category = "insufficient_funds"
	CategoryNonce              Category = "nonce"
	CategoryNetwork            Category = "network"
	CategoryEntrypointNotFound Category = "entrypoint_not_found"
	CategoryEntrypointFailed   Category = "entrypoint_failed"
	CategoryVRF                Category = "vrf"
	CategoryBatchFailed        Category = "batch_failed"
	CategoryUnknown            Category = "unknown"
)

const unknownMessage = "Unknown error while requesting randomness"

var categoryMessages = map[Category]string{
	CategoryUserRejected:       "Transaction cancelled by the user. Please try again.",
	CategoryInsufficientFunds:  "Insufficient funds to cover the transaction fees",
	CategoryNonce:              "Nonce error. Please try again",
	CategoryNetwork:            "Network error. Check your connection and the selected network",
	CategoryEntrypointNotFound: "Contract entrypoint not found. The deployed contract is out of date, redeploy it",
	CategoryEntrypointFailed:   "Contract entrypoint failed. Check the VRF coordinator configured on the contract",
	CategoryVRF:                "VRF service error. Check the VRF provider configuration",
	CategoryBatchFailed:        "Multicall submission failed",
}

// matchers are checked in order; the first hit wins.
var matchers = []struct {
	category Category
	needles  []string
}{
	{CategoryUserRejected, []string{"userrejectedrequesterror", "user rejected", "user abort", "rejected by user"}},
	{CategoryInsufficientFunds, []string{"insufficient"}},
	{CategoryNonce, []string{"nonce"}},
	{CategoryNetwork, []string{"network"}},
	{CategoryEntrypointNotFound, []string{"entrypoint_not_found", "entry_point_not_found", "not found in contract", "entrypoint not found"}},
	{CategoryEntrypointFailed, []string{"entrypoint_failed", "entry_point_failed"}},
	{CategoryVRF, []string{"vrf"}},
	{CategoryBatchFailed, []string{"multicall", "__execute__", "batch"}},
}

// SubmissionError is a classified submission failure carrying the operator facing message.
type SubmissionError struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
	Err      error    `json:"-"`
}

func (e *SubmissionError) Error() string { return e.Message }

func (e *SubmissionError) Unwrap() error { return e.Err }

// Classify maps a submission error onto a Category by inspecting its message.
// Unmatched errors keep their original message.
func Classify(err error) *SubmissionError {
	if err == nil {
		return nil
	}
	var already *SubmissionError
	if errors.As(err, &already) {
		return already
	}

	raw := err.Error()
	haystack := strings.ToLower(raw + " " + detailText(raw))
	for _, m := range matchers {
		for _, needle := range m.needles {
			if strings.Contains(haystack, needle) {
				return &SubmissionError{Category: m.category, Message: categoryMessages[m.category], Err: err}
			}
		}
	}

	msg := raw
	if strings.TrimSpace(msg) == "" {
		msg = unknownMessage
	}
	return &SubmissionError{Category: CategoryUnknown, Message: msg, Err: err}
}

// detailText pulls the nested reasons out of a JSON-RPC error body embedded in msg.
// Node errors carry the useful text in data.revert_error or data.execution_error.
func detailText(msg string) string {
	start := strings.Index(msg, "{")
	if start < 0 {
		return ""
	}
	body := msg[start:]
	if !gjson.Valid(body) {
		return ""
	}

	var parts []string
	for _, path := range []string{"name", "message", "error.message", "data", "error.data", "data.revert_error", "data.execution_error"} {
		v := gjson.Get(body, path)
		if !v.Exists() {
			continue
		}
		if v.Type == gjson.String {
			parts = append(parts, v.String())
		} else {
			parts = append(parts, v.Raw)
		}
	}
	return strings.Join(parts, " ")
}
