package server

import (
	"testing"

	"github.com/crmarques/cement/faults"
)

func TestPagePayloadShapeError(t *testing.T) {
	t.Parallel()

	err := NewPagePayloadShapeError(`search response "results" must be an array`, nil)
	if !IsPagePayloadShapeError(err) {
		t.Fatalf("expected page payload shape error predicate to match")
	}
	if !faults.IsCategory(err, faults.ConnectionError) {
		t.Fatalf("expected page payload shape error to carry connection category")
	}
}
