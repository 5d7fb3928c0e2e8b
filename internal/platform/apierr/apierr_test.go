package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOfUnwrapsWrappedErrors(t *testing.T) {
	err := fmt.Errorf("publish: %w", NotFound("Queue item"))
	if got := StatusOf(err); got != http.StatusNotFound {
		t.Fatalf("StatusOf: want=%d got=%d", http.StatusNotFound, got)
	}
	if err.Error() != "publish: Queue item not found" {
		t.Fatalf("message: got=%q", err.Error())
	}
	if got := StatusOf(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("StatusOf(plain): want=500 got=%d", got)
	}
	if !Is(Forbidden("nope"), http.StatusForbidden) {
		t.Fatalf("Is: expected forbidden")
	}
}
