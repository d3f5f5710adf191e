package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestHTMXResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	SuccessResponse("Added <Gym>").
		Status(http.StatusCreated).
		TriggerLedgerChanged(7).
		Header("X-Test", "1").
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Added &lt;Gym&gt;") {
		t.Errorf("body not escaped: %s", rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != "text/html; charset=utf-8" || rr.Header().Get("X-Test") != "1" {
		t.Errorf("headers = %v", rr.Header())
	}

	var triggers map[string]map[string]any
	if err := json.Unmarshal([]byte(rr.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("decode HX-Trigger: %v", err)
	}
	if triggers[TriggerLedgerChanged]["revision"] != float64(7) {
		t.Errorf("ledger trigger = %v", triggers[TriggerLedgerChanged])
	}
	if triggers[TriggerShowNotification]["type"] != "success" {
		t.Errorf("notification = %v", triggers[TriggerShowNotification])
	}
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"validation", &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}, http.StatusUnprocessableEntity, "Invalid amount"},
		{"wrapped validation", fmt.Errorf("add: %w", &core.ValidationError{Field: "category", Err: core.ErrCategoryInUse}), http.StatusUnprocessableEntity, "Category is used"},
		{"not found", &core.NotFoundError{Resource: "entry", Key: "x"}, http.StatusNotFound, "entry &#34;x&#34; not found"},
		{"storage", errors.New("persist ledger: disk full"), http.StatusInternalServerError, "Could not save changes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			ErrorFor(tt.err).Write(rr)
			if rr.Code != tt.code {
				t.Fatalf("status = %d, want %d", rr.Code, tt.code)
			}
			if !strings.Contains(rr.Body.String(), tt.body) {
				t.Errorf("body = %s, want %q", rr.Body.String(), tt.body)
			}
			if !strings.Contains(rr.Header().Get("HX-Trigger"), `"error"`) {
				t.Errorf("error notification missing: %s", rr.Header().Get("HX-Trigger"))
			}
		})
	}
}
