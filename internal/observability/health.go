package observability

import (
	"context"
	"encoding/json"
	"net/http"
)

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"
)

// ReadyCheck is one named readiness check. Check returns nil when ready.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthReport is the body of /healthz and /readyz. Checks maps each check
// name to "ok" or its failure; Reason repeats the first failure.
type HealthReport struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Reason  string            `json:"reason,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// HealthHandler answers liveness requests. It always returns HTTP 200 and
// reports version when set.
func HealthHandler(version string) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeHealth(rw, http.StatusOK, HealthReport{Status: healthStatusOK, Version: version})
	})
}

// ReadyHandler answers readiness requests. Every check runs; any failure
// answers HTTP 503.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		report := HealthReport{Status: healthStatusOK}
		code := http.StatusOK

		for _, c := range checks {
			if report.Checks == nil {
				report.Checks = make(map[string]string, len(checks))
			}

			err := c.Check(hr.Context())
			if err == nil {
				report.Checks[c.Name] = healthStatusOK

				continue
			}

			report.Checks[c.Name] = err.Error()

			if code == http.StatusOK {
				code = http.StatusServiceUnavailable
				report.Status = healthStatusUnavailable
				report.Reason = c.Name + ": " + err.Error()
			}
		}

		writeHealth(rw, code, report)
	})
}

func writeHealth(rw http.ResponseWriter, code int, report HealthReport) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	_ = json.NewEncoder(rw).Encode(report)
}
