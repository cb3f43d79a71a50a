package internal

import (
	"context"
	"errors"
	"fmt"
)

type CheckStatus string

const (
	CheckPass CheckStatus = "pass"
	CheckFail CheckStatus = "fail"
	CheckSkip CheckStatus = "skip"
)

// Check is one entry of a diagnose report.
type Check struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
	Kind   ErrorKind   `json:"kind,omitempty"`
}

// Report lists every check in the fixed order config, health, auth,
// search, regardless of how many failed.
type Report struct {
	Checks []Check `json:"checks"`
}

func (r Report) Failed() bool {
	for _, c := range r.Checks {
		if c.Status == CheckFail {
			return true
		}
	}
	return false
}

// DiagnoseClient is the slice of the API the health checks exercise.
type DiagnoseClient interface {
	Health(ctx context.Context) error
	AuthProbe(ctx context.Context) error
	SearchMemories(ctx context.Context, query string, limit int) (*MemorySearchPage, error)
}

// DiagnoseService sequences the independent health checks. A failing
// check never suppresses the ones after it.
type DiagnoseService struct {
	loadConfig func() (*Config, error)
	clientFor  func(*Config) DiagnoseClient
}

func NewDiagnoseService(loadConfig func() (*Config, error), clientFor func(*Config) DiagnoseClient) *DiagnoseService {
	return &DiagnoseService{loadConfig: loadConfig, clientFor: clientFor}
}

// Run executes all four checks and always returns four entries.
func (s *DiagnoseService) Run(ctx context.Context) Report {
	var report Report

	cfg, err := s.loadConfig()
	if err != nil {
		report.Checks = append(report.Checks, Check{
			Name: "config", Status: CheckFail, Detail: err.Error(), Kind: Kind(err),
		})
		// Without usable config the remote checks cannot run, but each
		// still gets its report entry.
		for _, name := range []string{"health", "auth", "search"} {
			report.Checks = append(report.Checks, Check{
				Name: name, Status: CheckSkip, Detail: "configuration invalid",
			})
		}
		return report
	}

	report.Checks = append(report.Checks, Check{
		Name:   "config",
		Status: CheckPass,
		Detail: fmt.Sprintf("API %s, token %s", cfg.APIURL, MaskToken(cfg.AuthToken)),
	})

	client := s.clientFor(cfg)

	report.Checks = append(report.Checks, checkOf("health", client.Health(ctx)))
	report.Checks = append(report.Checks, checkOf("auth", client.AuthProbe(ctx)))

	_, err = client.SearchMemories(ctx, "test", 1)
	report.Checks = append(report.Checks, checkOf("search", err))

	return report
}

func checkOf(name string, err error) Check {
	if err == nil {
		return Check{Name: name, Status: CheckPass}
	}

	detail := err.Error()
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if hint := apiErr.Hint(); hint != "" {
			detail += " - " + hint
		}
	}
	return Check{Name: name, Status: CheckFail, Detail: detail, Kind: Kind(err)}
}
