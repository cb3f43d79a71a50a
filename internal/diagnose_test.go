package internal

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

type fakeDiagnoseClient struct {
	healthErr error
	authErr   error
	searchErr error
}

func (f *fakeDiagnoseClient) Health(ctx context.Context) error    { return f.healthErr }
func (f *fakeDiagnoseClient) AuthProbe(ctx context.Context) error { return f.authErr }
func (f *fakeDiagnoseClient) SearchMemories(ctx context.Context, query string, limit int) (*MemorySearchPage, error) {
	return &MemorySearchPage{}, f.searchErr
}

func diagnoseService(cfgErr error, client DiagnoseClient) *DiagnoseService {
	return NewDiagnoseService(
		func() (*Config, error) {
			if cfgErr != nil {
				return nil, cfgErr
			}
			return &Config{
				APIURL:        DefaultAPIURL,
				AuthToken:     "tok-abcd1234",
				Timeout:       DefaultTimeout,
				HealthTimeout: DefaultHealthTimeout,
			}, nil
		},
		func(*Config) DiagnoseClient { return client },
	)
}

var checkOrder = []string{"config", "health", "auth", "search"}

func assertCheckOrder(t *testing.T, report Report) {
	t.Helper()
	if len(report.Checks) != len(checkOrder) {
		t.Fatalf("got %d checks, want %d", len(report.Checks), len(checkOrder))
	}
	for i, name := range checkOrder {
		if report.Checks[i].Name != name {
			t.Fatalf("check %d is %q, want %q", i, report.Checks[i].Name, name)
		}
	}
}

func TestDiagnoseAllPass(t *testing.T) {
	report := diagnoseService(nil, &fakeDiagnoseClient{}).Run(context.Background())

	assertCheckOrder(t, report)
	for _, c := range report.Checks {
		if c.Status != CheckPass {
			t.Errorf("%s = %s, want pass", c.Name, c.Status)
		}
	}
	if report.Failed() {
		t.Error("Failed() true with all passes")
	}
	if !strings.Contains(report.Checks[0].Detail, "1234") {
		t.Errorf("config detail should show masked token suffix: %q", report.Checks[0].Detail)
	}
	if strings.Contains(report.Checks[0].Detail, "tok-abcd1234") {
		t.Errorf("config detail leaks the token: %q", report.Checks[0].Detail)
	}
}

func TestDiagnoseFailuresDoNotShortCircuit(t *testing.T) {
	client := &fakeDiagnoseClient{
		healthErr: &APIError{Kind: KindAPIConnection, Message: "refused"},
		authErr:   &APIError{Kind: KindAuth, Status: 401, Message: "unauthorized"},
	}
	report := diagnoseService(nil, client).Run(context.Background())

	assertCheckOrder(t, report)
	if report.Checks[1].Status != CheckFail || report.Checks[1].Kind != KindAPIConnection {
		t.Errorf("health check = %+v", report.Checks[1])
	}
	if report.Checks[2].Status != CheckFail || report.Checks[2].Kind != KindAuth {
		t.Errorf("auth check = %+v", report.Checks[2])
	}
	// The search check still ran after two failures.
	if report.Checks[3].Status != CheckPass {
		t.Errorf("search check = %+v", report.Checks[3])
	}
	if !report.Failed() {
		t.Error("Failed() false with failing checks")
	}
}

func TestDiagnoseConfigFailureSkipsRemoteChecks(t *testing.T) {
	cfgErr := fmt.Errorf("%w: NOWLEDGE_MEM_TIMEOUT=%q is not a positive number of seconds", ErrConfig, "abc")
	report := diagnoseService(cfgErr, &fakeDiagnoseClient{}).Run(context.Background())

	assertCheckOrder(t, report)
	if report.Checks[0].Status != CheckFail || report.Checks[0].Kind != KindConfig {
		t.Errorf("config check = %+v", report.Checks[0])
	}
	for _, c := range report.Checks[1:] {
		if c.Status != CheckSkip {
			t.Errorf("%s = %s, want skip", c.Name, c.Status)
		}
	}
	if !report.Failed() {
		t.Error("Failed() false with failed config")
	}
}

func TestDiagnoseAttachesHints(t *testing.T) {
	client := &fakeDiagnoseClient{
		healthErr: &APIError{Kind: KindAPIConnection, Message: "dial tcp: refused"},
	}
	report := diagnoseService(nil, client).Run(context.Background())

	if !strings.Contains(report.Checks[1].Detail, "NOWLEDGE_MEM_API_URL") {
		t.Errorf("connection failure detail lacks remediation hint: %q", report.Checks[1].Detail)
	}
}

func TestMaskToken(t *testing.T) {
	if got := MaskToken(""); got != "(none)" {
		t.Errorf("MaskToken(empty) = %q", got)
	}
	if got := MaskToken("abc"); got != "********" {
		t.Errorf("MaskToken(short) = %q", got)
	}
	if got := MaskToken("secret-token-9876"); got != "********...9876" {
		t.Errorf("MaskToken(long) = %q", got)
	}
}

// Kind classification across the whole taxonomy.
func TestKind(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want ErrorKind
	}{
		{fmt.Errorf("wrap: %w", ErrConfig), KindConfig},
		{fmt.Errorf("wrap: %w", ErrSessionNotFound), KindSessionNotFound},
		{fmt.Errorf("wrap: %w", ErrEmptySession), KindEmptySession},
		{fmt.Errorf("wrap: %w", ErrTranscriptParse), KindTranscriptParse},
		{&APIError{Kind: KindAuth, Status: 401}, KindAuth},
		{fmt.Errorf("outer: %w", &APIError{Kind: KindAPITimeout}), KindAPITimeout},
	} {
		if got := Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestAPIErrorTimeoutMentionsDuration(t *testing.T) {
	err := classifyTransportErr(context.DeadlineExceeded, "POST", "/threads", 30*time.Second)
	if Kind(err) != KindAPITimeout {
		t.Fatalf("Kind = %s", Kind(err))
	}
	if !strings.Contains(err.Error(), "30s") {
		t.Errorf("timeout error lacks duration: %q", err.Error())
	}
}
