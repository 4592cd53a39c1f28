package main

import (
	"flag"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/factura/internal/api"
	"github.com/vladislavdragonenkov/factura/internal/service/invoice"
	"github.com/vladislavdragonenkov/factura/internal/service/order"
	"github.com/vladislavdragonenkov/factura/internal/storage/memory"
)

func withCLIArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"loadtest"}, args...)
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

func TestParseConfig_Defaults(t *testing.T) {
	withCLIArgs(t, nil, func() {
		cfg, err := parseConfig()
		if err != nil {
			t.Fatalf("parse config: %v", err)
		}
		if cfg.baseURL != "http://localhost:8080" {
			t.Errorf("unexpected base url: %s", cfg.baseURL)
		}
		if cfg.total != 400 || cfg.totalSet {
			t.Errorf("unexpected total: %d (set=%v)", cfg.total, cfg.totalSet)
		}
		if cfg.mode != modeCreate {
			t.Errorf("unexpected mode: %s", cfg.mode)
		}
	})
}

func TestParseConfig_TrimsTrailingSlash(t *testing.T) {
	withCLIArgs(t, []string{"-url=http://localhost:8080/"}, func() {
		cfg, err := parseConfig()
		if err != nil {
			t.Fatalf("parse config: %v", err)
		}
		if cfg.baseURL != "http://localhost:8080" {
			t.Errorf("trailing slash not trimmed: %s", cfg.baseURL)
		}
	})
}

func TestParseConfig_Invalid(t *testing.T) {
	cases := [][]string{
		{"-total=0"},
		{"-concurrency=0"},
		{"-timeout=0s"},
		{"-mode=unknown"},
		{"-delete-rate=101"},
		{"-amount=0"},
		{"-actor-tag= "},
	}

	for _, args := range cases {
		withCLIArgs(t, args, func() {
			if _, err := parseConfig(); err == nil {
				t.Errorf("expected error for args %v", args)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for _, value := range []string{"create", "create-pay", "create-pay-delete"} {
		if _, err := parseMode(value); err != nil {
			t.Errorf("mode %s rejected: %v", value, err)
		}
	}
	if _, err := parseMode("create-cancel"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestShouldDeleteScenario(t *testing.T) {
	if shouldDeleteScenario(5, 0) {
		t.Error("rate 0 must never delete")
	}
	if !shouldDeleteScenario(5, 100) {
		t.Error("rate 100 must always delete")
	}
	deleted := 0
	for i := 0; i < 100; i++ {
		if shouldDeleteScenario(i, 25) {
			deleted++
		}
	}
	if deleted != 25 {
		t.Errorf("expected 25 deletions per 100 scenarios, got %d", deleted)
	}
}

func TestDispatchJobs_CountMode(t *testing.T) {
	jobs := make(chan int, 16)
	dispatchJobs(jobs, config{total: 7})

	count := 0
	for range jobs {
		count++
	}
	if count != 7 {
		t.Errorf("expected 7 jobs, got %d", count)
	}
}

func TestDispatchJobs_DurationModeRespectsTotalCap(t *testing.T) {
	jobs := make(chan int, 16)
	dispatchJobs(jobs, config{duration: time.Minute, total: 5, totalSet: true})

	count := 0
	for range jobs {
		count++
	}
	if count != 5 {
		t.Errorf("expected 5 jobs, got %d", count)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	if got := percentile(sorted, 50); got != 5.5 {
		t.Errorf("p50: expected 5.5, got %v", got)
	}
	if got := percentile(sorted, 100); got != 10 {
		t.Errorf("p100: expected 10, got %v", got)
	}
	if got := percentile([]float64{42}, 99); got != 42 {
		t.Errorf("single value: expected 42, got %v", got)
	}
	if got := percentile(nil, 95); got != 0 {
		t.Errorf("empty: expected 0, got %v", got)
	}
}

func TestBuildLatencySummary(t *testing.T) {
	summary := buildLatencySummary([]float64{3, 1, 2})
	if summary.Min != 1 || summary.Max != 3 {
		t.Errorf("unexpected min/max: %+v", summary)
	}
	if summary.Avg != 2 {
		t.Errorf("unexpected avg: %v", summary.Avg)
	}

	if empty := buildLatencySummary(nil); empty != (latencySummary{}) {
		t.Errorf("expected zero summary, got %+v", empty)
	}
}

func TestCollector_BuildReport(t *testing.T) {
	col := newCollector()
	col.record("scenario", 10*time.Millisecond, "ok", true)
	col.record("scenario", 20*time.Millisecond, "failed", false)
	col.record("CreateOrder", 5*time.Millisecond, "201", true)
	col.record("CreateOrder", 6*time.Millisecond, "500", false)

	result := col.buildReport(time.Now(), time.Second)

	if result.TotalScenarios != 2 || result.SuccessScenarios != 1 || result.FailedScenarios != 1 {
		t.Fatalf("unexpected scenario counts: %+v", result)
	}
	if result.ErrorRate != 0.5 {
		t.Errorf("unexpected error rate: %v", result.ErrorRate)
	}
	if result.RPS != 2 {
		t.Errorf("unexpected rps: %v", result.RPS)
	}

	create, ok := result.Methods["CreateOrder"]
	if !ok {
		t.Fatal("CreateOrder stats missing")
	}
	if create.Statuses["201"] != 1 || create.Statuses["500"] != 1 {
		t.Errorf("unexpected statuses: %v", create.Statuses)
	}
}

func TestWriteJSONReport_PathValidation(t *testing.T) {
	if err := writeJSONReport(".", report{}); err == nil {
		t.Error("expected error for dot path")
	}
	if err := writeJSONReport("../escape.json", report{}); err == nil {
		t.Error("expected error for parent path")
	}

	path := filepath.Join(t.TempDir(), "report.json")
	if err := writeJSONReport(path, report{TotalScenarios: 1}); err != nil {
		t.Fatalf("write report: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report file not created: %v", err)
	}
}

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()

	logger := log.New()
	logger.SetLevel(log.WarnLevel)
	entry := log.NewEntry(logger)

	repo := memory.NewOrderRepository()
	svc := order.NewService(repo, invoice.NewGenerator(repo, entry), nil, nil, entry)

	e := echo.New()
	api.NewOrderHandler(svc, entry).Register(e)

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return server
}

// Полный сценарий против живого API: create, pay, delete.
func TestRunScenario_EndToEnd(t *testing.T) {
	server := newTestAPI(t)

	cfg := config{
		baseURL:     server.URL,
		concurrency: 1,
		timeout:     5 * time.Second,
		mode:        modeCreatePayDelete,
		amount:      10,
		actorTag:    "test",
	}

	col := newCollector()
	if err := runScenario(server.Client(), cfg, 0, "run", col); err != nil {
		t.Fatalf("scenario failed: %v", err)
	}

	result := col.buildReport(time.Now(), time.Second)
	for _, method := range []string{"CreateOrder", "UpdatePayment", "DeleteOrder", "scenario"} {
		stats, ok := result.Methods[method]
		if !ok {
			t.Fatalf("missing stats for %s", method)
		}
		if stats.Failed != 0 {
			t.Errorf("%s failed %d times: %v", method, stats.Failed, stats.Statuses)
		}
	}
}
