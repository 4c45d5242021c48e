// README: Smoke cases: environment checks plus the full request/offer/accept/end flow.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// Flow state threaded through the cases in order.
	riderID  string
	driverID string
	tripID   string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		riderID: fmt.Sprintf("smoke-rider-%d", time.Now().UnixNano()),
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	cases := r.cases()
	results := make([]Result, 0, len(cases))
	for _, tc := range cases {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: "FAIL", Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
					if !exists {
						return Result{Status: "FAIL", Note: "missing table: " + t}
					}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "API: health",
			Run: func(ctx context.Context, r *Runner) Result {
				status, _, latency, err := r.do(ctx, http.MethodGet, base+"/health", nil)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusOK {
					return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", status)}
				}
				return Result{Status: "PASS", Latency: latency}
			},
		},
		{
			Name: "Details: first available driver",
			Run: func(ctx context.Context, r *Runner) Result {
				status, body, latency, err := r.do(ctx, http.MethodGet, base+"/api/details/driver", nil)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusOK {
					return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", status)}
				}
				r.driverID, _ = body["id"].(string)
				if r.driverID == "" {
					return Result{Status: "FAIL", Note: "no driver id in response"}
				}
				return Result{Status: "PASS", Latency: latency, Note: "driver=" + r.driverID}
			},
		},
		{
			Name: "Trip: create (valid)",
			Run: func(ctx context.Context, r *Runner) Result {
				status, body, latency, err := r.do(ctx, http.MethodPost, base+"/api/trips", map[string]any{
					"riderId":     r.riderID,
					"source":      "Connaught Place",
					"destination": "Hauz Khas",
					"distance":    5,
				})
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusCreated {
					return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", status)}
				}
				r.tripID, _ = body["id"].(string)
				if r.tripID == "" {
					return Result{Status: "FAIL", Note: "no trip id in response"}
				}
				return Result{Status: "PASS", Latency: latency, Note: "trip=" + r.tripID}
			},
		},
		{
			Name: "Trip: create (missing fields -> 400)",
			Run: func(ctx context.Context, r *Runner) Result {
				status, _, latency, err := r.do(ctx, http.MethodPost, base+"/api/trips", map[string]any{
					"riderId": r.riderID,
				})
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return expectStatus(status, latency, http.StatusBadRequest)
			},
		},
		{
			Name: "Trip: create (duplicate active -> 409)",
			Run: func(ctx context.Context, r *Runner) Result {
				status, _, latency, err := r.do(ctx, http.MethodPost, base+"/api/trips", map[string]any{
					"riderId":     r.riderID,
					"source":      "Connaught Place",
					"destination": "Hauz Khas",
					"distance":    5,
				})
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return expectStatus(status, latency, http.StatusConflict)
			},
		},
		{
			Name: "Matching: driver on duty",
			Run: func(ctx context.Context, r *Runner) Result {
				status, _, latency, err := r.do(ctx, http.MethodPut, base+"/api/drivers/"+r.driverID+"/duty", map[string]any{
					"onDuty": true,
				})
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return expectStatus(status, latency, http.StatusOK)
			},
		},
		{
			Name: "Matching: poll offer",
			Run: func(ctx context.Context, r *Runner) Result {
				status, body, latency, err := r.do(ctx, http.MethodGet, base+"/api/drivers/"+r.driverID+"/offer", nil)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusOK {
					return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", status)}
				}
				offered, _ := body["tripId"].(string)
				if offered != r.tripID {
					return Result{Status: "FAIL", Note: fmt.Sprintf("offered trip %q, created %q", offered, r.tripID)}
				}
				return Result{Status: "PASS", Latency: latency}
			},
		},
		{
			Name: "Matching: offer expiry (-> 410, trip re-offerable)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.WaitExpiry {
					return Result{Status: "SKIP", Note: "wait-expiry=false"}
				}
				// Let the offer window run out, then the accept must be refused.
				time.Sleep(11 * time.Second)
				status, _, latency, err := r.do(ctx, http.MethodPut,
					base+"/api/trips/"+r.tripID+"/accept-offer?driver_id="+r.driverID, nil)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusGone {
					return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", status)}
				}
				// The trip must come straight back on the next poll.
				status, body, _, err := r.do(ctx, http.MethodGet, base+"/api/drivers/"+r.driverID+"/offer", nil)
				if err != nil || status != http.StatusOK {
					return Result{Status: "FAIL", Note: fmt.Sprintf("re-poll status=%d err=%v", status, err)}
				}
				if offered, _ := body["tripId"].(string); offered != r.tripID {
					return Result{Status: "FAIL", Note: "trip not re-offered after expiry"}
				}
				return Result{Status: "PASS", Latency: latency}
			},
		},
		{
			Name: "Matching: accept offer",
			Run: func(ctx context.Context, r *Runner) Result {
				status, body, latency, err := r.do(ctx, http.MethodPut,
					base+"/api/trips/"+r.tripID+"/accept-offer?driver_id="+r.driverID, nil)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusOK {
					return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", status)}
				}
				if s, _ := body["status"].(string); s != "active" {
					return Result{Status: "FAIL", Note: "trip not active after accept: " + s}
				}
				return Result{Status: "PASS", Latency: latency}
			},
		},
		{
			Name: "Trip: end driver (waiting)",
			Run: func(ctx context.Context, r *Runner) Result {
				status, body, latency, err := r.do(ctx, http.MethodPut, base+"/api/trips/"+r.tripID+"/end-driver", nil)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusOK {
					return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", status)}
				}
				if s, _ := body["status"].(string); s != "ending_driver" {
					return Result{Status: "FAIL", Note: "unexpected status: " + s}
				}
				return Result{Status: "PASS", Latency: latency}
			},
		},
		{
			Name: "Trip: end user (ended)",
			Run: func(ctx context.Context, r *Runner) Result {
				status, body, latency, err := r.do(ctx, http.MethodPut, base+"/api/trips/"+r.tripID+"/end-user", nil)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusOK {
					return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", status)}
				}
				if s, _ := body["status"].(string); s != "ended" {
					return Result{Status: "FAIL", Note: "unexpected status: " + s}
				}
				return Result{Status: "PASS", Latency: latency}
			},
		},
		{
			Name: "Trip: end user again (idempotent)",
			Run: func(ctx context.Context, r *Runner) Result {
				status, _, latency, err := r.do(ctx, http.MethodPut, base+"/api/trips/"+r.tripID+"/end-user", nil)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return expectStatus(status, latency, http.StatusOK)
			},
		},
		{
			Name: "Details: driver bonus",
			Run: func(ctx context.Context, r *Runner) Result {
				status, _, latency, err := r.do(ctx, http.MethodGet, base+"/api/details/driver/"+r.driverID+"/bonus", nil)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return expectStatus(status, latency, http.StatusOK)
			},
		},
		{
			Name: "Concurrency: assignment race, one winner",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.assignmentRace(ctx, base)
			},
		},
	}
}

// assignmentRace creates a fresh pending trip and fires concurrent direct
// assignments at it. Exactly one must win.
func (r *Runner) assignmentRace(ctx context.Context, base string) Result {
	rider := fmt.Sprintf("smoke-race-%d", time.Now().UnixNano())
	status, body, _, err := r.do(ctx, http.MethodPost, base+"/api/trips", map[string]any{
		"riderId":     rider,
		"source":      "A",
		"destination": "B",
		"distance":    1,
	})
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	if status != http.StatusCreated {
		return Result{Status: "FAIL", Note: fmt.Sprintf("create status=%d", status)}
	}
	tripID, _ := body["id"].(string)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status, _, _, err := r.do(ctx, http.MethodPut, base+"/api/trips/"+tripID+"/assign-driver", map[string]any{
				"driverId": fmt.Sprintf("smoke-racer-%d", i),
			})
			if err != nil {
				return
			}
			if status == http.StatusOK {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		return Result{Status: "FAIL", Note: fmt.Sprintf("winners=%d", wins)}
	}
	return Result{Status: "PASS", Note: "winners=1"}
}

func (r *Runner) do(ctx context.Context, method, url string, payload any) (int, map[string]any, time.Duration, error) {
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, 0, err
		}
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	body := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &body)
	return resp.StatusCode, body, latency, nil
}

func expectStatus(status int, latency time.Duration, want int) Result {
	if status != want {
		return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d want=%d", status, want)}
	}
	return Result{Status: "PASS", Latency: latency}
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}
