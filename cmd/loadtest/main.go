package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type snapshot struct {
	EventID          uuid.UUID `json:"event_id"`
	TotalTickets     int       `json:"total_tickets"`
	TicketsAvailable int       `json:"tickets_available"`
	TicketsSold      int       `json:"tickets_sold"`
}

// Result tallies the outcome of one load run.
type Result struct {
	Attempts  int
	Confirmed int
	ByStatus  map[int]int
	Latencies []time.Duration
	mu        sync.Mutex
}

func (r *Result) record(status int, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Attempts++
	r.ByStatus[status]++
	if status == http.StatusCreated {
		r.Confirmed++
	}
	r.Latencies = append(r.Latencies, latency)
}

type Runner struct {
	BaseURL string
	Client  *http.Client
}

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "loadtest",
		Usage: "Fire concurrent bookings at a running server and check nothing is oversold",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "base-url", Value: "http://localhost:8080/api/v1", EnvVars: []string{"LOADTEST_BASE_URL"}},
			&cli.StringFlag{Name: "event", Usage: "existing event id; a fresh event is created when empty"},
			&cli.IntFlag{Name: "capacity", Value: 100, Usage: "tickets on the created event"},
			&cli.IntFlag{Name: "requests", Value: 500, Usage: "number of booking attempts"},
			&cli.IntFlag{Name: "tickets", Value: 1, Usage: "tickets per booking"},
			&cli.IntFlag{Name: "concurrency", Value: 50},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	runner := &Runner{
		BaseURL: c.String("base-url"),
		Client:  &http.Client{Timeout: c.Duration("timeout")},
	}
	ctx := c.Context

	var eventID uuid.UUID
	if id := c.String("event"); id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return fmt.Errorf("invalid event id: %w", err)
		}
		eventID = parsed
	} else {
		created, err := runner.createEvent(ctx, c.Int("capacity"))
		if err != nil {
			return err
		}
		eventID = created
		fmt.Printf("🎫 Created event %s with %d tickets\n", eventID, c.Int("capacity"))
	}

	before, err := runner.status(ctx, eventID)
	if err != nil {
		return err
	}

	result := &Result{ByStatus: map[int]int{}}
	tickets := c.Int("tickets")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Int("concurrency"))

	start := time.Now()
	for i := 0; i < c.Int("requests"); i++ {
		g.Go(func() error {
			began := time.Now()
			status, err := runner.book(gctx, eventID, tickets)
			if err != nil {
				return err
			}
			result.record(status, time.Since(began))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load run aborted: %w", err)
	}
	elapsed := time.Since(start)

	after, err := runner.status(ctx, eventID)
	if err != nil {
		return err
	}

	return report(result, before, after, tickets, elapsed)
}

func (r *Runner) createEvent(ctx context.Context, capacity int) (uuid.UUID, error) {
	body := map[string]interface{}{
		"name":          "Load test " + time.Now().Format(time.RFC3339),
		"location":      "Load lab",
		"category":      "loadtest",
		"starts_at":     time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"total_tickets": capacity,
		"ticket_price":  1,
	}

	status, env, err := r.do(ctx, http.MethodPost, "/events", body)
	if err != nil {
		return uuid.Nil, err
	}
	if status != http.StatusCreated {
		return uuid.Nil, fmt.Errorf("create event: HTTP %d: %s", status, env.Message)
	}

	var event struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &event); err != nil {
		return uuid.Nil, fmt.Errorf("decode event: %w", err)
	}
	return event.ID, nil
}

func (r *Runner) status(ctx context.Context, eventID uuid.UUID) (*snapshot, error) {
	status, env, err := r.do(ctx, http.MethodGet, "/events/"+eventID.String(), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("event status: HTTP %d: %s", status, env.Message)
	}

	var snap snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// book returns the HTTP status of one booking attempt. Transport failures
// abort the run; every HTTP answer is counted.
func (r *Runner) book(ctx context.Context, eventID uuid.UUID, tickets int) (int, error) {
	status, _, err := r.do(ctx, http.MethodPost, "/bookings", map[string]interface{}{
		"user_id":  uuid.New(),
		"event_id": eventID,
		"tickets":  tickets,
	})
	return status, err
}

func (r *Runner) do(ctx context.Context, method, path string, body interface{}) (int, envelope, error) {
	var env envelope

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, env, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return 0, env, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, env, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, env, err
	}
	if len(raw) > 0 {
		// Rate limit and error bodies still use the envelope
		_ = json.Unmarshal(raw, &env)
	}
	return resp.StatusCode, env, nil
}

func report(result *Result, before, after *snapshot, tickets int, elapsed time.Duration) error {
	fmt.Println("\n📊 LOAD TEST REPORT")
	fmt.Println("===================")
	fmt.Printf("Attempts:   %d in %v\n", result.Attempts, elapsed.Round(time.Millisecond))
	fmt.Printf("Confirmed:  %d\n", result.Confirmed)
	for status, count := range result.ByStatus {
		fmt.Printf("  HTTP %d: %d\n", status, count)
	}

	var total time.Duration
	for _, l := range result.Latencies {
		total += l
	}
	if len(result.Latencies) > 0 {
		fmt.Printf("Avg latency: %v\n", (total / time.Duration(len(result.Latencies))).Round(time.Microsecond))
	}

	fmt.Printf("Available:  %d -> %d (total %d)\n", before.TicketsAvailable, after.TicketsAvailable, after.TotalTickets)

	sold := before.TicketsAvailable - after.TicketsAvailable
	var problems []error
	if after.TicketsAvailable < 0 {
		problems = append(problems, fmt.Errorf("available count went negative: %d", after.TicketsAvailable))
	}
	if after.TicketsAvailable > after.TotalTickets {
		problems = append(problems, fmt.Errorf("available %d exceeds total %d", after.TicketsAvailable, after.TotalTickets))
	}
	if sold != result.Confirmed*tickets {
		problems = append(problems, fmt.Errorf("sold %d tickets but confirmed %d bookings of %d", sold, result.Confirmed, tickets))
	}

	if err := errors.Join(problems...); err != nil {
		fmt.Println("❌ Inventory check failed")
		return err
	}

	fmt.Println("✅ No overbooking: every sold ticket belongs to a confirmed booking")
	return nil
}
