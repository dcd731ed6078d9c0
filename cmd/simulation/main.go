package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ksred/studio-payroll/internal/apiclient"
	"github.com/ksred/studio-payroll/internal/calendar"
	"github.com/ksred/studio-payroll/internal/config"
	"github.com/ksred/studio-payroll/internal/database"
	"github.com/ksred/studio-payroll/internal/directory"
	"github.com/ksred/studio-payroll/internal/server"
	"github.com/ksred/studio-payroll/internal/settlement"
	"github.com/ksred/studio-payroll/internal/types"
)

const (
	numInstructors   = 4
	numMembers       = 12
	minBookings      = 40
	maxBookings      = 160
	numWorkers       = 5
	periodFlips      = 6
	simulationMonths = 3
)

var instructorNames = []string{"Lee", "Park", "Jung", "Han", "Seo", "Yoon"}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// statsRecorder groups client observations by route
type statsRecorder struct {
	mu    sync.Mutex
	stats map[string]*routeStats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{stats: make(map[string]*routeStats)}
}

// routeName collapses ids out of a path so /reservations/7 and
// /reservations/9 share one bucket
func routeName(method, path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p != "" && strings.Trim(p, "0123456789") == "" {
			parts[i] = ":n"
		}
	}
	return method + " /" + strings.Join(parts, "/")
}

func (r *statsRecorder) observe(o apiclient.Observation) {
	name := routeName(o.Method, o.Path)

	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.stats[name]
	if !ok {
		rs = &routeStats{name: name}
		r.stats[name] = rs
	}
	rs.addDuration(o.Duration)
	if o.Err != nil {
		rs.failures++
	}
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (r *statsRecorder) printPerformanceStats() {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.stats))
	for name := range r.stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 110))
	fmt.Printf("%-30s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 110))

	for _, name := range names {
		stats := r.stats[name]
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-30s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Microsecond),
			max.Round(time.Microsecond),
			mean.Round(time.Microsecond),
			median.Round(time.Microsecond),
			p95.Round(time.Microsecond),
			p99.Round(time.Microsecond))
	}
	fmt.Println(strings.Repeat("-", 110))
}

// main runs the studio simulation
// It starts a local API server, seeds a studio through the client and
// exercises the settlement presenter with rapid period changes
func main() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "studio-simulation-*")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create working directory")
	}
	defer os.RemoveAll(dir)

	baseURL, stop, err := startServer(filepath.Join(dir, "studio.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
	defer stop()

	recorder := newStatsRecorder()
	client := apiclient.New(baseURL, nil, apiclient.WithObserver(recorder.observe))

	if err := authenticate(ctx, client); err != nil {
		log.Fatal().Err(err).Msg("Failed to authenticate")
	}

	instructors, members, err := seedRoster(ctx, client)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed roster")
	}

	now := time.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(simulationMonths - 1), 0)

	targetBookings := rand.Intn(maxBookings-minBookings) + minBookings
	log.Info().Int("target_bookings", targetBookings).Msg("Starting simulation")
	startTime := time.Now()

	booked, failed := bookConcurrently(ctx, calendar.NewService(client), instructors, members, first, targetBookings)
	log.Info().Int("booked", booked).Int("failed", failed).Msg("All bookings submitted")

	presenter := settlement.NewPresenter(settlement.NewRemoteFetcher(client), now)
	var stale, delivered int
	var lastGen uint64
	var mu sync.Mutex
	presenter.Subscribe(func(s settlement.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.Generation < lastGen {
			stale++
			return
		}
		lastGen = s.Generation
		delivered++
	})

	// Fire overlapping period changes; only the newest may win
	var wg sync.WaitGroup
	for i := 0; i < periodFlips; i++ {
		p := settlement.CurrentPeriod(first.AddDate(0, i%simulationMonths, 0))
		wg.Add(1)
		go func(p settlement.Period) {
			defer wg.Done()
			if _, err := presenter.SelectPeriod(ctx, p); err != nil {
				log.Error().Err(err).Str("period", p.String()).Msg("Failed to select period")
			}
		}(p)
	}
	wg.Wait()

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("STUDIO SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf(`
Instructors:      %d
Members:          %d
Bookings:         %d
Failed bookings:  %d
Period changes:   %d
Notifications:    %d delivered, %d out of order
Duration:         %v
`, len(instructors), len(members), booked, failed, periodFlips, delivered, stale,
		time.Since(startTime).Round(time.Millisecond))

	for i := 0; i < simulationMonths; i++ {
		p := settlement.CurrentPeriod(first.AddDate(0, i, 0))
		snap, err := presenter.SelectPeriod(ctx, p)
		if err != nil {
			log.Error().Err(err).Msg("Failed to select period")
			continue
		}
		fmt.Println()
		if err := settlement.WriteReport(os.Stdout, snap); err != nil {
			log.Error().Err(err).Msg("Failed to render report")
		}
	}

	if len(instructors) > 0 {
		if detail, err := presenter.Expand(instructors[0].ID); err == nil {
			fmt.Println()
			settlement.WriteDetail(os.Stdout, detail)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	recorder.printPerformanceStats()
}

func authenticate(ctx context.Context, client *apiclient.Client) error {
	creds := types.Credentials{
		Email:    fmt.Sprintf("sim-%s@studio.local", uuid.New().String()[:8]),
		Password: uuid.New().String(),
		Name:     "Simulation",
	}
	if err := client.Post(ctx, "/auth/signup", creds, nil); err != nil {
		return err
	}
	var token types.TokenResponse
	if err := client.Post(ctx, "/auth/login", creds, &token); err != nil {
		return err
	}
	client.Session().SetToken(token.AccessToken)
	return nil
}

func seedRoster(ctx context.Context, client *apiclient.Client) ([]types.Instructor, []types.Member, error) {
	dir := directory.NewService(client)

	var instructors []types.Instructor
	for i := 0; i < numInstructors; i++ {
		created, err := dir.CreateInstructor(ctx, types.Instructor{
			Name:     instructorNames[i%len(instructorNames)],
			Color:    fmt.Sprintf("#%06x", rand.Intn(0xffffff)),
			BasicPay: decimal.NewFromInt(int64(1000000 + rand.Intn(10)*100000)),
			Rate:     decimal.NewFromInt(int64(25000 + rand.Intn(5)*5000)),
		})
		if err != nil {
			return nil, nil, err
		}
		instructors = append(instructors, *created)
	}

	var members []types.Member
	for i := 0; i < numMembers; i++ {
		created, err := dir.CreateMember(ctx, types.Member{
			Name:         fmt.Sprintf("Member %02d", i+1),
			Phone:        fmt.Sprintf("010-%04d-%04d", rand.Intn(10000), rand.Intn(10000)),
			InstructorID: instructors[i%len(instructors)].ID,
		})
		if err != nil {
			return nil, nil, err
		}
		members = append(members, *created)
	}

	log.Info().Int("instructors", len(instructors)).Int("members", len(members)).Msg("Roster seeded")
	return instructors, members, nil
}

// bookConcurrently spreads bookings across workers. Slots are drawn from a
// small grid so several members often share one class.
func bookConcurrently(ctx context.Context, cal *calendar.Service, instructors []types.Instructor,
	members []types.Member, first time.Time, total int) (int, int) {
	var (
		wg             sync.WaitGroup
		mu             sync.Mutex
		booked, failed int
	)
	days := int(first.AddDate(0, simulationMonths, 0).Sub(first).Hours() / 24)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := 0; i < total/numWorkers; i++ {
				instructor := instructors[rand.Intn(len(instructors))]
				start := first.AddDate(0, 0, rand.Intn(days)).Add(time.Duration(9+rand.Intn(3)) * time.Hour)

				r, err := cal.Book(ctx, types.ReservationRequest{
					MemberID:     members[rand.Intn(len(members))].ID,
					InstructorID: instructor.ID,
					StartTime:    start,
					EndTime:      start.Add(50 * time.Minute),
				})

				mu.Lock()
				if err != nil {
					failed++
				} else {
					booked++
				}
				mu.Unlock()

				if err != nil {
					log.Error().Err(err).Int("worker_id", workerID).Msg("Failed to book")
					continue
				}
				log.Debug().
					Int("worker_id", workerID).
					Int64("reservation_id", r.ID).
					Str("instructor", instructor.Name).
					Time("start", start).
					Msg("Booked")
			}
		}(w)
	}
	wg.Wait()
	return booked, failed
}

// startServer runs the studio API on a random local port and returns its
// base URL and a stop function
func startServer(dbPath string) (string, func(), error) {
	cfg := config.Load()
	cfg.DBDriver = "sqlite"
	cfg.DatabaseURL = dbPath
	cfg.RateLimit = false

	db, err := database.NewDatabase(cfg)
	if err != nil {
		return "", nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	services := server.NewServices(cfg, db)
	router := server.NewRouter(cfg, services)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
	return "http://" + listener.Addr().String() + "/api", stop, nil
}
