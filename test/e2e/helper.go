package e2e

import (
	"context"
	"database/sql"
	"net"
	"testing"
	"time"

	"github.com/asakaida/filmrate/internal/handlers"
	"github.com/asakaida/filmrate/internal/repositories/cached"
	"github.com/asakaida/filmrate/internal/repositories/postgres"
	"github.com/asakaida/filmrate/internal/services"
	"github.com/asakaida/filmrate/internal/services/aggregation"
	"github.com/asakaida/filmrate/internal/services/relations"
	"github.com/asakaida/filmrate/pkg/cache/memorycache"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const bufSize = 1024 * 1024

// E2ETestServer runs the full service stack on PostgreSQL behind bufconn
type E2ETestServer struct {
	Server   *grpc.Server
	Client   *handlers.FilmRateClient
	Conn     *grpc.ClientConn
	DB       *sql.DB
	Listener *bufconn.Listener
}

// SetupE2ETest sets up an E2E test environment.
// The test is skipped when no PostgreSQL test database is reachable.
func SetupE2ETest(t *testing.T) *E2ETestServer {
	t.Helper()

	db := postgres.SetupTestDB(t)

	recordCache := memorycache.New(&memorycache.Config{MaxSizeBytes: 1 << 20, DefaultTTL: time.Minute})
	store := cached.NewStore(postgres.NewPostgresStore(db), recordCache, zerolog.Nop())

	engine := relations.NewEngine(store, nil, zerolog.Nop())
	aggregator := aggregation.NewAggregator(store)
	handler := handlers.NewFilmRateHandler(
		services.NewPersonService(store, engine),
		services.NewFilmService(store, engine),
		services.NewTagService(store, engine),
		services.NewReviewService(store, engine, aggregator),
		aggregator,
		10,
	)

	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer()
	handlers.RegisterFilmRateServer(server, handler)

	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	bufDialer := func(context.Context, string) (net.Conn, error) {
		return listener.Dial()
	}

	conn, err := grpc.NewClient(
		"passthrough://bufconn",
		grpc.WithContextDialer(bufDialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		server.Stop()
		postgres.CleanupTestDB(t, db)
		t.Fatalf("failed to create client connection: %v", err)
	}

	return &E2ETestServer{
		Server:   server,
		Client:   handlers.NewFilmRateClient(conn),
		Conn:     conn,
		DB:       db,
		Listener: listener,
	}
}

// Teardown cleans up the E2E test environment
func (e *E2ETestServer) Teardown(t *testing.T) {
	t.Helper()

	if e.Conn != nil {
		e.Conn.Close()
	}
	if e.Server != nil {
		e.Server.Stop()
	}
	if e.Listener != nil {
		e.Listener.Close()
	}
	if e.DB != nil {
		postgres.CleanupTestDB(t, e.DB)
	}
}

// Call invokes a method and fails the test on error
func (e *E2ETestServer) Call(t *testing.T, method string, fields map[string]any) *structpb.Struct {
	t.Helper()

	in, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("invalid request for %s: %v", method, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := e.Client.Call(ctx, method, in)
	if err != nil {
		t.Fatalf("%s failed: %v", method, err)
	}
	return out
}

// ID returns the "id" field of a response
func ID(s *structpb.Struct) int64 {
	return int64(s.GetFields()["id"].GetNumberValue())
}
