package session

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/gocommerce/cart_service/pkg/config"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"
)

const skipIntegrationTests = "CART_SVC_SKIP_INTEGRATION_TESTS"
const natsImg = "nats:2.11.6-alpine"

// NATSEventSourceSuite runs the NATS session event source against a real server.
type NATSEventSourceSuite struct {
	suite.Suite
	ctx           context.Context
	logger        *slog.Logger
	natsContainer *nats.NATSContainer
	nc            *natsgo.Conn
}

func (s *NATSEventSourceSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.natsContainer, err = nats.Run(s.ctx, natsImg)
	require.NoError(s.T(), err, "Failed to run NATS container")

	natsURL, err := s.natsContainer.ConnectionString(s.ctx)
	require.NoError(s.T(), err)
	s.nc, err = natsgo.Connect(natsURL)
	require.NoError(s.T(), err, "Failed to connect to NATS")
}

func (s *NATSEventSourceSuite) TearDownSuite() {
	if s.nc != nil {
		s.nc.Close()
	}
	if err := testcontainers.TerminateContainer(s.natsContainer); err != nil {
		s.logger.Error("Failed to terminate NATS container", "error", err)
	}
}

func TestNATSEventSourceIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(NATSEventSourceSuite))
}

func (s *NATSEventSourceSuite) TestPublishSubscribe_InOrder() {
	// given
	source := NewNATSEventSource(s.nc, config.SubscriberConfig{Subject: "session." + uuid.NewString(), PendingMsgs: 64}, s.logger)
	var mu sync.Mutex
	var got []EventKind
	sub, err := source.Subscribe(func(_ context.Context, e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Kind)
	})
	require.NoError(s.T(), err)
	defer func() { _ = sub.Unsubscribe() }()
	require.NoError(s.T(), s.nc.Flush())

	// when
	for _, kind := range []EventKind{SignedIn, TokenRefreshed, SignedOut} {
		require.NoError(s.T(), source.Publish(s.ctx, Event{Kind: kind, OccurredAt: time.Now()}))
	}

	// then
	require.Eventually(s.T(), func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, 5*time.Second, 20*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(s.T(), []EventKind{SignedIn, TokenRefreshed, SignedOut}, got)
}

func (s *NATSEventSourceSuite) TestMalformedPayloadIgnored() {
	// given
	subject := "session." + uuid.NewString()
	source := NewNATSEventSource(s.nc, config.SubscriberConfig{Subject: subject}, s.logger)
	received := make(chan Event, 4)
	sub, err := source.Subscribe(func(_ context.Context, e Event) { received <- e })
	require.NoError(s.T(), err)
	defer func() { _ = sub.Unsubscribe() }()
	require.NoError(s.T(), s.nc.Flush())

	// when
	require.NoError(s.T(), s.nc.Publish(subject, []byte("{broken")))
	require.NoError(s.T(), s.nc.Publish(subject, []byte(`{"kind":"UNKNOWN"}`)))
	require.NoError(s.T(), source.Publish(s.ctx, Event{Kind: SignedOut}))

	// then
	select {
	case e := <-received:
		require.Equal(s.T(), SignedOut, e.Kind)
	case <-time.After(5 * time.Second):
		s.T().Fatal("expected SIGNED_OUT event")
	}
	require.Empty(s.T(), received)
}
