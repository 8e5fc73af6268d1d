package mongodb

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
	"github.com/oksasatya/go-account-service/internal/domain/repository"
)

// uriEnv points the tests at an existing server instead of a container.
// Each test still gets its own database, dropped afterwards.
const uriEnv = "TEST_MONGODB_URI"

func integrationURI(t *testing.T) string {
	t.Helper()
	if uri := os.Getenv(uriEnv); uri != "" {
		return uri
	}
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	if _, err := testcontainers.NewDockerClientWithOpts(ctx); err != nil {
		t.Skipf("docker unavailable and %s not set: %v", uriEnv, err)
	}

	mc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mc.Terminate(context.Background()); err != nil {
			t.Logf("terminate mongo container: %v", err)
		}
	})
	host, err := mc.Host(ctx)
	require.NoError(t, err)
	port, err := mc.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)
	return "mongodb://" + host + ":" + port.Port()
}

func newIntegrationRepo(t *testing.T) *AccountRepository {
	t.Helper()
	uri := integrationURI(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := NewClient(ctx, uri)
	require.NoError(t, err)

	db := client.Database("accounts_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	r := NewAccountRepository(db)
	require.NoError(t, r.EnsureIndexes(ctx))
	return r
}

func account(username, email string) *entity.Account {
	return &entity.Account{Username: username, Email: email, PasswordDigest: "x", Role: entity.RoleEmployee}
}

func raceInserts(t *testing.T, r *AccountRepository, accs []*entity.Account) (created, duplicate int) {
	t.Helper()
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, len(accs))
	)
	for i, a := range accs {
		i, a := i, a
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = r.Insert(context.Background(), a)
		}()
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, repository.ErrDuplicate):
			duplicate++
		default:
			t.Errorf("unexpected insert error: %v", err)
		}
	}
	return created, duplicate
}

func TestIntegration_ConcurrentInsertSameEmail(t *testing.T) {
	r := newIntegrationRepo(t)

	var accs []*entity.Account
	for i := 0; i < 8; i++ {
		e := "race@example.com"
		if i%2 == 1 {
			e = "RACE@Example.COM"
		}
		accs = append(accs, account("user"+string(rune('a'+i)), e))
	}

	created, duplicate := raceInserts(t, r, accs)
	assert.Equal(t, 1, created)
	assert.Equal(t, len(accs)-1, duplicate)

	got, err := r.FindByEmail(context.Background(), "Race@example.com")
	require.NoError(t, err)
	assert.Equal(t, "race@example.com", got.Email)
}

func TestIntegration_ConcurrentInsertSameUsername(t *testing.T) {
	r := newIntegrationRepo(t)

	var accs []*entity.Account
	for i := 0; i < 8; i++ {
		accs = append(accs, account("Racer", "racer"+string(rune('a'+i))+"@example.com"))
	}

	created, duplicate := raceInserts(t, r, accs)
	assert.Equal(t, 1, created)
	assert.Equal(t, len(accs)-1, duplicate)
}

func TestIntegration_SaveIntoTakenEmailIsDuplicate(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()

	first := account("first", "first@example.com")
	second := account("second", "second@example.com")
	require.NoError(t, r.Insert(ctx, first))
	require.NoError(t, r.Insert(ctx, second))

	second.Email = "FIRST@example.com"
	assert.ErrorIs(t, r.Save(ctx, second), repository.ErrDuplicate)
}
