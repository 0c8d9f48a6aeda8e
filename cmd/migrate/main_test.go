package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/eventhub/internal/storage/postgres"
)

type fakeMigrator struct {
	dsn      string
	upSteps  []int
	down     []int
	state    postgres.MigrationState
	upErr    error
	closed   bool
	statusFn func() (postgres.MigrationState, error)
}

func (f *fakeMigrator) MigrateUp(_ context.Context, steps int) error {
	f.upSteps = append(f.upSteps, steps)
	return f.upErr
}

func (f *fakeMigrator) MigrateDown(_ context.Context, steps int) error {
	f.down = append(f.down, steps)
	return nil
}

func (f *fakeMigrator) MigrationStatus(context.Context) (postgres.MigrationState, error) {
	if f.statusFn != nil {
		return f.statusFn()
	}
	return f.state, nil
}

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

func run(t *testing.T, fake *fakeMigrator, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(func(_ context.Context, dsn string) (migrator, error) {
		fake.dsn = dsn
		return fake, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrate_UpAppliesAll(t *testing.T) {
	fake := &fakeMigrator{state: postgres.MigrationState{Current: 3, Applied: 3}}

	out, err := run(t, fake, "up", "--dsn", "postgres://localhost/eventhub")
	require.NoError(t, err)

	assert.Equal(t, []int{0}, fake.upSteps)
	assert.Equal(t, "postgres://localhost/eventhub", fake.dsn)
	assert.True(t, fake.closed)
	assert.Contains(t, out, "migrate up ok: version=3 applied=3 pending=0")
}

func TestMigrate_DownDefaultsToOneStep(t *testing.T) {
	fake := &fakeMigrator{state: postgres.MigrationState{Current: 2, Applied: 2, Pending: []string{"0003_chat"}}}

	out, err := run(t, fake, "down", "--dsn", "postgres://localhost/eventhub")
	require.NoError(t, err)

	assert.Equal(t, []int{1}, fake.down)
	assert.Contains(t, out, "pending=1")
	assert.Contains(t, out, "pending 0003_chat")
}

func TestMigrate_StatusUsesEnvironmentDSN(t *testing.T) {
	t.Setenv(envPostgresDSN, "postgres://env/eventhub")
	fake := &fakeMigrator{}

	_, err := run(t, fake, "status")
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/eventhub", fake.dsn)
	assert.Empty(t, fake.upSteps)
}

func TestMigrate_RequiresDSN(t *testing.T) {
	t.Setenv(envPostgresDSN, "")

	_, err := run(t, &fakeMigrator{}, "status")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), envPostgresDSN))
}

func TestMigrate_PropagatesErrors(t *testing.T) {
	fake := &fakeMigrator{upErr: errors.New("lock timeout")}

	_, err := run(t, fake, "up", "--dsn", "postgres://localhost/eventhub", "--steps", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock timeout")
	assert.Equal(t, []int{2}, fake.upSteps)
	assert.True(t, fake.closed)
}

func TestMigrate_UnknownCommand(t *testing.T) {
	_, err := run(t, &fakeMigrator{}, "sideways")
	require.Error(t, err)
}
