package randomness_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/starknet_randomness/internal/felt"
	"github.com/R3E-Network/starknet_randomness/internal/randomness"
	"github.com/R3E-Network/starknet_randomness/pkg/testutil"
)

const account = "0x051fea4450da9d6aee758bdeba88b2f665bcbf549d2c61421aa724e9ac0ced8f"

func connected(network string) randomness.Environment {
	return randomness.Environment{
		Connected:      true,
		AccountAddress: account,
		NetworkName:    network,
		TargetNetwork:  network,
	}
}

// startSession runs a session and returns a channel receiving every finished snapshot.
func startSession(t *testing.T, cfg randomness.SessionConfig) (*randomness.Session, <-chan randomness.Snapshot) {
	t.Helper()
	finished := make(chan randomness.Snapshot, 8)
	cfg.OnChange = func(s randomness.Snapshot) {
		if s.Done() {
			finished <- s
		}
	}
	session := randomness.NewSession(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = session.Run(ctx) }()
	return session, finished
}

func waitFinished(t *testing.T, ch <-chan randomness.Snapshot) randomness.Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("submission did not finish")
		return randomness.Snapshot{}
	}
}

func TestSession_DefaultState(t *testing.T) {
	s := randomness.NewSession(randomness.SessionConfig{})
	snap := s.Snapshot()
	assert.Equal(t, randomness.StateIdle, snap.State)
	assert.Equal(t, randomness.DefaultSeed, snap.Seed)
	assert.Equal(t, randomness.ModeAuto, snap.Mode)
}

func TestSession_TriggerSucceeds(t *testing.T) {
	sub := testutil.NewFakeSubmitter("0xfeed")
	session, finished := startSession(t, randomness.SessionConfig{
		Params:    params(),
		Env:       connected("devnet"),
		Submitter: sub,
	})
	ctx := context.Background()

	require.NoError(t, session.SetSeed(ctx, "12345"))
	require.NoError(t, session.Trigger(ctx))

	snap := waitFinished(t, finished)
	assert.Equal(t, randomness.StateSucceeded, snap.State)
	assert.Equal(t, "0xfeed", snap.TxHash)
	assert.Equal(t, randomness.ModeDevnet, snap.ResolvedMode)
	assert.Nil(t, snap.Err)

	require.Equal(t, 1, sub.Calls())
	assert.Equal(t, randomness.EntrypointDevnetGenerate, sub.LastBatch()[0].Entrypoint())
}

func TestSession_TriggerFailsClassified(t *testing.T) {
	sub := testutil.NewFailingSubmitter(errors.New("insufficient balance for max fee"))
	session, finished := startSession(t, randomness.SessionConfig{
		Params:    params(),
		Mode:      randomness.ModeStandard,
		Env:       connected("sepolia"),
		Submitter: sub,
	})

	require.NoError(t, session.Trigger(context.Background()))
	snap := waitFinished(t, finished)

	assert.Equal(t, randomness.StateFailed, snap.State)
	require.NotNil(t, snap.Err)
	assert.Equal(t, randomness.CategoryInsufficientFunds, snap.Err.Category)
	assert.Empty(t, snap.TxHash)
	assert.Len(t, sub.LastBatch(), 2)
}

func TestSession_InvalidSeedRejectedBeforeSubmit(t *testing.T) {
	sub := testutil.NewFakeSubmitter("0x1")
	session, _ := startSession(t, randomness.SessionConfig{
		Params:    params(),
		Env:       connected("devnet"),
		Submitter: sub,
	})
	ctx := context.Background()

	require.NoError(t, session.SetSeed(ctx, "twelve"))
	err := session.Trigger(ctx)
	assert.ErrorIs(t, err, felt.ErrInvalidSeed)
	assert.Equal(t, 0, sub.Calls())
	assert.Equal(t, randomness.StateIdle, session.Snapshot().State)
}

func TestSession_RejectsOverlappingTrigger(t *testing.T) {
	sub := testutil.NewFakeSubmitter("0xabc")
	sub.Hold()
	session, finished := startSession(t, randomness.SessionConfig{
		Params:    params(),
		Env:       connected("devnet"),
		Submitter: sub,
	})
	ctx := context.Background()

	require.NoError(t, session.Trigger(ctx))
	<-sub.Started()
	assert.True(t, session.Snapshot().Loading())

	assert.ErrorIs(t, session.Trigger(ctx), randomness.ErrSubmissionInProgress)
	assert.ErrorIs(t, session.SetSeed(ctx, "9"), randomness.ErrSubmissionInProgress)
	assert.ErrorIs(t, session.Reset(ctx), randomness.ErrSubmissionInProgress)

	sub.Release()
	snap := waitFinished(t, finished)
	assert.Equal(t, randomness.StateSucceeded, snap.State)
	assert.Equal(t, 1, sub.Calls())

	// a finished session accepts a new trigger
	require.NoError(t, session.Trigger(ctx))
	waitFinished(t, finished)
	assert.Equal(t, 2, sub.Calls())
}

func TestSession_Preconditions(t *testing.T) {
	sub := testutil.NewFakeSubmitter("0x1")
	session, _ := startSession(t, randomness.SessionConfig{
		Params:    params(),
		Submitter: sub,
	})
	ctx := context.Background()

	assert.ErrorIs(t, session.Trigger(ctx), randomness.ErrNotConnected)

	env := connected("sepolia")
	env.TargetNetwork = "mainnet"
	require.NoError(t, session.SetEnvironment(ctx, env))
	assert.ErrorIs(t, session.Trigger(ctx), randomness.ErrWrongNetwork)

	env = connected("sepolia")
	env.AccountAddress = "0x1234"
	require.NoError(t, session.SetEnvironment(ctx, env))
	assert.ErrorIs(t, session.Trigger(ctx), randomness.ErrInvalidAccount)

	assert.Equal(t, 0, sub.Calls())
}

func TestSession_Reset(t *testing.T) {
	sub := testutil.NewFakeSubmitter("0x99")
	session, finished := startSession(t, randomness.SessionConfig{
		Params:    params(),
		Env:       connected("devnet"),
		Submitter: sub,
	})
	ctx := context.Background()

	require.NoError(t, session.Trigger(ctx))
	waitFinished(t, finished)
	require.NoError(t, session.Reset(ctx))

	snap := session.Snapshot()
	assert.Equal(t, randomness.StateIdle, snap.State)
	assert.Empty(t, snap.TxHash)
	assert.Nil(t, snap.Err)
}

func TestSession_EmptyHashIsFailure(t *testing.T) {
	sub := testutil.NewFakeSubmitter("")
	session, finished := startSession(t, randomness.SessionConfig{
		Params:    params(),
		Env:       connected("devnet"),
		Submitter: sub,
	})

	require.NoError(t, session.Trigger(context.Background()))
	snap := waitFinished(t, finished)
	assert.Equal(t, randomness.StateFailed, snap.State)
	assert.Equal(t, randomness.CategoryUnknown, snap.Err.Category)
}

func TestEnvironment_WriteDisabled(t *testing.T) {
	assert.False(t, connected("sepolia").WriteDisabled())
	assert.True(t, randomness.Environment{}.WriteDisabled())

	noTarget := connected("sepolia")
	noTarget.TargetNetwork = ""
	assert.False(t, noTarget.WriteDisabled())
}
