package domain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModelService(t *testing.T, backend *fakeBackend, res *fakeResolver, pub *recordingPublisher) *ModelService {
	t.Helper()
	return NewModelService(
		ModelSource{ModelID: "rizqa-test", Filename: "m.pt", DownloadURL: "http://example/m.pt"},
		res, backend, pub, testLogger(),
	)
}

func TestAcquireBeforeLoad(t *testing.T) {
	s := newTestModelService(t, &fakeBackend{}, &fakeResolver{}, nil)

	_, err := s.Acquire()
	assert.ErrorIs(t, err, models.ErrModelNotLoaded)
	assert.False(t, s.Status().Loaded)
	assert.Equal(t, "rizqa-test", s.Status().ModelID)
}

func TestReloadInstallsModel(t *testing.T) {
	path := writeArtifact(t)
	pub := &recordingPublisher{}
	s := newTestModelService(t, &fakeBackend{}, &fakeResolver{path: path}, pub)

	st, err := s.Reload(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, st.Loaded)
	assert.Equal(t, path, st.ArtifactPath)
	assert.Len(t, st.Blake3, 64)
	assert.False(t, st.LoadedAt.IsZero())

	lease, err := s.Acquire()
	require.NoError(t, err)
	assert.Equal(t, "rizqa-test", lease.ModelID())
	lease.Release()

	assert.Equal(t, []string{models.EventModelLoaded}, pub.types(models.RoomModel))
}

func TestReloadFailureKeepsPreviousModel(t *testing.T) {
	backend := &fakeBackend{text: "first"}
	pub := &recordingPublisher{}
	s := newTestModelService(t, backend, &fakeResolver{path: writeArtifact(t)}, pub)

	_, err := s.Reload(context.Background(), false)
	require.NoError(t, err)

	backend.setErr(errors.New("weights rejected"))
	st, err := s.Reload(context.Background(), false)
	require.Error(t, err)
	assert.True(t, st.Loaded)
	assert.Contains(t, st.LastError, "weights rejected")

	lease, err := s.Acquire()
	require.NoError(t, err)
	defer lease.Release()
	text, err := lease.Model().Transcribe(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "first", text)
	assert.Equal(t, int32(0), backend.models()[0].closes.Load())

	assert.Equal(t, []string{models.EventModelLoaded, models.EventModelLoadFailed}, pub.types(models.RoomModel))
}

func TestReloadResolveFailureLeavesDegraded(t *testing.T) {
	s := newTestModelService(t, &fakeBackend{}, &fakeResolver{err: models.ErrSourceUnresolvable}, nil)

	st, err := s.Reload(context.Background(), false)
	assert.ErrorIs(t, err, models.ErrSourceUnresolvable)
	assert.False(t, st.Loaded)
	assert.NotEmpty(t, s.Status().LastError)
}

func TestRefreshRefetches(t *testing.T) {
	res := &fakeResolver{path: writeArtifact(t)}
	s := newTestModelService(t, &fakeBackend{}, res, nil)

	_, err := s.Reload(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), res.refetches.Load())
	assert.Equal(t, int32(0), res.resolves.Load())
}

func TestOldModelClosedAfterLastLease(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestModelService(t, backend, &fakeResolver{path: writeArtifact(t)}, nil)

	_, err := s.Reload(context.Background(), false)
	require.NoError(t, err)
	inflight, err := s.Acquire()
	require.NoError(t, err)

	_, err = s.Reload(context.Background(), false)
	require.NoError(t, err)

	loaded := backend.models()
	require.Len(t, loaded, 2)
	old, fresh := loaded[0], loaded[1]

	// in-flight request still holds the old model
	assert.Same(t, old, inflight.Model())
	assert.Equal(t, int32(0), old.closes.Load())

	next, err := s.Acquire()
	require.NoError(t, err)
	assert.Same(t, fresh, next.Model())
	next.Release()

	inflight.Release()
	inflight.Release()
	assert.Equal(t, int32(1), old.closes.Load())
	assert.Equal(t, int32(0), fresh.closes.Load())
}

func TestConcurrentAcquireDuringReloads(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestModelService(t, backend, &fakeResolver{path: writeArtifact(t)}, nil)
	_, err := s.Reload(context.Background(), false)
	require.NoError(t, err)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				lease, err := s.Acquire()
				if !assert.NoError(t, err) {
					return
				}
				_, _ = lease.Model().Transcribe(context.Background(), nil, "")
				lease.Release()
			}
		}()
	}

	for i := 0; i < 20; i++ {
		_, err := s.Reload(context.Background(), false)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	close(stop)
	wg.Wait()

	loaded := backend.models()
	require.Len(t, loaded, 21)
	for _, m := range loaded[:len(loaded)-1] {
		assert.Equal(t, int32(1), m.closes.Load())
	}
	assert.Equal(t, int32(0), loaded[len(loaded)-1].closes.Load())

	s.Close()
	assert.Equal(t, int32(1), loaded[len(loaded)-1].closes.Load())
	_, err = s.Acquire()
	assert.ErrorIs(t, err, models.ErrModelNotLoaded)
}

func TestLoadInBackground(t *testing.T) {
	s := newTestModelService(t, &fakeBackend{}, &fakeResolver{path: writeArtifact(t)}, nil)
	s.LoadInBackground(context.Background())

	assert.Eventually(t, func() bool { return s.Status().Loaded }, 2*time.Second, 10*time.Millisecond)
}
